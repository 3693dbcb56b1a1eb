package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Kind classifies engine failures so the transport layer can map them to
// status codes without inspecting error text.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindInsufficientFunds
	KindConcurrency // retryable: no partial effect was committed
	KindStorage
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func insufficientFundsError(message string) *Error {
	return &Error{Kind: KindInsufficientFunds, Message: message}
}

// KindOf returns the taxonomy kind of err. Errors that did not come from the
// ledger are reported as KindStorage.
func KindOf(err error) Kind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return KindStorage
}

// Postgres error codes that indicate a transient conflict rather than a
// storage fault: serialization_failure, deadlock_detected, lock_not_available.
var retryableCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
}

// storageError maps a failed storage operation to the taxonomy. Timed-out
// lock waits and transient conflicts become KindConcurrency so callers know
// the whole operation is safe to retry.
func storageError(err error, op string) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindConcurrency, Message: op + " interrupted", Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && retryableCodes[pqErr.Code] {
		return &Error{Kind: KindConcurrency, Message: op + " conflicted", Err: err}
	}

	return &Error{Kind: KindStorage, Message: "failed to " + op, Err: err}
}
