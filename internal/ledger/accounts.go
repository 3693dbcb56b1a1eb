package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backend/internal/models"
)

const (
	balancePrecision      = 4
	maxAccountNameLen     = 255
	maxTxDescriptionLen   = 500
	maxReferenceNumberLen = 100
)

// Ledger is the double-entry bookkeeping engine. It is stateless: every
// operation re-reads current state from storage, so a single instance can be
// shared by any number of concurrent callers.
type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// hasPrecision reports whether d can be represented at the stored precision
// without rounding.
func hasPrecision(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

// AccountUpdate carries the mutable account fields; nil means leave as is.
type AccountUpdate struct {
	Name        *string
	Description *string
}

// AccountFilter narrows ListAccounts results. Empty fields are ignored;
// provided fields are combined with AND.
type AccountFilter struct {
	Type          models.AccountType
	NameSubstring string
}

func (l *Ledger) CreateAccount(ctx context.Context, name string, accountType models.AccountType, description string, openingBalance decimal.Decimal) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErrorf("account name is required")
	}
	if len(name) > maxAccountNameLen {
		return nil, validationErrorf("account name exceeds %d characters", maxAccountNameLen)
	}
	if !accountType.Valid() {
		return nil, validationErrorf("invalid account type %q", accountType)
	}
	if !hasPrecision(openingBalance, balancePrecision) {
		return nil, validationErrorf("opening balance exceeds %d decimal places", balancePrecision)
	}

	account := &models.Account{
		ID:             uuid.NewString(),
		Name:           name,
		Type:           accountType,
		Description:    description,
		OpeningBalance: openingBalance,
		CurrentBalance: openingBalance,
	}

	err := l.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, name, type, description, opening_balance, current_balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		account.ID, account.Name, account.Type, nullString(description),
		account.OpeningBalance, account.CurrentBalance,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, storageError(err, "create account")
	}

	log.Printf("[LEDGER] Created account %s (%s)", account.ID, account.Type)
	return account, nil
}

func (l *Ledger) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := scanAccount(l.db.QueryRowContext(ctx, `
		SELECT id, name, type, description, opening_balance, current_balance, created_at, updated_at
		FROM accounts
		WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, notFoundError("account not found")
	}
	if err != nil {
		return nil, storageError(err, "fetch account")
	}
	return account, nil
}

// UpdateAccount applies only the provided fields. Type and balances are
// immutable through this path.
func (l *Ledger) UpdateAccount(ctx context.Context, id string, update AccountUpdate) (*models.Account, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return nil, validationErrorf("account name is required")
		}
		if len(trimmed) > maxAccountNameLen {
			return nil, validationErrorf("account name exceeds %d characters", maxAccountNameLen)
		}
		update.Name = &trimmed
	}

	account, err := scanAccount(l.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET name = COALESCE($2, name), description = COALESCE($3, description), updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, type, description, opening_balance, current_balance, created_at, updated_at`,
		id, update.Name, update.Description))
	if err == sql.ErrNoRows {
		return nil, notFoundError("account not found")
	}
	if err != nil {
		return nil, storageError(err, "update account")
	}

	log.Printf("[LEDGER] Updated account %s", account.ID)
	return account, nil
}

// ListAccounts returns accounts in insertion order. Name matching is a
// case-insensitive substring match. Out-of-range pages yield an empty slice.
func (l *Ledger) ListAccounts(ctx context.Context, filter AccountFilter, page, pageSize int) ([]*models.Account, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := `
		SELECT id, name, type, description, opening_balance, current_balance, created_at, updated_at
		FROM accounts`
	var conds []string
	var args []any

	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.NameSubstring != "" {
		args = append(args, "%"+filter.NameSubstring+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(err, "list accounts")
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storageError(err, "list accounts")
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "list accounts")
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var description sql.NullString
	err := row.Scan(&account.ID, &account.Name, &account.Type, &description,
		&account.OpeningBalance, &account.CurrentBalance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	account.Description = description.String
	return &account, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
