package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

const accountColumns = `id, account_number, customer_id, account_type, balance, interest_rate, overdraft_limit, status, opened_at`

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	q querier
}

// NewAccountRepository creates an account repository outside any unit of work.
// Its writes autocommit and GetForUpdate locks only for the statement.
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{q: db}
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetForUpdate retrieves an account and holds its row lock until the
// surrounding database transaction ends
func (r *accountRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *accountRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.Account, error) {
	acc, err := scanAccount(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
		}
		return nil, translate(err, "get account by ID")
	}
	return acc, nil
}

// FindByAccountNumber returns (nil, nil) when no account uses number
func (r *accountRepository) FindByAccountNumber(ctx context.Context, number string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	acc, err := scanAccount(r.q.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "find account by number")
	}
	return acc, nil
}

// ListByCustomer retrieves all accounts of a customer, oldest first
func (r *accountRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY opened_at ASC, account_number ASC`

	rows, err := r.q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, translate(err, "list accounts")
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// Create inserts a new account, assigning ID and OpenedAt when unset
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.OpenedAt.IsZero() {
		account.OpenedAt = nowUTC()
	}
	if account.Status == "" {
		account.Status = domain.AccountStatusActive
	}
	account.Balance = domain.NormalizeMoney(account.Balance)

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		account.ID,
		account.AccountNumber,
		account.CustomerID,
		string(account.Type),
		domain.FormatMoney(account.Balance),
		nullDecimal(account.InterestRate),
		nullDecimal(account.OverdraftLimit),
		string(account.Status),
		account.OpenedAt,
	)
	if err != nil {
		return translate(err, "create account")
	}

	return nil
}

// Update persists balance and mutable settings of an account
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET balance = $2, interest_rate = $3, overdraft_limit = $4, status = $5
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		account.ID,
		domain.FormatMoney(account.Balance),
		nullDecimal(account.InterestRate),
		nullDecimal(account.OverdraftLimit),
		string(account.Status),
	)
	if err != nil {
		return translate(err, "update account")
	}

	return expectOneRow(result, account.ID)
}

// Delete removes an account; its transactions go with it via ON DELETE CASCADE
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete account")
	}

	return expectOneRow(result, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var acc domain.Account
	var balanceStr string
	var interestRate, overdraftLimit sql.NullString

	err := row.Scan(
		&acc.ID,
		&acc.AccountNumber,
		&acc.CustomerID,
		&acc.Type,
		&balanceStr,
		&interestRate,
		&overdraftLimit,
		&acc.Status,
		&acc.OpenedAt,
	)
	if err != nil {
		return nil, err
	}

	// Parse balance (NUMERIC)
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	acc.Balance = domain.NormalizeMoney(balance)

	if acc.InterestRate, err = parseNullDecimal(interestRate); err != nil {
		return nil, fmt.Errorf("failed to parse interest_rate: %w", err)
	}
	if acc.OverdraftLimit, err = parseNullDecimal(overdraftLimit); err != nil {
		return nil, fmt.Errorf("failed to parse overdraft_limit: %w", err)
	}

	return &acc, nil
}

func nullDecimal(v *decimal.Decimal) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

func parseNullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func expectOneRow(result sql.Result, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	return nil
}
