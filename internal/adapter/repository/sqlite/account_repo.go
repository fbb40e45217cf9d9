package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

const accountColumns = `id, account_number, customer_id, account_type, balance, interest_rate, overdraft_limit, status, opened_at`

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	q   querier
	now func() time.Time
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := scanAccount(r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
		}
		return nil, translate(err, "get account by ID")
	}
	return acc, nil
}

// GetForUpdate is a plain read: the unit of work already holds the
// database write lock from BEGIN IMMEDIATE
func (r *accountRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepository) FindByAccountNumber(ctx context.Context, number string) (*domain.Account, error) {
	acc, err := scanAccount(r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = ?`, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "find account by number")
	}
	return acc, nil
}

func (r *accountRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = ? ORDER BY opened_at ASC, account_number ASC`

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

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.OpenedAt.IsZero() {
		account.OpenedAt = r.now().UTC()
	}
	if account.Status == "" {
		account.Status = domain.AccountStatusActive
	}
	account.Balance = domain.NormalizeMoney(account.Balance)

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.AccountNumber,
		account.CustomerID,
		string(account.Type),
		domain.FormatMoney(account.Balance),
		nullDecimal(account.InterestRate),
		nullDecimal(account.OverdraftLimit),
		string(account.Status),
		toUnix(account.OpenedAt),
	)
	if err != nil {
		return translate(err, "create account")
	}
	return nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, interest_rate = ?, overdraft_limit = ?, status = ? WHERE id = ?`,
		domain.FormatMoney(account.Balance),
		nullDecimal(account.InterestRate),
		nullDecimal(account.OverdraftLimit),
		string(account.Status),
		account.ID,
	)
	if err != nil {
		return translate(err, "update account")
	}
	return expectOneRow(result, account.ID)
}

// Delete removes an account; foreign keys cascade to its transactions
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
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
	var openedAt int64

	err := row.Scan(
		&acc.ID,
		&acc.AccountNumber,
		&acc.CustomerID,
		&acc.Type,
		&balanceStr,
		&interestRate,
		&overdraftLimit,
		&acc.Status,
		&openedAt,
	)
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	acc.Balance = domain.NormalizeMoney(balance)
	acc.OpenedAt = fromUnix(openedAt)

	if acc.InterestRate, err = parseNullDecimal(interestRate); err != nil {
		return nil, fmt.Errorf("failed to parse interest_rate: %w", err)
	}
	if acc.OverdraftLimit, err = parseNullDecimal(overdraftLimit); err != nil {
		return nil, fmt.Errorf("failed to parse overdraft_limit: %w", err)
	}
	return &acc, nil
}

func nullDecimal(v *decimal.Decimal) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
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
