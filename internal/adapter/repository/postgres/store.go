// Package postgres implements the ledger store on PostgreSQL.
// A unit of work is one database transaction; GetForUpdate takes row
// locks with SELECT ... FOR UPDATE and lock_timeout bounds the wait.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// DefaultLockTimeout bounds how long a unit of work waits for a row lock
const DefaultLockTimeout = 5 * time.Second

// Store implements domain.LedgerStore
type Store struct {
	db          *DB
	lockTimeout time.Duration
}

// NewStore creates a ledger store. A non-positive lockTimeout means
// DefaultLockTimeout.
func NewStore(db *DB, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{db: db, lockTimeout: lockTimeout}
}

// Accounts returns a reader over committed accounts
func (s *Store) Accounts() domain.AccountReader {
	return &accountRepository{q: s.db}
}

// Transactions returns a reader over committed ledger entries
func (s *Store) Transactions() domain.TransactionReader {
	return &transactionRepository{q: s.db}
}

// Customers returns the customer directory
func (s *Store) Customers() domain.CustomerRepository {
	return NewCustomerRepository(s.db)
}

// WithinUnitOfWork runs fn inside one database transaction.
// Any error from fn, or a panic, rolls everything back.
func (s *Store) WithinUnitOfWork(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	// SET LOCAL does not accept bind parameters
	setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err := dbTx.ExecContext(ctx, setTimeout); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err := fn(ctx, &unitOfWork{
		accounts:     &accountRepository{q: dbTx},
		transactions: &transactionRepository{q: dbTx},
	}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return translate(err, "commit transaction")
	}

	return nil
}

// unitOfWork implements domain.UnitOfWork over a *sql.Tx
type unitOfWork struct {
	accounts     *accountRepository
	transactions *transactionRepository
}

func (u *unitOfWork) Accounts() domain.AccountRepository {
	return u.accounts
}

func (u *unitOfWork) Transactions() domain.TransactionWriter {
	return u.transactions
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
