package sqlite

import (
	"context"
	"time"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// DefaultLockTimeout is the busy timeout used when none is configured
const DefaultLockTimeout = 5 * time.Second

// Store implements domain.LedgerStore
type Store struct {
	db  *DB
	now func() time.Time
}

// NewStore creates a ledger store over an opened and migrated DB
func NewStore(db *DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Accounts returns a reader over committed accounts
func (s *Store) Accounts() domain.AccountReader {
	return &accountRepository{q: s.db, now: s.now}
}

// Transactions returns a reader over committed ledger entries
func (s *Store) Transactions() domain.TransactionReader {
	return &transactionRepository{q: s.db}
}

// Customers returns the customer directory
func (s *Store) Customers() domain.CustomerRepository {
	return &customerRepository{db: s.db, now: s.now}
}

// WithinUnitOfWork runs fn inside one IMMEDIATE transaction and commits
// only if fn succeeds
func (s *Store) WithinUnitOfWork(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err, "begin transaction")
	}
	defer dbTx.Rollback()

	if err := fn(ctx, &unitOfWork{
		accounts:     &accountRepository{q: dbTx, now: s.now},
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
