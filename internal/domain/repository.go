package domain

import (
	"context"

	"github.com/google/uuid"
)

// AccountReader defines the non-locking account queries.
// Results reflect committed state only.
type AccountReader interface {
	// GetByID retrieves an account by its ID
	// Returns ErrNotFound if no account has that ID
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByAccountNumber retrieves an account by its external number
	// Returns (nil, nil) if no account has that number
	FindByAccountNumber(ctx context.Context, number string) (*Account, error)

	// ListByCustomer retrieves all accounts owned by a customer, oldest first
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Account, error)
}

// AccountRepository defines the account operations available inside a
// unit of work
type AccountRepository interface {
	AccountReader

	// GetForUpdate retrieves an account and takes its exclusive lock.
	// The lock is held until the unit of work commits or rolls back.
	// Returns ErrNotFound if no account has that ID and ErrLockTimeout if
	// the lock could not be obtained in time.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// Create creates a new account, assigning ID and OpenedAt when unset
	// Returns ErrConflict if the account number is already in use
	Create(ctx context.Context, account *Account) error

	// Update persists the mutable fields of a locked account
	Update(ctx context.Context, account *Account) error

	// Delete removes an account together with its transactions
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionReader defines the ledger history queries
type TransactionReader interface {
	// ListByAccount retrieves the transactions of an account, newest first
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error)
}

// TransactionWriter appends ledger entries inside a unit of work
type TransactionWriter interface {
	// Create appends a transaction, assigning its ID
	Create(ctx context.Context, tx *Transaction) error
}

// UnitOfWork groups the repositories bound to one atomic step
type UnitOfWork interface {
	Accounts() AccountRepository
	Transactions() TransactionWriter
}

// LedgerStore is the single shared mutable resource of the ledger.
// All balance mutation goes through WithinUnitOfWork.
type LedgerStore interface {
	// Accounts returns the non-locking account reader
	Accounts() AccountReader

	// Transactions returns the ledger history reader
	Transactions() TransactionReader

	// WithinUnitOfWork runs fn as one atomic unit. The unit commits when fn
	// returns nil and rolls back otherwise. Locks taken through
	// GetForUpdate are released on every exit path.
	WithinUnitOfWork(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// CustomerDirectory resolves account owners
type CustomerDirectory interface {
	// GetByID retrieves a customer by its ID
	// Returns ErrNotFound if the customer does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
}

// CustomerRepository is a writable customer directory, used for seeding
type CustomerRepository interface {
	CustomerDirectory

	// FindByEmail returns the customer registered with email, or (nil, nil)
	FindByEmail(ctx context.Context, email string) (*Customer, error)

	// Create creates a new customer
	// Returns ErrConflict if the ID or a non-empty email is already taken
	Create(ctx context.Context, customer *Customer) error
}
