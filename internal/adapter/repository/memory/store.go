// Package memory implements the ledger store in process memory.
// Units of work stage their writes and apply them under a single write
// lock on commit, so readers only ever see committed state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/keylock"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// DefaultLockTimeout bounds how long GetForUpdate waits for an account lock
const DefaultLockTimeout = 5 * time.Second

// Store implements domain.LedgerStore
type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*domain.Account
	numbers      map[string]uuid.UUID
	transactions map[uuid.UUID][]*domain.Transaction // append order per account
	customers    map[uuid.UUID]*domain.Customer

	locks       *keylock.Locker[uuid.UUID]
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLockTimeout sets the maximum wait for an account lock
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithClock overrides the clock used for OpenedAt and CreatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty in-memory store
func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts:     make(map[uuid.UUID]*domain.Account),
		numbers:      make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID][]*domain.Transaction),
		customers:    make(map[uuid.UUID]*domain.Customer),
		locks:        keylock.New[uuid.UUID](),
		lockTimeout:  DefaultLockTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accounts returns the non-locking account reader
func (s *Store) Accounts() domain.AccountReader {
	return accountReader{s: s}
}

// Transactions returns the ledger history reader
func (s *Store) Transactions() domain.TransactionReader {
	return transactionReader{s: s}
}

// Customers returns the customer directory kept alongside the ledger
func (s *Store) Customers() domain.CustomerRepository {
	return customerRepository{s: s}
}

// WithinUnitOfWork runs fn against staged state and commits on success
func (s *Store) WithinUnitOfWork(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	uow := newUnitOfWork(s)
	defer uow.release()

	if err := fn(ctx, uow); err != nil {
		return err
	}
	return uow.commit()
}

// accountReader reads committed accounts
type accountReader struct {
	s *Store
}

func (r accountReader) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, accountNotFound(id)
	}
	return acc.Clone(), nil
}

func (r accountReader) FindByAccountNumber(ctx context.Context, number string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.numbers[number]
	if !ok {
		return nil, nil
	}
	return r.s.accounts[id].Clone(), nil
}

func (r accountReader) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Account, 0)
	for _, acc := range r.s.accounts {
		if acc.CustomerID == customerID {
			out = append(out, acc.Clone())
		}
	}
	sortAccounts(out)
	return out, nil
}

// transactionReader reads committed ledger entries
type transactionReader struct {
	s *Store
}

func (r transactionReader) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := r.s.transactions[accountID]
	out := make([]*domain.Transaction, 0, len(entries))
	// Newest appended first, so equal timestamps keep reverse append order
	for i := len(entries) - 1; i >= 0; i-- {
		cp := *entries[i]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// customerRepository implements domain.CustomerRepository
type customerRepository struct {
	s *Store
}

func (r customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (r customerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if c := r.s.customerByEmail(email); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if _, exists := r.s.customers[customer.ID]; exists {
		return fmt.Errorf("%w: customer %s already exists", domain.ErrConflict, customer.ID)
	}
	if customer.Email != "" && r.s.customerByEmail(customer.Email) != nil {
		return fmt.Errorf("%w: email %s already registered", domain.ErrConflict, customer.Email)
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = r.s.now()
	}
	cp := *customer
	r.s.customers[customer.ID] = &cp
	return nil
}

// customerByEmail must be called with mu held
func (s *Store) customerByEmail(email string) *domain.Customer {
	if email == "" {
		return nil
	}
	for _, c := range s.customers {
		if c.Email == email {
			return c
		}
	}
	return nil
}

func accountNotFound(id uuid.UUID) error {
	return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
}

// sortAccounts orders accounts oldest first, then by account number
func sortAccounts(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].OpenedAt.Equal(accounts[j].OpenedAt) {
			return accounts[i].OpenedAt.Before(accounts[j].OpenedAt)
		}
		return accounts[i].AccountNumber < accounts[j].AccountNumber
	})
}
