package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/keylock"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// unitOfWork stages writes until commit.
// Reads inside the unit see its own staged writes over committed state.
type unitOfWork struct {
	s *Store

	releases []func()
	locked   map[uuid.UUID]bool

	staged   map[uuid.UUID]*domain.Account // created or updated accounts
	created  map[uuid.UUID]bool
	deleted  map[uuid.UUID]bool
	appended []*domain.Transaction
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		s:       s,
		locked:  make(map[uuid.UUID]bool),
		staged:  make(map[uuid.UUID]*domain.Account),
		created: make(map[uuid.UUID]bool),
		deleted: make(map[uuid.UUID]bool),
	}
}

func (u *unitOfWork) Accounts() domain.AccountRepository {
	return uowAccounts{u: u}
}

func (u *unitOfWork) Transactions() domain.TransactionWriter {
	return uowTransactions{u: u}
}

// release drops every lock taken by the unit, newest first
func (u *unitOfWork) release() {
	for i := len(u.releases) - 1; i >= 0; i-- {
		u.releases[i]()
	}
	u.releases = nil
}

// lookup returns the account as this unit sees it
func (u *unitOfWork) lookup(id uuid.UUID) (*domain.Account, bool) {
	if u.deleted[id] {
		return nil, false
	}
	if acc, ok := u.staged[id]; ok {
		return acc, true
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	acc, ok := u.s.accounts[id]
	return acc, ok
}

// numberTaken reports whether another account already uses number
func (u *unitOfWork) numberTaken(number string, self uuid.UUID) bool {
	for id, acc := range u.staged {
		if id != self && acc.AccountNumber == number {
			return true
		}
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	id, ok := u.s.numbers[number]
	return ok && id != self && !u.deleted[id]
}

// commit applies all staged writes atomically
func (u *unitOfWork) commit() error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	// Validate everything before touching shared state
	for id := range u.created {
		acc := u.staged[id]
		if acc == nil {
			continue
		}
		if owner, ok := u.s.numbers[acc.AccountNumber]; ok && owner != id && !u.deleted[owner] {
			return fmt.Errorf("%w: account number %s already in use", domain.ErrConflict, acc.AccountNumber)
		}
	}

	for id := range u.deleted {
		if acc, ok := u.s.accounts[id]; ok {
			delete(u.s.numbers, acc.AccountNumber)
		}
		delete(u.s.accounts, id)
		delete(u.s.transactions, id)
	}
	for id, acc := range u.staged {
		u.s.accounts[id] = acc
		u.s.numbers[acc.AccountNumber] = id
	}
	for _, tx := range u.appended {
		u.s.transactions[tx.AccountID] = append(u.s.transactions[tx.AccountID], tx)
	}
	return nil
}

// uowAccounts implements domain.AccountRepository inside a unit of work
type uowAccounts struct {
	u *unitOfWork
}

func (r uowAccounts) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, ok := r.u.lookup(id)
	if !ok {
		return nil, accountNotFound(id)
	}
	return acc.Clone(), nil
}

func (r uowAccounts) FindByAccountNumber(ctx context.Context, number string) (*domain.Account, error) {
	for _, acc := range r.u.staged {
		if acc.AccountNumber == number {
			return acc.Clone(), nil
		}
	}
	acc, err := r.u.s.Accounts().FindByAccountNumber(ctx, number)
	if err != nil || acc == nil || r.u.deleted[acc.ID] {
		return nil, err
	}
	return acc, nil
}

func (r uowAccounts) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Account, error) {
	committed, err := r.u.s.Accounts().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Account, 0, len(committed))
	for _, acc := range committed {
		if r.u.deleted[acc.ID] {
			continue
		}
		if staged, ok := r.u.staged[acc.ID]; ok {
			acc = staged.Clone()
		}
		out = append(out, acc)
	}
	for id := range r.u.created {
		if acc, ok := r.u.staged[id]; ok && acc.CustomerID == customerID {
			out = append(out, acc.Clone())
		}
	}
	sortAccounts(out)
	return out, nil
}

func (r uowAccounts) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if !r.u.locked[id] {
		release, err := r.u.s.locks.Lock(ctx, id, r.u.s.lockTimeout)
		if err != nil {
			if errors.Is(err, keylock.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: account %s", domain.ErrLockTimeout, id)
			}
			return nil, fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		r.u.releases = append(r.u.releases, release)
		r.u.locked[id] = true
	}

	// Read only after the lock is held
	return r.GetByID(ctx, id)
}

func (r uowAccounts) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if _, exists := r.u.lookup(account.ID); exists {
		return fmt.Errorf("%w: account %s already exists", domain.ErrConflict, account.ID)
	}
	if r.u.numberTaken(account.AccountNumber, account.ID) {
		return fmt.Errorf("%w: account number %s already in use", domain.ErrConflict, account.AccountNumber)
	}
	if account.OpenedAt.IsZero() {
		account.OpenedAt = r.u.s.now()
	}
	if account.Status == "" {
		account.Status = domain.AccountStatusActive
	}
	account.Balance = domain.NormalizeMoney(account.Balance)

	r.u.staged[account.ID] = account.Clone()
	r.u.created[account.ID] = true
	// Nobody else can see an uncommitted account, so it counts as locked
	r.u.locked[account.ID] = true
	return nil
}

func (r uowAccounts) Update(ctx context.Context, account *domain.Account) error {
	if !r.u.locked[account.ID] {
		return fmt.Errorf("account %s must be locked before update", account.ID)
	}
	if _, ok := r.u.lookup(account.ID); !ok {
		return accountNotFound(account.ID)
	}

	cp := account.Clone()
	cp.Balance = domain.NormalizeMoney(cp.Balance)
	r.u.staged[account.ID] = cp
	return nil
}

func (r uowAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	if !r.u.locked[id] {
		return fmt.Errorf("account %s must be locked before delete", id)
	}
	if _, ok := r.u.lookup(id); !ok {
		return accountNotFound(id)
	}

	delete(r.u.staged, id)
	if r.u.created[id] {
		// Never committed, nothing to remove from shared state
		delete(r.u.created, id)
	} else {
		r.u.deleted[id] = true
	}

	kept := r.u.appended[:0]
	for _, tx := range r.u.appended {
		if tx.AccountID != id {
			kept = append(kept, tx)
		}
	}
	r.u.appended = kept
	return nil
}

// uowTransactions implements domain.TransactionWriter inside a unit of work
type uowTransactions struct {
	u *unitOfWork
}

func (w uowTransactions) Create(ctx context.Context, tx *domain.Transaction) error {
	if _, ok := w.u.lookup(tx.AccountID); !ok {
		return accountNotFound(tx.AccountID)
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	cp := *tx
	cp.Amount = domain.NormalizeMoney(cp.Amount)
	w.u.appended = append(w.u.appended, &cp)
	return nil
}
