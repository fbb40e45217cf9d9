// Package account implements the account-mutation engine: open, deposit,
// withdraw, transfer and close, each as one unit of work against the
// ledger store.
package account

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/ledger"
)

// maxAccountNumberLength matches the account_number column width
const maxAccountNumberLength = 32

// NumberGenerator produces unused account numbers
type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// OpenAccountInput represents the input for opening an account
type OpenAccountInput struct {
	CustomerID     uuid.UUID
	Type           domain.AccountType
	OpeningBalance *decimal.Decimal // Optional: defaults to 0
	AccountNumber  string           // Optional: generated when empty
	InterestRate   *decimal.Decimal // Optional: SAVINGS only, carried data
	OverdraftLimit *decimal.Decimal // Optional: CURRENT only
}

// AccountService handles all balance-changing account operations
type AccountService struct {
	Store             domain.LedgerStore
	CustomerDirectory domain.CustomerDirectory
	Recorder          *ledger.Recorder
	NumberGenerator   NumberGenerator

	// Logger receives audit lines for successful mutations. nil disables them.
	Logger *log.Logger
}

// NewAccountService creates a new AccountService instance
func NewAccountService(
	store domain.LedgerStore,
	customerDirectory domain.CustomerDirectory,
	recorder *ledger.Recorder,
	numberGenerator NumberGenerator,
) *AccountService {
	return &AccountService{
		Store:             store,
		CustomerDirectory: customerDirectory,
		Recorder:          recorder,
		NumberGenerator:   numberGenerator,
	}
}

// OpenAccount creates an account for an existing customer
// Logic:
//  1. Validate input and resolve the customer
//  2. Generate an account number unless one was supplied
//  3. Create the account and, for a positive opening balance, record one
//     OPENING_DEPOSIT in the same unit of work
func (s *AccountService) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	if input.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidArgument)
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: account type must be SAVINGS or CURRENT", domain.ErrInvalidArgument)
	}
	if len(input.AccountNumber) > maxAccountNumberLength {
		return nil, fmt.Errorf("%w: account number must be at most %d characters", domain.ErrInvalidArgument, maxAccountNumberLength)
	}

	opening := decimal.Zero
	if input.OpeningBalance != nil {
		if input.OpeningBalance.IsNegative() {
			return nil, fmt.Errorf("%w: opening balance must be >= 0", domain.ErrInvalidArgument)
		}
		if !domain.HasMoneyScale(*input.OpeningBalance) {
			return nil, fmt.Errorf("%w: opening balance must have at most 2 decimal places", domain.ErrInvalidArgument)
		}
		opening = *input.OpeningBalance
	}
	opening = domain.NormalizeMoney(opening)

	var overdraft *decimal.Decimal
	if input.OverdraftLimit != nil {
		if input.OverdraftLimit.IsNegative() {
			return nil, fmt.Errorf("%w: overdraft limit must be >= 0", domain.ErrInvalidArgument)
		}
		if !domain.HasMoneyScale(*input.OverdraftLimit) {
			return nil, fmt.Errorf("%w: overdraft limit must have at most 2 decimal places", domain.ErrInvalidArgument)
		}
		v := domain.NormalizeMoney(*input.OverdraftLimit)
		overdraft = &v
	}

	var rate *decimal.Decimal
	if input.InterestRate != nil {
		v := *input.InterestRate
		if v.IsNegative() {
			return nil, fmt.Errorf("%w: interest rate must be >= 0", domain.ErrInvalidArgument)
		}
		if !v.Equal(v.Truncate(domain.RateScale)) {
			return nil, fmt.Errorf("%w: interest rate must have at most %d decimal places", domain.ErrInvalidArgument, domain.RateScale)
		}
		if v.GreaterThan(domain.MaxInterestRate) {
			return nil, fmt.Errorf("%w: interest rate must be at most %s", domain.ErrInvalidArgument, domain.MaxInterestRate)
		}
		rate = &v
	}

	if _, err := s.CustomerDirectory.GetByID(ctx, input.CustomerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer not found: %s", domain.ErrInvalidArgument, input.CustomerID)
		}
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	number := input.AccountNumber
	if number == "" {
		generated, err := s.NumberGenerator.Next(ctx)
		if err != nil {
			return nil, err
		}
		number = generated
	}

	account := &domain.Account{
		AccountNumber:  number,
		CustomerID:     input.CustomerID,
		Type:           input.Type,
		Balance:        opening,
		InterestRate:   rate,
		OverdraftLimit: overdraft,
		Status:         domain.AccountStatusActive,
	}
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, err.Error())
	}

	err := s.Store.WithinUnitOfWork(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		if err := uow.Accounts().Create(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		if opening.IsPositive() {
			if _, err := s.Recorder.Record(ctx, uow.Transactions(), account, opening, domain.TransactionTypeOpeningDeposit, "Opening balance"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit("opened account id=%s number=%s customer=%s type=%s balance=%s",
		account.ID, account.AccountNumber, account.CustomerID, account.Type, domain.FormatMoney(account.Balance))
	return account.Clone(), nil
}

// GetAccount retrieves the committed state of an account
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidArgument)
	}
	return s.Store.Accounts().GetByID(ctx, id)
}

// Deposit adds amount to the balance of an account and records a DEPOSIT
func (s *AccountService) Deposit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, note string) (*domain.Account, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidArgument)
	}
	amount, err := validateAmount(amount)
	if err != nil {
		return nil, err
	}

	var updated *domain.Account
	err = s.Store.WithinUnitOfWork(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		acc, err := uow.Accounts().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		acc.Balance = acc.Balance.Add(amount)
		if err := uow.Accounts().Update(ctx, acc); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if _, err := s.Recorder.Record(ctx, uow.Transactions(), acc, amount, domain.TransactionTypeDeposit, note); err != nil {
			return err
		}

		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit("deposit account=%s amount=%s balance=%s", id, domain.FormatMoney(amount), domain.FormatMoney(updated.Balance))
	return updated, nil
}

// Withdraw removes amount from an account and records a WITHDRAWAL.
// CURRENT accounts may go negative down to their overdraft limit.
func (s *AccountService) Withdraw(ctx context.Context, id uuid.UUID, amount decimal.Decimal, note string) (*domain.Account, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidArgument)
	}
	amount, err := validateAmount(amount)
	if err != nil {
		return nil, err
	}

	var updated *domain.Account
	err = s.Store.WithinUnitOfWork(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		acc, err := uow.Accounts().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !acc.CanDebit(amount) {
			return insufficientFunds(acc, amount)
		}

		acc.Balance = acc.Balance.Sub(amount)
		if err := uow.Accounts().Update(ctx, acc); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if _, err := s.Recorder.Record(ctx, uow.Transactions(), acc, amount, domain.TransactionTypeWithdrawal, note); err != nil {
			return err
		}

		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit("withdrawal account=%s amount=%s balance=%s", id, domain.FormatMoney(amount), domain.FormatMoney(updated.Balance))
	return updated, nil
}

// Transfer moves amount between two distinct accounts atomically
// Logic:
//  1. Lock both accounts in LockOrder, independent of direction
//  2. Work out which locked account is "from" by comparing IDs
//  3. Check availability on "from" exactly like Withdraw
//  4. Debit, credit, persist both, then record TRANSFER_OUT and TRANSFER_IN
func (s *AccountService) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, note string) error {
	if fromID == uuid.Nil || toID == uuid.Nil {
		return fmt.Errorf("%w: both from and to account ids are required", domain.ErrInvalidArgument)
	}
	if fromID == toID {
		return fmt.Errorf("%w: from and to accounts must be different", domain.ErrInvalidArgument)
	}
	amount, err := validateAmount(amount)
	if err != nil {
		return err
	}

	first, second := domain.LockOrder(fromID, toID)

	var from, to *domain.Account
	err = s.Store.WithinUnitOfWork(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		firstAcc, err := uow.Accounts().GetForUpdate(ctx, first)
		if err != nil {
			return err
		}
		secondAcc, err := uow.Accounts().GetForUpdate(ctx, second)
		if err != nil {
			return err
		}

		// Lock order is not transfer direction
		from, to = firstAcc, secondAcc
		if from.ID != fromID {
			from, to = secondAcc, firstAcc
		}

		if !from.CanDebit(amount) {
			return insufficientFunds(from, amount)
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)

		if err := uow.Accounts().Update(ctx, from); err != nil {
			return fmt.Errorf("failed to update source account: %w", err)
		}
		if err := uow.Accounts().Update(ctx, to); err != nil {
			return fmt.Errorf("failed to update destination account: %w", err)
		}
		if _, err := s.Recorder.Record(ctx, uow.Transactions(), from, amount, domain.TransactionTypeTransferOut, note); err != nil {
			return err
		}
		if _, err := s.Recorder.Record(ctx, uow.Transactions(), to, amount, domain.TransactionTypeTransferIn, note); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit("transfer from=%s to=%s amount=%s", fromID, toID, domain.FormatMoney(amount))
	return nil
}

// CloseAccount deletes an account with a zero balance together with its
// transactions
func (s *AccountService) CloseAccount(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: account id is required", domain.ErrInvalidArgument)
	}

	err := s.Store.WithinUnitOfWork(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		acc, err := uow.Accounts().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !acc.Balance.IsZero() {
			return fmt.Errorf("%w: balance must be zero to close (account %s has %s)",
				domain.ErrConflict, id, domain.FormatMoney(acc.Balance))
		}

		if err := uow.Accounts().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit("closed account=%s", id)
	return nil
}

// ListTransactions retrieves the ledger of an account, newest first
func (s *AccountService) ListTransactions(ctx context.Context, id uuid.UUID) ([]*domain.Transaction, error) {
	return s.Recorder.List(ctx, id)
}

// ListAccountsForCustomer retrieves all accounts of a customer
func (s *AccountService) ListAccountsForCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Account, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidArgument)
	}

	accounts, err := s.Store.Accounts().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) audit(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// validateAmount rejects non-positive amounts and amounts that would lose
// value at two decimal places, returning the normalised amount
func validateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	if !domain.HasMoneyScale(amount) {
		return decimal.Zero, fmt.Errorf("%w: amount must have at most 2 decimal places", domain.ErrInvalidArgument)
	}
	return domain.NormalizeMoney(amount), nil
}

func insufficientFunds(acc *domain.Account, amount decimal.Decimal) error {
	return fmt.Errorf("%w: account %s has %s available, %s requested",
		domain.ErrInsufficientFunds, acc.ID, domain.FormatMoney(acc.Available()), domain.FormatMoney(amount))
}
