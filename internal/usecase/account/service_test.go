package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/memory"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCustomerDirectory is a mock implementation of CustomerDirectory for testing
type MockCustomerDirectory struct {
	mock.Mock
}

func (m *MockCustomerDirectory) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

// MockNumberGenerator is a mock implementation of NumberGenerator for testing
type MockNumberGenerator struct {
	mock.Mock
}

func (m *MockNumberGenerator) Next(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// sequentialNumbers hands out distinct 12-digit numbers
type sequentialNumbers struct {
	next int
}

func (s *sequentialNumbers) Next(ctx context.Context) (string, error) {
	s.next++
	return fmt.Sprintf("%012d", s.next), nil
}

// stepClock advances one millisecond per call so ledger order is deterministic
func stepClock() func() time.Time {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}

type fixture struct {
	service    *AccountService
	store      *memory.Store
	customerID uuid.UUID
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.NewStore(opts...)

	customer := &domain.Customer{FirstName: "John", Email: "john@test.com"}
	require.NoError(t, store.Customers().Create(context.Background(), customer))

	recorder := ledger.NewRecorder(store.Transactions())
	recorder.Now = stepClock()

	return &fixture{
		service:    NewAccountService(store, store.Customers(), recorder, &sequentialNumbers{}),
		store:      store,
		customerID: customer.ID,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// open creates an account with the given type, balance and overdraft
func (f *fixture) open(t *testing.T, accountType domain.AccountType, balance string, overdraft *decimal.Decimal) *domain.Account {
	t.Helper()
	acc, err := f.service.OpenAccount(context.Background(), OpenAccountInput{
		CustomerID:     f.customerID,
		Type:           accountType,
		OpeningBalance: decPtr(balance),
		OverdraftLimit: overdraft,
	})
	require.NoError(t, err)
	return acc
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) string {
	t.Helper()
	acc, err := f.service.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return domain.FormatMoney(acc.Balance)
}

func (f *fixture) transactions(t *testing.T, id uuid.UUID) []*domain.Transaction {
	t.Helper()
	txs, err := f.service.ListTransactions(context.Background(), id)
	require.NoError(t, err)
	return txs
}

func TestOpenAccount_RecordsOpeningDeposit(t *testing.T) {
	f := newFixture(t)

	acc := f.open(t, domain.AccountTypeSavings, "250.00", nil)

	assert.NotEqual(t, uuid.Nil, acc.ID)
	assert.Len(t, acc.AccountNumber, domain.AccountNumberLength)
	assert.Equal(t, domain.AccountStatusActive, acc.Status)
	assert.False(t, acc.OpenedAt.IsZero())
	assert.Equal(t, "250.00", domain.FormatMoney(acc.Balance))

	txs := f.transactions(t, acc.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionTypeOpeningDeposit, txs[0].Type)
	assert.Equal(t, "250.00", domain.FormatMoney(txs[0].Amount))
	assert.Equal(t, acc.ID, txs[0].AccountID)
}

func TestOpenAccount_ZeroOpeningBalanceRecordsNothing(t *testing.T) {
	f := newFixture(t)

	acc, err := f.service.OpenAccount(context.Background(), OpenAccountInput{
		CustomerID: f.customerID,
		Type:       domain.AccountTypeCurrent,
	})
	require.NoError(t, err)

	assert.Equal(t, "0.00", domain.FormatMoney(acc.Balance))
	assert.Empty(t, f.transactions(t, acc.ID))
}

func TestOpenAccount_UsesGeneratedNumberUnlessSupplied(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	customerID := uuid.New()

	mockDirectory := new(MockCustomerDirectory)
	mockDirectory.On("GetByID", mock.Anything, customerID).Return(&domain.Customer{ID: customerID}, nil)

	mockGenerator := new(MockNumberGenerator)
	mockGenerator.On("Next", mock.Anything).Return("111122223333", nil).Once()

	service := NewAccountService(store, mockDirectory, ledger.NewRecorder(store.Transactions()), mockGenerator)

	generated, err := service.OpenAccount(ctx, OpenAccountInput{CustomerID: customerID, Type: domain.AccountTypeSavings})
	require.NoError(t, err)
	assert.Equal(t, "111122223333", generated.AccountNumber)

	supplied, err := service.OpenAccount(ctx, OpenAccountInput{CustomerID: customerID, Type: domain.AccountTypeSavings, AccountNumber: "CUSTOM-0001"})
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-0001", supplied.AccountNumber)

	mockDirectory.AssertExpectations(t)
	mockGenerator.AssertExpectations(t)
	mockGenerator.AssertNumberOfCalls(t, "Next", 1)
}

func TestOpenAccount_InvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input OpenAccountInput
	}{
		{
			name:  "Missing customer id",
			input: OpenAccountInput{Type: domain.AccountTypeSavings},
		},
		{
			name:  "Unknown customer",
			input: OpenAccountInput{CustomerID: uuid.New(), Type: domain.AccountTypeSavings},
		},
		{
			name:  "Unknown account type",
			input: OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountType("LOAN")},
		},
		{
			name:  "Negative opening balance",
			input: OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountTypeSavings, OpeningBalance: decPtr("-0.01")},
		},
		{
			name:  "Opening balance with three decimal places",
			input: OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountTypeSavings, OpeningBalance: decPtr("10.005")},
		},
		{
			name:  "Negative overdraft limit",
			input: OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountTypeCurrent, OverdraftLimit: decPtr("-100.00")},
		},
		{
			name:  "Negative interest rate",
			input: OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountTypeSavings, InterestRate: decPtr("-0.5")},
		},
		{
			name:  "Interest rate with five decimal places",
			input: OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountTypeSavings, InterestRate: decPtr("1.23456")},
		},
		{
			name:  "Interest rate out of range",
			input: OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountTypeSavings, InterestRate: decPtr("100000")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := f.service.OpenAccount(context.Background(), tt.input)
			assert.Nil(t, acc)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestOpenAccount_KeepsInterestRate(t *testing.T) {
	f := newFixture(t)

	acc, err := f.service.OpenAccount(context.Background(), OpenAccountInput{
		CustomerID:   f.customerID,
		Type:         domain.AccountTypeSavings,
		InterestRate: decPtr("2.125"),
	})
	require.NoError(t, err)
	require.NotNil(t, acc.InterestRate)
	assert.True(t, acc.InterestRate.Equal(dec("2.125")))
}

func TestOpenAccount_DuplicateAccountNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := OpenAccountInput{CustomerID: f.customerID, Type: domain.AccountTypeSavings, AccountNumber: "000011112222"}
	_, err := f.service.OpenAccount(ctx, input)
	require.NoError(t, err)

	_, err = f.service.OpenAccount(ctx, input)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOpenAccount_DirectoryFailureIsNotABusinessError(t *testing.T) {
	store := memory.NewStore()
	customerID := uuid.New()
	outage := errors.New("directory unavailable")

	mockDirectory := new(MockCustomerDirectory)
	mockDirectory.On("GetByID", mock.Anything, customerID).Return(nil, outage)

	service := NewAccountService(store, mockDirectory, ledger.NewRecorder(store.Transactions()), &sequentialNumbers{})

	_, err := service.OpenAccount(context.Background(), OpenAccountInput{CustomerID: customerID, Type: domain.AccountTypeSavings})
	assert.ErrorIs(t, err, outage)
	assert.NotErrorIs(t, err, domain.ErrInvalidArgument)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestDeposit(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		wantErr     error
		wantBalance string
	}{
		{name: "Positive amount", amount: "50.00", wantBalance: "150.00"},
		{name: "Amount with one decimal place", amount: "0.5", wantBalance: "100.50"},
		{name: "Trailing zeros are accepted", amount: "1.500", wantBalance: "101.50"},
		{name: "Zero amount", amount: "0", wantErr: domain.ErrInvalidArgument, wantBalance: "100.00"},
		{name: "Negative amount", amount: "-1.00", wantErr: domain.ErrInvalidArgument, wantBalance: "100.00"},
		{name: "Sub-cent amount", amount: "0.001", wantErr: domain.ErrInvalidArgument, wantBalance: "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			acc := f.open(t, domain.AccountTypeCurrent, "100.00", nil)

			updated, err := f.service.Deposit(context.Background(), acc.ID, dec(tt.amount), "cash")

			assert.Equal(t, tt.wantBalance, f.balance(t, acc.ID))
			txs := f.transactions(t, acc.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, updated)
				assert.Len(t, txs, 1) // opening deposit only
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, domain.FormatMoney(updated.Balance))
			require.Len(t, txs, 2)
			assert.Equal(t, domain.TransactionTypeDeposit, txs[0].Type)
			assert.True(t, txs[0].Amount.Equal(dec(tt.amount)))
			assert.Equal(t, "cash", txs[0].Note)
		})
	}
}

func TestDeposit_AccountNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Deposit(context.Background(), uuid.New(), dec("10.00"), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.Deposit(context.Background(), uuid.Nil, dec("10.00"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestWithdraw_CurrentAccountOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.open(t, domain.AccountTypeCurrent, "0.00", decPtr("100.00"))

	// available = 0 + 100 < 120
	_, err := f.service.Withdraw(ctx, acc.ID, dec("120.00"), "atm")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "0.00", f.balance(t, acc.ID))
	assert.Empty(t, f.transactions(t, acc.ID))

	updated, err := f.service.Withdraw(ctx, acc.ID, dec("90.00"), "atm")
	require.NoError(t, err)
	assert.Equal(t, "-90.00", domain.FormatMoney(updated.Balance))

	txs := f.transactions(t, acc.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionTypeWithdrawal, txs[0].Type)
	assert.Equal(t, "90.00", domain.FormatMoney(txs[0].Amount))

	// Exactly the remaining headroom
	updated, err = f.service.Withdraw(ctx, acc.ID, dec("10.00"), "")
	require.NoError(t, err)
	assert.Equal(t, "-100.00", domain.FormatMoney(updated.Balance))

	_, err = f.service.Withdraw(ctx, acc.ID, dec("0.01"), "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestWithdraw_SavingsNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Overdraft limit is ignored for SAVINGS
	acc := f.open(t, domain.AccountTypeSavings, "40.00", decPtr("100.00"))

	_, err := f.service.Withdraw(ctx, acc.ID, dec("50.00"), "atm")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Contains(t, err.Error(), "insufficient")
	assert.Equal(t, "40.00", f.balance(t, acc.ID))
	assert.Len(t, f.transactions(t, acc.ID), 1)

	updated, err := f.service.Withdraw(ctx, acc.ID, dec("40.00"), "")
	require.NoError(t, err)
	assert.Equal(t, "0.00", domain.FormatMoney(updated.Balance))
}

func TestWithdraw_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	acc := f.open(t, domain.AccountTypeSavings, "40.00", nil)

	_, err := f.service.Withdraw(context.Background(), acc.ID, decimal.Zero, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.service.Withdraw(context.Background(), uuid.New(), dec("1.00"), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransfer_MovesFundsAndRecordsBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.open(t, domain.AccountTypeCurrent, "200.00", decPtr("100.00"))
	to := f.open(t, domain.AccountTypeSavings, "50.00", nil)

	require.NoError(t, f.service.Transfer(ctx, from.ID, to.ID, dec("75.00"), "xfer"))

	assert.Equal(t, "125.00", f.balance(t, from.ID))
	assert.Equal(t, "125.00", f.balance(t, to.ID))

	fromTxs := f.transactions(t, from.ID)
	require.Len(t, fromTxs, 2)
	assert.Equal(t, domain.TransactionTypeTransferOut, fromTxs[0].Type)
	assert.Equal(t, "75.00", domain.FormatMoney(fromTxs[0].Amount))
	assert.Equal(t, "xfer", fromTxs[0].Note)

	toTxs := f.transactions(t, to.ID)
	require.Len(t, toTxs, 2)
	assert.Equal(t, domain.TransactionTypeTransferIn, toTxs[0].Type)
	assert.Equal(t, "75.00", domain.FormatMoney(toTxs[0].Amount))

	// TRANSFER_OUT is recorded before TRANSFER_IN
	assert.True(t, fromTxs[0].Timestamp.Before(toTxs[0].Timestamp))
}

func TestTransfer_DirectionIndependentOfLockOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.open(t, domain.AccountTypeSavings, "100.00", nil)
	b := f.open(t, domain.AccountTypeSavings, "100.00", nil)

	// Whichever of the two sorts first, money must flow from the first argument
	first, second := domain.LockOrder(a.ID, b.ID)

	require.NoError(t, f.service.Transfer(ctx, second, first, dec("30.00"), ""))
	assert.Equal(t, "70.00", f.balance(t, second))
	assert.Equal(t, "130.00", f.balance(t, first))

	require.NoError(t, f.service.Transfer(ctx, first, second, dec("10.00"), ""))
	assert.Equal(t, "80.00", f.balance(t, second))
	assert.Equal(t, "120.00", f.balance(t, first))
}

func TestTransfer_UsesOverdraftOfSourceOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.open(t, domain.AccountTypeCurrent, "0.00", decPtr("100.00"))
	to := f.open(t, domain.AccountTypeCurrent, "0.00", decPtr("500.00"))

	err := f.service.Transfer(ctx, from.ID, to.ID, dec("100.01"), "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "0.00", f.balance(t, from.ID))
	assert.Equal(t, "0.00", f.balance(t, to.ID))
	assert.Empty(t, f.transactions(t, from.ID))
	assert.Empty(t, f.transactions(t, to.ID))

	require.NoError(t, f.service.Transfer(ctx, from.ID, to.ID, dec("100.00"), ""))
	assert.Equal(t, "-100.00", f.balance(t, from.ID))
	assert.Equal(t, "100.00", f.balance(t, to.ID))
}

func TestTransfer_InvalidArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.open(t, domain.AccountTypeSavings, "10.00", nil)
	other := f.open(t, domain.AccountTypeSavings, "10.00", nil)

	assert.ErrorIs(t, f.service.Transfer(ctx, acc.ID, acc.ID, dec("1.00"), ""), domain.ErrInvalidArgument)
	assert.ErrorIs(t, f.service.Transfer(ctx, uuid.Nil, acc.ID, dec("1.00"), ""), domain.ErrInvalidArgument)
	assert.ErrorIs(t, f.service.Transfer(ctx, acc.ID, uuid.Nil, dec("1.00"), ""), domain.ErrInvalidArgument)
	assert.ErrorIs(t, f.service.Transfer(ctx, acc.ID, other.ID, dec("0.00"), ""), domain.ErrInvalidArgument)
	assert.ErrorIs(t, f.service.Transfer(ctx, acc.ID, other.ID, dec("-3.00"), ""), domain.ErrInvalidArgument)
}

func TestTransfer_MissingAccountLeavesOtherUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.open(t, domain.AccountTypeSavings, "10.00", nil)

	assert.ErrorIs(t, f.service.Transfer(ctx, acc.ID, uuid.New(), dec("1.00"), ""), domain.ErrNotFound)
	assert.ErrorIs(t, f.service.Transfer(ctx, uuid.New(), acc.ID, dec("1.00"), ""), domain.ErrNotFound)

	assert.Equal(t, "10.00", f.balance(t, acc.ID))
	assert.Len(t, f.transactions(t, acc.ID), 1)
}

func TestCloseAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc := f.open(t, domain.AccountTypeSavings, "25.00", nil)
	_, err := f.service.Withdraw(ctx, acc.ID, dec("25.00"), "")
	require.NoError(t, err)
	require.Len(t, f.transactions(t, acc.ID), 2)

	require.NoError(t, f.service.CloseAccount(ctx, acc.ID))

	_, err = f.service.GetAccount(ctx, acc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.transactions(t, acc.ID))

	assert.ErrorIs(t, f.service.CloseAccount(ctx, acc.ID), domain.ErrNotFound)
}

func TestCloseAccount_NonZeroBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	positive := f.open(t, domain.AccountTypeSavings, "0.01", nil)
	err := f.service.CloseAccount(ctx, positive.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "balance must be zero to close")

	negative := f.open(t, domain.AccountTypeCurrent, "0.00", decPtr("1.00"))
	_, err = f.service.Withdraw(ctx, negative.ID, dec("0.01"), "")
	require.NoError(t, err)
	assert.ErrorIs(t, f.service.CloseAccount(ctx, negative.ID), domain.ErrConflict)

	// Still there, ledger intact
	assert.Equal(t, "0.01", f.balance(t, positive.ID))
	assert.Len(t, f.transactions(t, positive.ID), 1)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.open(t, domain.AccountTypeSavings, "10.00", nil)

	_, err := f.service.Deposit(ctx, acc.ID, dec("1.00"), "first")
	require.NoError(t, err)
	_, err = f.service.Withdraw(ctx, acc.ID, dec("2.00"), "second")
	require.NoError(t, err)

	txs := f.transactions(t, acc.ID)
	require.Len(t, txs, 3)
	assert.Equal(t, domain.TransactionTypeWithdrawal, txs[0].Type)
	assert.Equal(t, domain.TransactionTypeDeposit, txs[1].Type)
	assert.Equal(t, domain.TransactionTypeOpeningDeposit, txs[2].Type)
}

func TestListAccountsForCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t, domain.AccountTypeSavings, "1.00", nil)
	f.open(t, domain.AccountTypeCurrent, "2.00", nil)

	accounts, err := f.service.ListAccountsForCustomer(ctx, f.customerID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	none, err := f.service.ListAccountsForCustomer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.service.ListAccountsForCustomer(ctx, uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
