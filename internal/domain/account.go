package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the product type of an account
type AccountType string

const (
	AccountTypeSavings AccountType = "SAVINGS"
	AccountTypeCurrent AccountType = "CURRENT"
)

// Valid reports whether t is a known account type
func (t AccountType) Valid() bool {
	return t == AccountTypeSavings || t == AccountTypeCurrent
}

// AccountStatus represents the lifecycle status of an account
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// AccountNumberLength is the length of generated account numbers
const AccountNumberLength = 12

// Account represents a bank account entity in the domain layer
type Account struct {
	ID             uuid.UUID
	AccountNumber  string
	CustomerID     uuid.UUID
	Type           AccountType
	Balance        decimal.Decimal
	InterestRate   *decimal.Decimal // Carried for SAVINGS, never used by balance operations
	OverdraftLimit *decimal.Decimal // Only meaningful for CURRENT. nil means no overdraft.
	Status         AccountStatus
	OpenedAt       time.Time
}

// Overdraft returns the overdraft headroom that applies to the account.
// SAVINGS accounts never have headroom; a missing limit counts as zero.
func (a *Account) Overdraft() decimal.Decimal {
	if a.Type != AccountTypeCurrent || a.OverdraftLimit == nil {
		return decimal.Zero
	}
	return *a.OverdraftLimit
}

// Available returns the amount that can be debited right now
func (a *Account) Available() decimal.Decimal {
	return a.Balance.Add(a.Overdraft())
}

// CanDebit reports whether amount can leave the account without breaking
// the balance floor
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Available().GreaterThanOrEqual(amount)
}

// Validate ensures the account adheres to domain rules
// Returns an error if validation fails
func (a *Account) Validate() error {
	if a.CustomerID == uuid.Nil {
		return errors.New("account must reference a customer")
	}
	if !a.Type.Valid() {
		return errors.New("account type must be SAVINGS or CURRENT")
	}
	if a.AccountNumber == "" {
		return errors.New("account number cannot be empty")
	}
	if a.OverdraftLimit != nil && a.OverdraftLimit.IsNegative() {
		return errors.New("overdraft limit must not be negative")
	}

	// Balance floor: 0 for SAVINGS, -overdraftLimit for CURRENT
	if a.Available().IsNegative() {
		return errors.New("balance is below the allowed floor")
	}

	return nil
}

// Clone returns a deep copy so callers never share the optional decimals
func (a *Account) Clone() *Account {
	cp := *a
	if a.InterestRate != nil {
		v := *a.InterestRate
		cp.InterestRate = &v
	}
	if a.OverdraftLimit != nil {
		v := *a.OverdraftLimit
		cp.OverdraftLimit = &v
	}
	return &cp
}
