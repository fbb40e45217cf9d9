package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of ledger entry
type TransactionType string

const (
	TransactionTypeOpeningDeposit TransactionType = "OPENING_DEPOSIT"
	TransactionTypeDeposit        TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal     TransactionType = "WITHDRAWAL"
	TransactionTypeTransferOut    TransactionType = "TRANSFER_OUT"
	TransactionTypeTransferIn     TransactionType = "TRANSFER_IN"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeOpeningDeposit,
		TransactionTypeDeposit,
		TransactionTypeWithdrawal,
		TransactionTypeTransferOut,
		TransactionTypeTransferIn:
		return true
	}
	return false
}

// Credit reports whether the entry increases the account balance
func (t TransactionType) Credit() bool {
	return t == TransactionTypeOpeningDeposit || t == TransactionTypeDeposit || t == TransactionTypeTransferIn
}

// Transaction represents an immutable ledger entry owned by one account
type Transaction struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Type      TransactionType
	Amount    decimal.Decimal // ABSOLUTE VALUE (Always Positive). Direction comes from Type.
	Timestamp time.Time
	Note      string
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if t.AccountID == uuid.Nil {
		return errors.New("transaction must belong to an account")
	}
	if !t.Type.Valid() {
		return errors.New("transaction type is not valid")
	}
	if !t.Amount.IsPositive() {
		return errors.New("transaction amount must be positive")
	}
	return nil
}
