// Package ledger appends and lists the immutable transaction entries of
// an account.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// Recorder handles ledger entry recording.
// It never checks balances; that belongs to the account engine.
type Recorder struct {
	TransactionRepo domain.TransactionReader
	Now             func() time.Time
}

// NewRecorder creates a new Recorder instance
func NewRecorder(transactionRepo domain.TransactionReader) *Recorder {
	return &Recorder{
		TransactionRepo: transactionRepo,
		Now:             time.Now,
	}
}

// Record appends one transaction for account through w.
// The timestamp is taken at call time; the ID is assigned by w.
func (r *Recorder) Record(
	ctx context.Context,
	w domain.TransactionWriter,
	account *domain.Account,
	amount decimal.Decimal,
	txType domain.TransactionType,
	note string,
) (*domain.Transaction, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: account is required", domain.ErrInvalidArgument)
	}

	tx := &domain.Transaction{
		AccountID: account.ID,
		Type:      txType,
		Amount:    amount,
		Timestamp: r.Now(),
		Note:      note,
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, err.Error())
	}

	if err := w.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record %s transaction: %w", txType, err)
	}

	return tx, nil
}

// List retrieves the transactions of an account, newest first.
// It takes no locks and may trail a unit of work that is still running.
func (r *Recorder) List(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidArgument)
	}

	txs, err := r.TransactionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
