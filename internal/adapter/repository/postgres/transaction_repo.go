package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// transactionRepository implements domain.TransactionReader and
// domain.TransactionWriter
type transactionRepository struct {
	q querier
}

// Create appends a transaction row, assigning its ID when unset
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	query := `
		INSERT INTO transactions (id, account_id, type, amount, created_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.AccountID,
		string(tx.Type),
		domain.FormatMoney(tx.Amount),
		tx.Timestamp,
		tx.Note,
	)
	if err != nil {
		return translate(err, "insert transaction")
	}

	return nil
}

// ListByAccount retrieves the transactions of an account, newest first.
// seq breaks ties between rows written in the same instant.
func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT id, account_id, type, amount, created_at, note
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC
	`

	rows, err := r.q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, translate(err, "query transactions")
	}
	defer rows.Close()

	txs := make([]*domain.Transaction, 0)
	for rows.Next() {
		var tx domain.Transaction
		var amountStr string

		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Type, &amountStr, &tx.Timestamp, &tx.Note); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		tx.Amount = domain.NormalizeMoney(amount)

		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}
