package sqlite

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

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, type, amount, created_at, note) VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.AccountID,
		string(tx.Type),
		domain.FormatMoney(tx.Amount),
		toUnix(tx.Timestamp),
		tx.Note,
	)
	if err != nil {
		return translate(err, "insert transaction")
	}
	return nil
}

// ListByAccount returns newest first; seq orders rows with equal timestamps
func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT id, account_id, type, amount, created_at, note
		FROM transactions
		WHERE account_id = ?
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
		var createdAt int64

		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Type, &amountStr, &createdAt, &tx.Note); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		tx.Amount = domain.NormalizeMoney(amount)
		tx.Timestamp = fromUnix(createdAt)

		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}
