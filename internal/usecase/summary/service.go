package summary

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// CustomerSummary represents the aggregated position of one customer
type CustomerSummary struct {
	CustomerID     uuid.UUID
	AccountCount   int
	TotalBalance   decimal.Decimal
	TotalAvailable decimal.Decimal
	ByType         map[domain.AccountType]decimal.Decimal
}

// SummaryService handles read-only customer reporting
type SummaryService struct {
	AccountRepo domain.AccountReader
}

// NewSummaryService creates a new SummaryService instance
func NewSummaryService(accountRepo domain.AccountReader) *SummaryService {
	return &SummaryService{
		AccountRepo: accountRepo,
	}
}

// GetCustomerSummary totals the accounts of a customer
// Logic:
//   - TotalBalance: sum of all balances, negative CURRENT balances included
//   - TotalAvailable: sum of balance + overdraft headroom per account
//   - ByType: balance sum per account type
//
// Reads take no locks, so the result may trail in-flight mutations.
func (s *SummaryService) GetCustomerSummary(ctx context.Context, customerID uuid.UUID) (*CustomerSummary, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidArgument)
	}

	accounts, err := s.AccountRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	result := &CustomerSummary{
		CustomerID:     customerID,
		AccountCount:   len(accounts),
		TotalBalance:   domain.NormalizeMoney(decimal.Zero),
		TotalAvailable: domain.NormalizeMoney(decimal.Zero),
		ByType:         make(map[domain.AccountType]decimal.Decimal),
	}
	for _, acc := range accounts {
		result.TotalBalance = result.TotalBalance.Add(acc.Balance)
		result.TotalAvailable = result.TotalAvailable.Add(acc.Available())
		result.ByType[acc.Type] = result.ByType[acc.Type].Add(acc.Balance)
	}

	return result, nil
}
