package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// Fixed UUID of the bank's own customer record
var SYS_BANK_CUSTOMER = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// SystemCustomer defines a customer record that must always exist
type SystemCustomer struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// SystemSeeder handles seeding of required system customers
type SystemSeeder struct {
	repo domain.CustomerRepository
}

// NewSystemSeeder creates a new SystemSeeder instance
func NewSystemSeeder(repo domain.CustomerRepository) *SystemSeeder {
	return &SystemSeeder{
		repo: repo,
	}
}

// Seed ensures all system customers exist, creating the missing ones.
// Lookup failures other than not-found abort seeding.
func (s *SystemSeeder) Seed(ctx context.Context) error {
	systemCustomers := []SystemCustomer{
		{
			ID:        SYS_BANK_CUSTOMER,
			FirstName: "System",
			LastName:  "Bank",
			Email:     "operations@bank.internal",
		},
	}

	for _, sys := range systemCustomers {
		_, err := s.repo.GetByID(ctx, sys.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to look up system customer %s: %w", sys.ID, err)
		}

		customer := &domain.Customer{
			ID:        sys.ID,
			FirstName: sys.FirstName,
			LastName:  sys.LastName,
			Email:     sys.Email,
		}
		// Another instance may have seeded it in the meantime
		if err := s.repo.Create(ctx, customer); err != nil && !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("failed to create system customer %s: %w", sys.ID, err)
		}
	}

	return nil
}
