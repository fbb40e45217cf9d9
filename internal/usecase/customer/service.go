// Package customer registers and looks up account owners.
package customer

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/simaogato/ledger-backend/internal/domain"
)

const (
	maxNameLength  = 100
	maxEmailLength = 255
	phoneLength    = 10
)

// RegisterCustomerInput represents the input for registering a customer
type RegisterCustomerInput struct {
	FirstName string
	LastName  string // Optional
	Email     string
	Phone     string // Exactly 10 digits
}

// CustomerService handles customer registration
type CustomerService struct {
	CustomerRepo domain.CustomerRepository

	// Logger receives audit lines for new customers. nil disables them.
	Logger *log.Logger
}

// NewCustomerService creates a new CustomerService instance
func NewCustomerService(customerRepo domain.CustomerRepository) *CustomerService {
	return &CustomerService{
		CustomerRepo: customerRepo,
	}
}

// RegisterCustomer creates a customer record
// Logic:
//  1. Trim every field and lowercase the email
//  2. Validate names, email shape and phone digits
//  3. Reject an email that is already registered
func (s *CustomerService) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*domain.Customer, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := strings.TrimSpace(input.Phone)

	if firstName == "" {
		return nil, fmt.Errorf("%w: first name is required", domain.ErrInvalidArgument)
	}
	if len(firstName) > maxNameLength || len(lastName) > maxNameLength {
		return nil, fmt.Errorf("%w: names must be at most %d characters", domain.ErrInvalidArgument, maxNameLength)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !validPhone(phone) {
		return nil, fmt.Errorf("%w: phone must be exactly %d digits", domain.ErrInvalidArgument, phoneLength)
	}

	existing, err := s.CustomerRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %s already registered", domain.ErrConflict, email)
	}

	c := &domain.Customer{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
	}
	// A concurrent registration of the same email surfaces as ErrConflict here
	if err := s.CustomerRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Printf("registered customer id=%s email=%s", c.ID, c.Email)
	}
	return c, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidArgument)
	}
	return s.CustomerRepo.GetByID(ctx, id)
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidArgument)
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: email must be at most %d characters", domain.ErrInvalidArgument, maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email %q", domain.ErrInvalidArgument, email)
	}
	return nil
}

func validPhone(phone string) bool {
	if len(phone) != phoneLength {
		return false
	}
	for _, c := range phone {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
