package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// customerRepository implements domain.CustomerRepository
type customerRepository struct {
	db *DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *DB) domain.CustomerRepository {
	return &customerRepository{db: db}
}

// GetByID retrieves a customer by its ID
func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, created_at
		FROM customers
		WHERE id = $1
	`

	var c domain.Customer
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
		}
		return nil, translate(err, "get customer by ID")
	}

	return &c, nil
}

// FindByEmail retrieves a customer by email, returning nil when none is registered
func (r *customerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, created_at
		FROM customers
		WHERE email = $1 AND email <> ''
	`

	var c domain.Customer
	err := r.db.QueryRowContext(ctx, query, email).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "find customer by email")
	}

	return &c, nil
}

// Create inserts a customer, assigning ID and CreatedAt when unset
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = nowUTC()
	}

	query := `
		INSERT INTO customers (id, first_name, last_name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		customer.Phone,
		customer.CreatedAt,
	)
	if err != nil {
		return translate(err, "create customer")
	}

	return nil
}
