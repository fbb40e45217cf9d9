package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// customerRepository implements domain.CustomerRepository
type customerRepository struct {
	db  *DB
	now func() time.Time
}

const selectCustomer = `SELECT id, first_name, last_name, email, phone, created_at FROM customers`

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, selectCustomer+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
		}
		return nil, translate(err, "get customer by ID")
	}
	return c, nil
}

func (r *customerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, selectCustomer+` WHERE email = ? AND email <> ''`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "find customer by email")
	}
	return c, nil
}

func scanCustomer(row *sql.Row) (*domain.Customer, error) {
	var c domain.Customer
	var createdAt int64
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnix(createdAt)
	return &c, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (id, first_name, last_name, email, phone, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		customer.Phone,
		toUnix(customer.CreatedAt),
	)
	if err != nil {
		return translate(err, "create customer")
	}
	return nil
}
