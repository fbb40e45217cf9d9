package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the account owner as known to the customer directory.
// The ledger only relies on its existence.
type Customer struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string // stored lowercase, unique when set
	Phone     string
	CreatedAt time.Time
}
