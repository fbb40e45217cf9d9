package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// PostgreSQL SQLSTATE codes the store translates
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeLockNotAvailable    = "55P03"
	codeDeadlockDetected    = "40P01"
	codeSerialization       = "40001"
)

// translate maps driver errors onto domain error kinds, wrapping op
func translate(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s: %s", domain.ErrConflict, op, pqErr.Message)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s: %s", domain.ErrInvalidArgument, op, pqErr.Message)
		case codeLockNotAvailable, codeDeadlockDetected, codeSerialization:
			return fmt.Errorf("%w: %s: %s", domain.ErrLockTimeout, op, pqErr.Message)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
