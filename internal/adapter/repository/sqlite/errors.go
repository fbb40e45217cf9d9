package sqlite

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// translate maps driver errors onto domain error kinds, wrapping op
func translate(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %s: %s", domain.ErrLockTimeout, op, sqliteErr.Error())
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s: %s", domain.ErrConflict, op, sqliteErr.Error())
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s: %s", domain.ErrInvalidArgument, op, sqliteErr.Error())
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
