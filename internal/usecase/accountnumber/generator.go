// Package accountnumber generates unique external account numbers
package accountnumber

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// DefaultMaxAttempts caps collision retries. A collision at 12 digits is
// already unlikely, so hitting the cap signals a broken random source.
const DefaultMaxAttempts = 10

// AccountNumberLookup is the store query used for collision checks
type AccountNumberLookup interface {
	FindByAccountNumber(ctx context.Context, number string) (*domain.Account, error)
}

// Generator draws random fixed-length numeric account numbers
type Generator struct {
	Lookup      AccountNumberLookup
	Random      io.Reader
	MaxAttempts int
}

// NewGenerator creates a Generator. A nil random source means crypto/rand.
func NewGenerator(lookup AccountNumberLookup, random io.Reader) *Generator {
	if random == nil {
		random = rand.Reader
	}
	return &Generator{
		Lookup:      lookup,
		Random:      random,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Next returns a number that no stored account uses yet
func (g *Generator) Next(ctx context.Context) (string, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for i := 0; i < attempts; i++ {
		candidate, err := g.candidate()
		if err != nil {
			return "", err
		}

		existing, err := g.Lookup.FindByAccountNumber(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check account number: %w", err)
		}
		if existing == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", domain.ErrAccountNumberExhausted, attempts)
}

// candidate reads AccountNumberLength uniform decimal digits.
// Bytes >= 250 are rejected so every digit has the same probability;
// each refill reads only as many bytes as digits are still missing.
func (g *Generator) candidate() (string, error) {
	digits := make([]byte, 0, domain.AccountNumberLength)
	buf := make([]byte, domain.AccountNumberLength)

	for len(digits) < domain.AccountNumberLength {
		chunk := buf[:domain.AccountNumberLength-len(digits)]
		if _, err := io.ReadFull(g.Random, chunk); err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		for _, b := range chunk {
			if b >= 250 {
				continue
			}
			digits = append(digits, '0'+b%10)
		}
	}

	return string(digits), nil
}
