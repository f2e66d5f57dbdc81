// Package storage defines the persistence contract for validated
// addresses.
package storage

import (
	"context"

	"github.com/KaiqueMeireles/case-data-engineer/pkg/transform"
)

// Repository defines persistence operations for validated addresses.
// Insert is idempotent by CEP: running the same batch twice never
// produces duplicate rows.
type Repository interface {
	// CreateSchema ensures the addresses table exists with a unique
	// constraint on cep. With reset it drops and recreates the table
	// first.
	CreateSchema(ctx context.Context, reset bool) error

	// Insert appends only the records whose cep is not already stored.
	// It reports the number skipped as already present instead of
	// failing on them.
	Insert(ctx context.Context, records []transform.Record) (inserted, skipped int, err error)
}
