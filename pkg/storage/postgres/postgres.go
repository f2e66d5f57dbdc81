// Package postgres implements the address repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/KaiqueMeireles/case-data-engineer/pkg/transform"
)

// ErrSchemaNotReady is returned when Insert runs before CreateSchema.
var ErrSchemaNotReady = errors.New("schema not created: call CreateSchema first")

// Repository persists validated addresses. Writes happen from a single
// caller after fetching and validation complete, so no locking is
// needed here.
type Repository struct {
	pool        *pgxpool.Pool
	schemaReady bool
	logger      zerolog.Logger
}

// NewRepository wraps an existing pool. Call CreateSchema before
// inserting.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:   pool,
		logger: log.With().Str("component", "postgres").Logger(),
	}
}

// CreateSchema idempotently ensures the addresses table with its unique
// cep constraint. With reset it drops existing data first.
func (r *Repository) CreateSchema(ctx context.Context, reset bool) error {
	if reset {
		if _, err := r.pool.Exec(ctx, "DROP TABLE IF EXISTS addresses;"); err != nil {
			return fmt.Errorf("drop addresses table: %w", err)
		}
		r.logger.Info().Msg("Addresses table dropped (reset)")
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS addresses (
  id BIGSERIAL PRIMARY KEY,
  cep TEXT NOT NULL UNIQUE,
  street TEXT,
  complement TEXT,
  unit TEXT,
  neighborhood TEXT,
  city TEXT,
  state_code TEXT,
  state_name TEXT,
  region TEXT,
  ibge TEXT,
  gia TEXT,
  area_code TEXT,
  siafi TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create addresses table: %w", err)
	}

	r.schemaReady = true
	r.logger.Info().Msg("Addresses schema ready")
	return nil
}

// Insert appends the records whose cep is not already stored and reports
// how many were skipped as already present. Together with the existing-
// key read this behaves as an idempotent upsert-by-key across reruns.
func (r *Repository) Insert(ctx context.Context, records []transform.Record) (inserted, skipped int, err error) {
	if !r.schemaReady {
		return 0, 0, ErrSchemaNotReady
	}
	if len(records) == 0 {
		r.logger.Info().Msg("No records to insert")
		return 0, 0, nil
	}

	existing, err := r.existingKeys(ctx)
	if err != nil {
		return 0, 0, err
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		if _, ok := existing[rec.Cep]; ok {
			skipped++
			continue
		}
		batch.Queue(`
INSERT INTO addresses (cep, street, complement, unit, neighborhood, city,
  state_code, state_name, region, ibge, gia, area_code, siafi)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (cep) DO NOTHING;`,
			rec.Cep,
			nullable(rec.Street),
			nullable(rec.Complement),
			nullable(rec.Unit),
			nullable(rec.Neighborhood),
			nullable(rec.City),
			nullable(rec.StateCode),
			nullable(rec.StateName),
			nullable(rec.Region),
			nullable(rec.IBGE),
			nullable(rec.GIA),
			nullable(rec.AreaCode),
			nullable(rec.SIAFI),
		)
		inserted++
	}

	if skipped > 0 {
		r.logger.Warn().
			Int("skipped", skipped).
			Msg("CEPs already stored, skipping")
	}

	if batch.Len() > 0 {
		if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
			return 0, 0, fmt.Errorf("insert addresses: %w", err)
		}
	}

	r.logger.Info().
		Int("inserted", inserted).
		Int("skipped", skipped).
		Msg("Address insert complete")
	return inserted, skipped, nil
}

// existingKeys reads the set of CEPs already stored.
func (r *Repository) existingKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, "SELECT cep FROM addresses;")
	if err != nil {
		return nil, fmt.Errorf("read existing ceps: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var cep string
		if err := rows.Scan(&cep); err != nil {
			return nil, fmt.Errorf("scan cep: %w", err)
		}
		existing[cep] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ceps: %w", err)
	}
	return existing, nil
}

// nullable maps the absence marker to a SQL NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// NewDB opens a pgx pool with tuned defaults. Writes are confined to a
// single caller, so the pool stays small.
func NewDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}
