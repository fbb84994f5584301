package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool

	schemaMu       sync.Mutex
	schemaPrepared bool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) ensureSchema(ctx context.Context) error {
	d.schemaMu.Lock()
	defer d.schemaMu.Unlock()

	if d.schemaPrepared {
		return nil
	}

	// Keep migrations resilient even if the operator forgot to run them.
	ddl := `
CREATE TABLE IF NOT EXISTS records (
  record_id TEXT PRIMARY KEY,
  file_type TEXT,
  orid TEXT,
  source_path TEXT NOT NULL,
  sample_count INT NOT NULL DEFAULT 0,
  status TEXT NOT NULL CHECK (status IN ('pending','extracted','skipped','failed')),
  fail_reason TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_records_orid ON records(orid);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(status, updated_at DESC);

CREATE TABLE IF NOT EXISTS history_runs (
  run_id TEXT PRIMARY KEY,
  sample_id TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('running','completed','failed')),
  out_path TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_history_runs_sample ON history_runs(sample_id, created_at DESC);
`
	if _, err := d.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	d.schemaPrepared = true
	return nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}
