package storage

import (
	"context"
	"fmt"

	"labtrace/internal/models"
)

// RecordRepo keeps the queryable catalog of processed files. The JSON
// artifacts on disk stay authoritative; these rows are the browse view.
type RecordRepo struct {
	db *DB
}

func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

func (r *RecordRepo) UpsertEntry(ctx context.Context, e models.CatalogEntry) error {
	if err := r.db.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO records (record_id, file_type, orid, source_path, sample_count, status, fail_reason)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, $5, $6, NULLIF($7,''))
ON CONFLICT (record_id)
DO UPDATE SET
  file_type = COALESCE(EXCLUDED.file_type, records.file_type),
  orid = COALESCE(EXCLUDED.orid, records.orid),
  source_path = EXCLUDED.source_path,
  sample_count = EXCLUDED.sample_count,
  status = EXCLUDED.status,
  fail_reason = EXCLUDED.fail_reason,
  updated_at = NOW()`,
		e.RecordID, e.FileType, e.ORID, e.SourcePath, e.SampleCount, e.Status, e.FailReason,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (r *RecordRepo) ListEntries(ctx context.Context, orid, fileType string) ([]models.CatalogEntry, error) {
	if err := r.db.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT record_id, COALESCE(file_type,''), COALESCE(orid,''), source_path, sample_count,
       status, COALESCE(fail_reason,''), created_at, updated_at
FROM records
WHERE ($1 = '' OR orid = $1)
  AND ($2 = '' OR file_type = $2)
ORDER BY created_at DESC`, orid, fileType)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make([]models.CatalogEntry, 0)
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.RecordID, &e.FileType, &e.ORID, &e.SourcePath, &e.SampleCount, &e.Status, &e.FailReason, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (r *RecordRepo) GetEntry(ctx context.Context, recordID string) (models.CatalogEntry, error) {
	if err := r.db.ensureSchema(ctx); err != nil {
		return models.CatalogEntry{}, err
	}
	var e models.CatalogEntry
	err := r.db.Pool.QueryRow(ctx, `
SELECT record_id, COALESCE(file_type,''), COALESCE(orid,''), source_path, sample_count,
       status, COALESCE(fail_reason,''), created_at, updated_at
FROM records
WHERE record_id=$1`, recordID).
		Scan(&e.RecordID, &e.FileType, &e.ORID, &e.SourcePath, &e.SampleCount, &e.Status, &e.FailReason, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("get record by id: %w", err)
	}
	return e, nil
}

func (r *RecordRepo) ListFailedEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	if err := r.db.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT record_id, COALESCE(file_type,''), COALESCE(orid,''), source_path, sample_count,
       status, COALESCE(fail_reason,''), created_at, updated_at
FROM records
WHERE status='failed'
ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list failed records: %w", err)
	}
	defer rows.Close()
	out := make([]models.CatalogEntry, 0)
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.RecordID, &e.FileType, &e.ORID, &e.SourcePath, &e.SampleCount, &e.Status, &e.FailReason, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failed record: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
