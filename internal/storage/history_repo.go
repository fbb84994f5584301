package storage

import (
	"context"
	"fmt"

	"labtrace/internal/models"
)

// HistoryRepo tracks sample history runs so the API can report status after
// the workflow finishes.
type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) InsertRun(ctx context.Context, run models.HistoryRun) error {
	if err := r.db.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO history_runs (run_id, sample_id, status, out_path)
VALUES ($1, $2, $3, NULLIF($4,''))
ON CONFLICT (run_id)
DO UPDATE SET
  status = EXCLUDED.status,
  out_path = COALESCE(EXCLUDED.out_path, history_runs.out_path)`,
		run.RunID, run.SampleID, run.Status, run.OutPath,
	)
	if err != nil {
		return fmt.Errorf("upsert history run: %w", err)
	}
	return nil
}

func (r *HistoryRepo) GetRun(ctx context.Context, runID string) (models.HistoryRun, error) {
	if err := r.db.ensureSchema(ctx); err != nil {
		return models.HistoryRun{}, err
	}
	var run models.HistoryRun
	err := r.db.Pool.QueryRow(ctx, `
SELECT run_id, sample_id, status, COALESCE(out_path,''), created_at
FROM history_runs
WHERE run_id=$1`, runID).
		Scan(&run.RunID, &run.SampleID, &run.Status, &run.OutPath, &run.CreatedAt)
	if err != nil {
		return models.HistoryRun{}, fmt.Errorf("get history run: %w", err)
	}
	return run, nil
}

func (r *HistoryRepo) ListRunsBySample(ctx context.Context, sampleID string) ([]models.HistoryRun, error) {
	if err := r.db.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT run_id, sample_id, status, COALESCE(out_path,''), created_at
FROM history_runs
WHERE sample_id=$1
ORDER BY created_at DESC`, sampleID)
	if err != nil {
		return nil, fmt.Errorf("list history runs: %w", err)
	}
	defer rows.Close()
	out := make([]models.HistoryRun, 0)
	for rows.Next() {
		var run models.HistoryRun
		if err := rows.Scan(&run.RunID, &run.SampleID, &run.Status, &run.OutPath, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
