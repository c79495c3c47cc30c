package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Metronome/internal/domain"
)

// RunRepo — репозиторий истории генераций.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create создаёт запись о генерации.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO report_runs (id, report_id, owner_id, dispatch_id, trigger, status,
		                         row_count, error, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.ReportID,
		run.OwnerID,
		run.DispatchID,
		string(run.Trigger),
		string(run.Status),
		run.RowCount,
		nullString(run.Error),
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish записывает результат генерации.
func (r *RunRepo) Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, rowCount int, errMsg string, finishedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE report_runs
		SET status = $2, row_count = $3, error = $4, finished_at = $5
		WHERE id = $1
	`, id, string(status), rowCount, nullString(errMsg), finishedAt)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByReport возвращает генерации отчёта, новые первыми.
func (r *RunRepo) ListByReport(ctx context.Context, reportID uuid.UUID, ownerID string, limit int) ([]domain.Run, error) {
	query := `
		SELECT id, report_id, owner_id, dispatch_id, trigger, status,
		       row_count, error, started_at, finished_at, created_at
		FROM report_runs
		WHERE report_id = $1 AND owner_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, reportID, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var trigger, status string
	var errMsg *string

	err := row.Scan(
		&run.ID,
		&run.ReportID,
		&run.OwnerID,
		&run.DispatchID,
		&trigger,
		&status,
		&run.RowCount,
		&errMsg,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Trigger = domain.RunTrigger(trigger)
	run.Status = domain.RunStatus(status)
	if errMsg != nil {
		run.Error = *errMsg
	}

	return &run, nil
}
