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

// ReportRepo — репозиторий для работы с reports.
type ReportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo создаёт новый ReportRepo.
func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

const reportColumns = `id, owner_id, name, query, format, enabled, interval_hours,
	       cron_expr, timezone, next_run_at, last_run_at, created_at, updated_at`

// Create создаёт новый report.
func (r *ReportRepo) Create(ctx context.Context, report *domain.Report) error {
	query := `
		INSERT INTO reports (id, owner_id, name, query, format, enabled, interval_hours,
		                     cron_expr, timezone, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		report.ID,
		report.OwnerID,
		report.Name,
		nullString(report.Query),
		report.Format,
		report.Schedule.Enabled,
		nullInt(report.Schedule.IntervalHours),
		nullString(report.Schedule.CronExpr),
		report.Schedule.Timezone,
		report.Schedule.NextRunAt,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetByOwner возвращает report по ID с проверкой владельца.
// Возвращает ErrNotFound, если записи нет или владелец не совпадает.
func (r *ReportRepo) GetByOwner(ctx context.Context, id uuid.UUID, ownerID string) (*domain.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1 AND owner_id = $2
	`
	return scanReport(r.pool.QueryRow(ctx, query, id, ownerID))
}

// List возвращает список reports с фильтрацией.
func (r *ReportRepo) List(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE ($1::text IS NULL OR owner_id = $1)
		  AND ($2::boolean IS NULL OR enabled = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.OwnerID),
		filter.Enabled,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// ListDue возвращает reports, готовые к генерации: enabled и
// next_run_at <= now, самые просроченные первыми.
func (r *ReportRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE enabled = true
		  AND next_run_at IS NOT NULL
		  AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// Update обновляет report.
func (r *ReportRepo) Update(ctx context.Context, report *domain.Report) error {
	query := `
		UPDATE reports
		SET name = $3, query = $4, format = $5, enabled = $6, interval_hours = $7,
		    cron_expr = $8, timezone = $9, next_run_at = $10, last_run_at = $11,
		    updated_at = $12
		WHERE id = $1 AND owner_id = $2
	`
	result, err := r.pool.Exec(ctx, query,
		report.ID,
		report.OwnerID,
		report.Name,
		nullString(report.Query),
		report.Format,
		report.Schedule.Enabled,
		nullInt(report.Schedule.IntervalHours),
		nullString(report.Schedule.CronExpr),
		report.Schedule.Timezone,
		report.Schedule.NextRunAt,
		report.LastRunAt,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDispatched сдвигает расписание после отправки на генерацию:
// next_run_at = nextRun, last_run_at = dispatchedAt.
// Только эти поля пишет scheduler — остальное принадлежит CRUD-слою.
func (r *ReportRepo) MarkDispatched(ctx context.Context, id uuid.UUID, ownerID string, nextRun, dispatchedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE reports
		SET next_run_at = $3, last_run_at = $4, updated_at = $4
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID, nextRun, dispatchedAt)
	if err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет report владельца.
func (r *ReportRepo) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled включает/выключает расписание report.
func (r *ReportRepo) SetEnabled(ctx context.Context, id uuid.UUID, ownerID string, enabled bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE reports SET enabled = $3, updated_at = NOW() WHERE id = $1 AND owner_id = $2
	`, id, ownerID, enabled)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// ReportFilter — параметры фильтрации reports.
type ReportFilter struct {
	OwnerID string
	Enabled *bool
	Limit   int
	Offset  int
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var rep domain.Report
	var query, cronExpr *string
	var intervalHours *int

	err := row.Scan(
		&rep.ID,
		&rep.OwnerID,
		&rep.Name,
		&query,
		&rep.Format,
		&rep.Schedule.Enabled,
		&intervalHours,
		&cronExpr,
		&rep.Schedule.Timezone,
		&rep.Schedule.NextRunAt,
		&rep.LastRunAt,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}

	if query != nil {
		rep.Query = *query
	}
	if cronExpr != nil {
		rep.Schedule.CronExpr = *cronExpr
	}
	if intervalHours != nil {
		rep.Schedule.IntervalHours = *intervalHours
	}

	return &rep, nil
}

func collectReports(rows pgx.Rows) ([]domain.Report, error) {
	var reports []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullInt возвращает nil для нулевого int.
func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}
