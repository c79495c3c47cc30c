package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
)

// Report DTOs

// CreateReportRequest — запрос на создание report.
type CreateReportRequest struct {
	Name          string `json:"name"`
	Query         string `json:"query,omitempty"`
	Format        string `json:"format"`
	IntervalHours int    `json:"interval_hours,omitempty"`
	CronExpr      string `json:"cron_expr,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	Enabled       bool   `json:"enabled"`
}

// UpdateReportRequest — запрос на обновление report.
type UpdateReportRequest struct {
	Name          *string `json:"name,omitempty"`
	Query         *string `json:"query,omitempty"`
	Format        *string `json:"format,omitempty"`
	IntervalHours *int    `json:"interval_hours,omitempty"`
	CronExpr      *string `json:"cron_expr,omitempty"`
	Timezone      *string `json:"timezone,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение расписания.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ReportResponse — ответ с report.
type ReportResponse struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Name          string     `json:"name"`
	Query         string     `json:"query,omitempty"`
	Format        string     `json:"format"`
	Enabled       bool       `json:"enabled"`
	IntervalHours int        `json:"interval_hours,omitempty"`
	CronExpr      string     `json:"cron_expr,omitempty"`
	Timezone      string     `json:"timezone"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ReportFromDomain конвертирует domain.Report в ReportResponse.
func ReportFromDomain(r *domain.Report) ReportResponse {
	if r == nil {
		return ReportResponse{}
	}
	return ReportResponse{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Name:          r.Name,
		Query:         r.Query,
		Format:        r.Format,
		Enabled:       r.Schedule.Enabled,
		IntervalHours: r.Schedule.IntervalHours,
		CronExpr:      r.Schedule.CronExpr,
		Timezone:      r.Schedule.Timezone,
		NextRunAt:     r.Schedule.NextRunAt,
		LastRunAt:     r.LastRunAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// Run DTOs

// RunResponse — ответ с генерацией из истории.
type RunResponse struct {
	ID         uuid.UUID  `json:"id"`
	ReportID   uuid.UUID  `json:"report_id"`
	DispatchID string     `json:"dispatch_id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	RowCount   int        `json:"row_count,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		ReportID:   r.ReportID,
		DispatchID: r.DispatchID,
		Trigger:    string(r.Trigger),
		Status:     string(r.Status),
		RowCount:   r.RowCount,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		CreatedAt:  r.CreatedAt,
	}
}

// Scheduler DTOs

// TriggerResponse — ответ на ручной запуск генерации.
type TriggerResponse struct {
	ReportID   uuid.UUID `json:"report_id"`
	DispatchID string    `json:"dispatch_id"`
	Trigger    string    `json:"trigger"`
}

// SchedulerStatusResponse — состояние планирования по данным хранилища.
type SchedulerStatusResponse struct {
	// LeaderHeld — удерживает ли какой-то экземпляр живую lease.
	LeaderHeld bool `json:"leader_held"`

	// Holder — идентификатор владельца lease.
	Holder string `json:"holder,omitempty"`

	// ExpiresInSec — секунд до истечения lease.
	ExpiresInSec int64 `json:"expires_in_sec,omitempty"`

	// PollIntervalSec — интервал тиков планировщика.
	PollIntervalSec int64 `json:"poll_interval_sec"`
}
