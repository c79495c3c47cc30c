package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report — сохранённый отчёт пользователя с расписанием генерации.
//
// Report описывает, какие данные выгружать (Query, Format) и как часто
// (ReportSchedule). Scheduler проверяет next_run_at и отправляет job
// на генерацию, когда время подошло. Сама генерация выполняется
// worker-ом асинхронно.
type Report struct {
	// ID — уникальный идентификатор отчёта.
	ID uuid.UUID `json:"id"`

	// OwnerID — идентификатор пользователя-владельца.
	// Все операции над отчётом проверяют владельца.
	OwnerID string `json:"owner_id"`

	// Name — имя отчёта для удобства.
	Name string `json:"name"`

	// Query — критерии выборки данных для отчёта.
	// Формат строки разбирает генератор, scheduler её не интерпретирует.
	Query string `json:"query,omitempty"`

	// Format — формат выгрузки: "csv" или "xlsx".
	Format string `json:"format"`

	// Schedule — параметры периодической генерации.
	Schedule ReportSchedule `json:"schedule"`

	// LastRunAt — время последней отправки на генерацию.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// CreatedAt — время создания отчёта.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportSchedule — расписание генерации отчёта.
//
// Поддерживаются два режима:
// - По интервалу: каждые IntervalHours часов.
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00).
// Если задан CronExpr, IntervalHours игнорируется.
type ReportSchedule struct {
	// Enabled — флаг активности расписания.
	// Если false, scheduler игнорирует отчёт.
	Enabled bool `json:"enabled"`

	// IntervalHours — интервал в часах между генерациями.
	IntervalHours int `json:"interval_hours,omitempty"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели".
	CronExpr string `json:"cron_expr,omitempty"`

	// Timezone — часовой пояс для вычисления cron-времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone,omitempty"`

	// NextRunAt — время следующей генерации.
	// Scheduler отправляет job, когда now >= NextRunAt,
	// после чего вычисляет новое NextRunAt.
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

// ValidReportFormat проверяет, поддерживается ли формат выгрузки.
func ValidReportFormat(format string) bool {
	switch format {
	case "csv", "xlsx":
		return true
	}
	return false
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *ReportSchedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *ReportSchedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalHours > 0
}

// IsDue проверяет, пора ли отправлять отчёт на генерацию.
func (s *ReportSchedule) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextRunAt == nil {
		return false
	}
	return now.After(*s.NextRunAt) || now.Equal(*s.NextRunAt)
}

// RecordDispatch записывает факт отправки на генерацию.
func (r *Report) RecordDispatch(dispatchedAt, nextRun time.Time) {
	r.LastRunAt = &dispatchedAt
	r.Schedule.NextRunAt = &nextRun
	r.UpdatedAt = dispatchedAt
}
