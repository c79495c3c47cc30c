package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunTrigger — источник запуска генерации.
type RunTrigger string

const (
	// RunTriggerScheduled — запуск по расписанию (тик планировщика).
	RunTriggerScheduled RunTrigger = "scheduled"

	// RunTriggerManual — запуск вручную пользователем, минуя lease.
	RunTriggerManual RunTrigger = "manual"
)

// RunStatus — статус генерации отчёта.
// Запись рождается сразу в RUNNING: worker создаёт её, получив job.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Run — одна генерация отчёта.
//
// Запись создаёт worker при получении job из очереди. Scheduler
// историю не пишет — его контракт заканчивается отправкой job.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// ReportID — отчёт, который генерировался.
	ReportID uuid.UUID `json:"report_id"`

	// OwnerID — владелец отчёта на момент запуска.
	OwnerID string `json:"owner_id"`

	// DispatchID — идентификатор сообщения в очереди.
	DispatchID string `json:"dispatch_id"`

	// Trigger — источник запуска: scheduled или manual.
	Trigger RunTrigger `json:"trigger"`

	// Status — текущий статус генерации.
	Status RunStatus `json:"status"`

	// RowCount — количество строк в сгенерированном отчёте.
	RowCount int `json:"row_count,omitempty"`

	// Error — текст ошибки для FAILED.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала обработки worker-ом.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// IsTerminal возвращает true для финальных статусов.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}
