package api

import (
	"log/slog"
	"net/http"

	"github.com/shaiso/Metronome/internal/repo"
	"github.com/shaiso/Metronome/internal/scheduler"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	reportRepo *repo.ReportRepo
	runRepo    *repo.RunRepo
	scheduler  *scheduler.Scheduler
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	ReportRepo *repo.ReportRepo
	RunRepo    *repo.RunRepo

	// Scheduler — экземпляр для ручных запусков и статуса.
	// API не вызывает Start: тик-цикл живёт в scheduler-демоне,
	// здесь используются только TriggerManualRun и Status.
	Scheduler *scheduler.Scheduler

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		reportRepo: cfg.ReportRepo,
		runRepo:    cfg.RunRepo,
		scheduler:  cfg.Scheduler,
		logger:     cfg.Logger,
	}
}

// ownerFromRequest извлекает идентификатор владельца из заголовка.
// Реальной аутентификации нет — владельца объявляет вызывающий.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get("X-User-ID")
	if owner == "" {
		Unauthorized(w, "X-User-ID header is required")
		return "", false
	}
	return owner, true
}
