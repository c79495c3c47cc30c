package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/repo"
)

// TriggerReport отправляет отчёт на генерацию вручную, минуя расписание.
// POST /api/v1/reports/{id}/trigger
//
// Запуск не требует lease и не сдвигает next_run_at. Ошибки отправки
// возвращаются вызывающему.
func (h *Handler) TriggerReport(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid report id")
		return
	}

	dispatchID, err := h.scheduler.TriggerManualRun(r.Context(), id, owner)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			NotFound(w, "report not found")
			return
		}
		h.logger.Error("manual trigger failed", "report_id", id, "error", err)
		Unavailable(w, "failed to enqueue report job")
		return
	}

	Accepted(w, TriggerResponse{
		ReportID:   id,
		DispatchID: dispatchID,
		Trigger:    string(domain.RunTriggerManual),
	})
}

// GetSchedulerStatus возвращает состояние планирования по данным
// хранилища: кто удерживает lease и надолго ли.
// GET /api/v1/scheduler/status
func (h *Handler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	status := h.scheduler.Status(r.Context())

	if status.Lease.Error != "" {
		Unavailable(w, "lock store unreachable")
		return
	}

	resp := SchedulerStatusResponse{
		LeaderHeld:      status.Lease.Exists && status.Lease.ExpiresInSec > 0,
		Holder:          status.Lease.Holder,
		PollIntervalSec: status.PollIntervalSec,
	}
	if resp.LeaderHeld {
		resp.ExpiresInSec = status.Lease.ExpiresInSec
	}

	Success(w, resp)
}
