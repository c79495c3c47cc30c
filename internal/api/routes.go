package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Reports
	mux.Handle("GET /api/v1/reports", chain(http.HandlerFunc(h.ListReports)))
	mux.Handle("POST /api/v1/reports", chain(http.HandlerFunc(h.CreateReport)))
	mux.Handle("GET /api/v1/reports/{id}", chain(http.HandlerFunc(h.GetReport)))
	mux.Handle("PUT /api/v1/reports/{id}", chain(http.HandlerFunc(h.UpdateReport)))
	mux.Handle("DELETE /api/v1/reports/{id}", chain(http.HandlerFunc(h.DeleteReport)))
	mux.Handle("PUT /api/v1/reports/{id}/enabled", chain(http.HandlerFunc(h.SetReportEnabled)))

	// Runs
	mux.Handle("POST /api/v1/reports/{id}/trigger", chain(http.HandlerFunc(h.TriggerReport)))
	mux.Handle("GET /api/v1/reports/{id}/runs", chain(http.HandlerFunc(h.ListReportRuns)))

	// Scheduler
	mux.Handle("GET /api/v1/scheduler/status", chain(http.HandlerFunc(h.GetSchedulerStatus)))
}
