package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/repo"
	"github.com/shaiso/Metronome/internal/scheduler"
)

// ListReports возвращает отчёты владельца.
// GET /api/v1/reports?enabled=...&limit=...&offset=...
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	filter := repo.ReportFilter{OwnerID: owner, Limit: 50}

	if enabledStr := r.URL.Query().Get("enabled"); enabledStr != "" {
		enabled := enabledStr == "true"
		filter.Enabled = &enabled
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = parseIntDefault(limitStr, 50)
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = parseIntDefault(offsetStr, 0)
	}

	reports, err := h.reportRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ReportResponse, len(reports))
	for i := range reports {
		result[i] = ReportFromDomain(&reports[i])
	}

	List(w, result, len(result))
}

// CreateReport создаёт новый отчёт с расписанием.
// POST /api/v1/reports
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if !domain.ValidReportFormat(req.Format) {
		BadRequest(w, "format must be csv or xlsx")
		return
	}
	if req.CronExpr == "" && req.IntervalHours <= 0 {
		BadRequest(w, "either cron_expr or interval_hours is required")
		return
	}
	if req.CronExpr != "" {
		if err := scheduler.ValidateCronExpr(req.CronExpr); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	now := time.Now().UTC()
	report := &domain.Report{
		ID:      uuid.New(),
		OwnerID: owner,
		Name:    req.Name,
		Query:   req.Query,
		Format:  req.Format,
		Schedule: domain.ReportSchedule{
			Enabled:       req.Enabled,
			IntervalHours: req.IntervalHours,
			CronExpr:      req.CronExpr,
			Timezone:      timezone,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	nextRun, err := scheduler.InitialNextRun(&report.Schedule)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	report.Schedule.NextRunAt = &nextRun

	if err := h.reportRepo.Create(r.Context(), report); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, ReportFromDomain(report))
}

// GetReport возвращает отчёт по ID.
// GET /api/v1/reports/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid report id")
		return
	}

	report, err := h.reportRepo.GetByOwner(r.Context(), id, owner)
	if HandleRepoError(w, h.logger, err, "report not found") {
		return
	}

	Success(w, ReportFromDomain(report))
}

// UpdateReport обновляет отчёт.
// PUT /api/v1/reports/{id}
//
// Изменение расписания пересчитывает next_run_at от текущего момента.
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid report id")
		return
	}

	var req UpdateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	report, err := h.reportRepo.GetByOwner(r.Context(), id, owner)
	if HandleRepoError(w, h.logger, err, "report not found") {
		return
	}

	scheduleChanged := false

	if req.Name != nil {
		report.Name = *req.Name
	}
	if req.Query != nil {
		report.Query = *req.Query
	}
	if req.Format != nil {
		if !domain.ValidReportFormat(*req.Format) {
			BadRequest(w, "format must be csv or xlsx")
			return
		}
		report.Format = *req.Format
	}
	if req.IntervalHours != nil {
		report.Schedule.IntervalHours = *req.IntervalHours
		scheduleChanged = true
	}
	if req.CronExpr != nil {
		if *req.CronExpr != "" {
			if err := scheduler.ValidateCronExpr(*req.CronExpr); err != nil {
				BadRequest(w, err.Error())
				return
			}
		}
		report.Schedule.CronExpr = *req.CronExpr
		scheduleChanged = true
	}
	if req.Timezone != nil {
		report.Schedule.Timezone = *req.Timezone
		scheduleChanged = true
	}

	if scheduleChanged {
		nextRun, err := scheduler.InitialNextRun(&report.Schedule)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		report.Schedule.NextRunAt = &nextRun
	}

	report.UpdatedAt = time.Now().UTC()

	if err := h.reportRepo.Update(r.Context(), report); HandleRepoError(w, h.logger, err, "report not found") {
		return
	}

	Success(w, ReportFromDomain(report))
}

// DeleteReport удаляет отчёт.
// DELETE /api/v1/reports/{id}
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid report id")
		return
	}

	if err := h.reportRepo.Delete(r.Context(), id, owner); HandleRepoError(w, h.logger, err, "report not found") {
		return
	}

	NoContent(w)
}

// SetReportEnabled включает или выключает расписание отчёта.
// PUT /api/v1/reports/{id}/enabled
func (h *Handler) SetReportEnabled(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid report id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.reportRepo.SetEnabled(r.Context(), id, owner, req.Enabled); HandleRepoError(w, h.logger, err, "report not found") {
		return
	}

	report, err := h.reportRepo.GetByOwner(r.Context(), id, owner)
	if HandleRepoError(w, h.logger, err, "report not found") {
		return
	}

	Success(w, ReportFromDomain(report))
}

// ListReportRuns возвращает историю генераций отчёта, новые первыми.
// GET /api/v1/reports/{id}/runs?limit=...
func (h *Handler) ListReportRuns(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid report id")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit = parseIntDefault(limitStr, 50)
	}

	// Проверяем владение отчётом
	if _, err := h.reportRepo.GetByOwner(r.Context(), id, owner); HandleRepoError(w, h.logger, err, "report not found") {
		return
	}

	runs, err := h.runRepo.ListByReport(r.Context(), id, owner, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i := range runs {
		result[i] = RunFromDomain(runs[i])
	}

	List(w, result, len(result))
}

// parseIntDefault парсит int, возвращая default при ошибке.
func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
