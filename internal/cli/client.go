package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ReportResponse — report из API.
type ReportResponse struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Name          string `json:"name"`
	Query         string `json:"query,omitempty"`
	Format        string `json:"format"`
	Enabled       bool   `json:"enabled"`
	IntervalHours int    `json:"interval_hours,omitempty"`
	CronExpr      string `json:"cron_expr,omitempty"`
	Timezone      string `json:"timezone"`
	NextRunAt     string `json:"next_run_at,omitempty"`
	LastRunAt     string `json:"last_run_at,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// RunResponse — генерация из истории.
type RunResponse struct {
	ID         string `json:"id"`
	ReportID   string `json:"report_id"`
	DispatchID string `json:"dispatch_id"`
	Trigger    string `json:"trigger"`
	Status     string `json:"status"`
	RowCount   int    `json:"row_count,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// TriggerResponse — результат ручного запуска.
type TriggerResponse struct {
	ReportID   string `json:"report_id"`
	DispatchID string `json:"dispatch_id"`
	Trigger    string `json:"trigger"`
}

// SchedulerStatusResponse — состояние планирования.
type SchedulerStatusResponse struct {
	LeaderHeld      bool   `json:"leader_held"`
	Holder          string `json:"holder,omitempty"`
	ExpiresInSec    int64  `json:"expires_in_sec,omitempty"`
	PollIntervalSec int64  `json:"poll_interval_sec"`
}

// --- Request types ---

// CreateReportRequest — создание report.
type CreateReportRequest struct {
	Name          string `json:"name"`
	Query         string `json:"query,omitempty"`
	Format        string `json:"format"`
	IntervalHours int    `json:"interval_hours,omitempty"`
	CronExpr      string `json:"cron_expr,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	Enabled       bool   `json:"enabled"`
}

// UpdateReportRequest — обновление report.
type UpdateReportRequest struct {
	Name          *string `json:"name,omitempty"`
	Query         *string `json:"query,omitempty"`
	Format        *string `json:"format,omitempty"`
	IntervalHours *int    `json:"interval_hours,omitempty"`
	CronExpr      *string `json:"cron_expr,omitempty"`
	Timezone      *string `json:"timezone,omitempty"`
}

// ListReportsOpts — параметры фильтрации reports.
type ListReportsOpts struct {
	Enabled *bool
	Limit   int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Metronome API.
// Владелец передаётся в каждом запросе через заголовок X-User-ID.
type Client struct {
	baseURL    string
	owner      string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL, owner string) *Client {
	return &Client{
		baseURL: baseURL,
		owner:   owner,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Reports ---

// ListReports возвращает отчёты владельца.
func (c *Client) ListReports(opts ListReportsOpts) ([]ReportResponse, error) {
	params := url.Values{}
	if opts.Enabled != nil {
		params.Set("enabled", fmt.Sprintf("%t", *opts.Enabled))
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var reports []ReportResponse
	err := c.list("/api/v1/reports", params, &reports)
	return reports, err
}

// CreateReport создаёт новый отчёт.
func (c *Client) CreateReport(req CreateReportRequest) (*ReportResponse, error) {
	var report ReportResponse
	err := c.post("/api/v1/reports", req, &report)
	return &report, err
}

// GetReport возвращает отчёт по ID.
func (c *Client) GetReport(id string) (*ReportResponse, error) {
	var report ReportResponse
	err := c.get("/api/v1/reports/"+id, &report)
	return &report, err
}

// UpdateReport обновляет отчёт.
func (c *Client) UpdateReport(id string, req UpdateReportRequest) (*ReportResponse, error) {
	var report ReportResponse
	err := c.put("/api/v1/reports/"+id, req, &report)
	return &report, err
}

// DeleteReport удаляет отчёт.
func (c *Client) DeleteReport(id string) error {
	return c.delete("/api/v1/reports/" + id)
}

// EnableReport включает расписание отчёта.
func (c *Client) EnableReport(id string) (*ReportResponse, error) {
	var report ReportResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/reports/"+id+"/enabled", body, &report)
	return &report, err
}

// DisableReport выключает расписание отчёта.
func (c *Client) DisableReport(id string) (*ReportResponse, error) {
	var report ReportResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/reports/"+id+"/enabled", body, &report)
	return &report, err
}

// TriggerReport отправляет отчёт на генерацию вручную.
func (c *Client) TriggerReport(id string) (*TriggerResponse, error) {
	var trigger TriggerResponse
	err := c.post("/api/v1/reports/"+id+"/trigger", nil, &trigger)
	return &trigger, err
}

// ListRuns возвращает историю генераций отчёта.
func (c *Client) ListRuns(reportID string, limit int) ([]RunResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/reports/"+reportID+"/runs", params, &runs)
	return runs, err
}

// --- Scheduler ---

// SchedulerStatus возвращает состояние планирования.
func (c *Client) SchedulerStatus() (*SchedulerStatusResponse, error) {
	var status SchedulerStatusResponse
	err := c.get("/api/v1/scheduler/status", &status)
	return &status, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-User-ID", c.owner)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
