package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/mq"
	"github.com/shaiso/Metronome/internal/repo"
)

// --- Fakes ---

type fakeReportStore struct {
	reports map[uuid.UUID]domain.Report
}

func (s *fakeReportStore) GetByOwner(ctx context.Context, id uuid.UUID, ownerID string) (*domain.Report, error) {
	rec, ok := s.reports[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, repo.ErrNotFound
	}
	return &rec, nil
}

type finishCall struct {
	id       uuid.UUID
	status   domain.RunStatus
	rowCount int
	errMsg   string
}

type fakeRunStore struct {
	mu        sync.Mutex
	created   []domain.Run
	finishes  []finishCall
	createErr error
}

func (s *fakeRunStore) Create(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *run)
	return nil
}

func (s *fakeRunStore) Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, rowCount int, errMsg string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishes = append(s.finishes, finishCall{id: id, status: status, rowCount: rowCount, errMsg: errMsg})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReport(ownerID, format, query string) domain.Report {
	return domain.Report{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    "daily-sales",
		Query:   query,
		Format:  format,
		Schedule: domain.ReportSchedule{
			Enabled:       true,
			IntervalHours: 24,
			Timezone:      "UTC",
		},
	}
}

func newTestWorker(reports *fakeReportStore, runs *fakeRunStore) *Worker {
	return New(Config{
		Reports: reports,
		Runs:    runs,
		Logger:  testLogger(),
	})
}

// --- StubGenerator Tests ---

func TestStubGenerator_Success(t *testing.T) {
	gen := &StubGenerator{}
	report := testReport("alice", "csv", "select * from sales")

	result, err := gen.Generate(context.Background(), &report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected generation error: %s", result.Error)
	}
	if result.RowCount < 0 {
		t.Errorf("row count should be non-negative, got %d", result.RowCount)
	}

	// Детерминизм: тот же query — тот же row count
	again, err := gen.Generate(context.Background(), &report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.RowCount != result.RowCount {
		t.Errorf("row count should be deterministic: %d vs %d", result.RowCount, again.RowCount)
	}
}

func TestStubGenerator_UnknownFormat(t *testing.T) {
	gen := &StubGenerator{}
	report := testReport("alice", "pdf", "select 1")

	_, err := gen.Generate(context.Background(), &report)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestStubGenerator_EmptyQuery(t *testing.T) {
	gen := &StubGenerator{}
	report := testReport("alice", "csv", "   ")

	result, err := gen.Generate(context.Background(), &report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error == "" {
		t.Error("empty query should be a logical generation error")
	}
}

func TestStubGenerator_CancelledContext(t *testing.T) {
	gen := &StubGenerator{}
	report := testReport("alice", "csv", "select 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, &report)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestValidReportFormat(t *testing.T) {
	if !domain.ValidReportFormat("csv") || !domain.ValidReportFormat("xlsx") {
		t.Error("csv and xlsx should be valid formats")
	}
	if domain.ValidReportFormat("pdf") || domain.ValidReportFormat("") {
		t.Error("pdf and empty string should not be valid formats")
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	// Жизненный цикл run: RUNNING → SUCCEEDED | FAILED, других фаз нет
	if domain.RunStatusRunning.IsTerminal() {
		t.Error("RUNNING is not a terminal status")
	}
	if !domain.RunStatusSucceeded.IsTerminal() {
		t.Error("SUCCEEDED is a terminal status")
	}
	if !domain.RunStatusFailed.IsTerminal() {
		t.Error("FAILED is a terminal status")
	}
}

// --- processJob Tests ---

func TestWorker_ProcessJob_Success(t *testing.T) {
	report := testReport("alice", "csv", "select * from sales")
	reports := &fakeReportStore{reports: map[uuid.UUID]domain.Report{report.ID: report}}
	runs := &fakeRunStore{}
	w := newTestWorker(reports, runs)

	payload := &mq.ReportJobPayload{
		ReportID: report.ID,
		OwnerID:  "alice",
		Trigger:  domain.RunTriggerScheduled,
	}

	if err := w.processJob(context.Background(), "dispatch-1", payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runs.created) != 1 {
		t.Fatalf("expected 1 run record, got %d", len(runs.created))
	}
	run := runs.created[0]
	if run.Status != domain.RunStatusRunning {
		t.Errorf("run should start as RUNNING, got %s", run.Status)
	}
	if run.DispatchID != "dispatch-1" {
		t.Errorf("run should carry the dispatch id, got %s", run.DispatchID)
	}
	if run.Trigger != domain.RunTriggerScheduled {
		t.Errorf("run should carry the trigger, got %s", run.Trigger)
	}
	if run.StartedAt == nil {
		t.Error("started_at should be set")
	}

	if len(runs.finishes) != 1 {
		t.Fatalf("expected 1 finish call, got %d", len(runs.finishes))
	}
	fin := runs.finishes[0]
	if fin.status != domain.RunStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", fin.status)
	}
	if fin.id != run.ID {
		t.Error("finish should reference the created run")
	}
	if fin.rowCount < 0 {
		t.Errorf("row count should be non-negative, got %d", fin.rowCount)
	}
}

func TestWorker_ProcessJob_ReportNotFound(t *testing.T) {
	reports := &fakeReportStore{reports: map[uuid.UUID]domain.Report{}}
	runs := &fakeRunStore{}
	w := newTestWorker(reports, runs)

	payload := &mq.ReportJobPayload{ReportID: uuid.New(), OwnerID: "alice"}

	err := w.processJob(context.Background(), "dispatch-1", payload)
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
	if len(runs.created) != 0 {
		t.Error("no run record should be created for a missing report")
	}
}

func TestWorker_ProcessJob_WrongOwner(t *testing.T) {
	report := testReport("alice", "csv", "select 1")
	reports := &fakeReportStore{reports: map[uuid.UUID]domain.Report{report.ID: report}}
	runs := &fakeRunStore{}
	w := newTestWorker(reports, runs)

	payload := &mq.ReportJobPayload{ReportID: report.ID, OwnerID: "mallory"}

	err := w.processJob(context.Background(), "dispatch-1", payload)
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound for foreign report, got %v", err)
	}
}

func TestWorker_ProcessJob_GenerationFailure(t *testing.T) {
	report := testReport("alice", "csv", "")
	reports := &fakeReportStore{reports: map[uuid.UUID]domain.Report{report.ID: report}}
	runs := &fakeRunStore{}
	w := newTestWorker(reports, runs)

	payload := &mq.ReportJobPayload{
		ReportID: report.ID,
		OwnerID:  "alice",
		Trigger:  domain.RunTriggerManual,
	}

	// Логическая ошибка генерации фиксируется в истории, job обработан
	if err := w.processJob(context.Background(), "dispatch-1", payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runs.finishes) != 1 {
		t.Fatalf("expected 1 finish call, got %d", len(runs.finishes))
	}
	fin := runs.finishes[0]
	if fin.status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", fin.status)
	}
	if fin.errMsg == "" {
		t.Error("failure should record an error message")
	}
	if fin.rowCount != 0 {
		t.Errorf("failed run should have 0 rows, got %d", fin.rowCount)
	}
}

func TestWorker_ProcessJob_UnknownFormatDoesNotRequeue(t *testing.T) {
	report := testReport("alice", "pdf", "select 1")
	reports := &fakeReportStore{reports: map[uuid.UUID]domain.Report{report.ID: report}}
	runs := &fakeRunStore{}
	w := newTestWorker(reports, runs)

	payload := &mq.ReportJobPayload{ReportID: report.ID, OwnerID: "alice"}

	// Неизвестный формат не лечится повтором — job подтверждается
	if err := w.processJob(context.Background(), "dispatch-1", payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs.finishes) != 1 || runs.finishes[0].status != domain.RunStatusFailed {
		t.Error("unknown format should be recorded as a failed run")
	}
	if !strings.Contains(runs.finishes[0].errMsg, "pdf") {
		t.Errorf("error message should name the format, got %q", runs.finishes[0].errMsg)
	}
}

func TestWorker_ProcessJob_CreateRunError(t *testing.T) {
	report := testReport("alice", "csv", "select 1")
	reports := &fakeReportStore{reports: map[uuid.UUID]domain.Report{report.ID: report}}
	runs := &fakeRunStore{createErr: errors.New("db down")}
	w := newTestWorker(reports, runs)

	payload := &mq.ReportJobPayload{ReportID: report.ID, OwnerID: "alice"}

	if err := w.processJob(context.Background(), "dispatch-1", payload); err == nil {
		t.Error("infrastructure errors must propagate for requeue")
	}
}

// --- Worker Lifecycle Tests ---

func TestWorker_IsStopped(t *testing.T) {
	w := newTestWorker(&fakeReportStore{}, &fakeRunStore{})

	if w.IsStopped() {
		t.Error("worker should not be stopped initially")
	}

	w.Stop()

	if !w.IsStopped() {
		t.Error("worker should be stopped")
	}
}
