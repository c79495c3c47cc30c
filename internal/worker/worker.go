package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/mq"
)

// Default configuration values.
const (
	defaultPrefetch = 5
)

// ReportStore — доступ к отчётам со стороны воркера.
type ReportStore interface {
	GetByOwner(ctx context.Context, id uuid.UUID, ownerID string) (*domain.Report, error)
}

// RunStore — запись истории генераций.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, rowCount int, errMsg string, finishedAt time.Time) error
}

// Worker генерирует отчёты по jobs из очереди.
//
// Worker — stateless компонент системы, который:
//   - Получает jobs из очереди reports.generate
//   - Пишет запись о генерации в report_runs
//   - Выполняет генерацию через Generator
//   - Фиксирует результат (SUCCEEDED/FAILED) в report_runs
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди. Доставка at-least-once:
// повторная генерация того же job даёт вторую запись в истории,
// что допустимо.
type Worker struct {
	reports   ReportStore
	runs      RunStore
	conn      *mq.Connection
	generator Generator

	consumer *mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Reports ReportStore
	Runs    RunStore
	Conn    *mq.Connection

	// Generator (опционально; если nil — используется StubGenerator)
	Generator Generator

	// Prefetch — количество сообщений для предварительной загрузки (default: 5).
	Prefetch int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	generator := cfg.Generator
	if generator == nil {
		generator = &StubGenerator{}
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	w := &Worker{
		reports:   cfg.Reports,
		runs:      cfg.Runs,
		conn:      cfg.Conn,
		generator: generator,
		logger:    logger,
	}

	if cfg.Conn != nil {
		w.consumer = mq.NewConsumer(cfg.Conn, logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueReportsGenerate),
			Handler:  w.handleReportGenerate,
			Prefetch: prefetch,
		})
	}

	return w
}

// Start запускает Worker: consumer очереди reports.generate.
func (w *Worker) Start(ctx context.Context) error {
	if w.consumer == nil {
		w.logger.Warn("no message queue connection, worker is idle")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "queue", mq.QueueReportsGenerate)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("report job consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
