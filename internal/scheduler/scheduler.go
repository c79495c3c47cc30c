package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/mq"
	"github.com/shaiso/Metronome/internal/telemetry"
)

// Default configuration values.
const (
	// DefaultPollInterval — интервал между тиками.
	DefaultPollInterval = 5 * time.Minute

	// DefaultBatchSize — максимум due reports за один тик.
	// Самые просроченные отправляются первыми, остальные ждут
	// следующего тика.
	DefaultBatchSize = 50

	// DefaultErrorThreshold — количество подряд неудачных тиков,
	// после которого планировщик выключает себя.
	DefaultErrorThreshold = 10
)

// Scheduler — тик-цикл планирования генераций.
//
// Каждый экземпляр сервиса запускает свой Scheduler; право отправлять
// jobs в текущем окне определяет lease. Тики внутри одного процесса
// строго последовательны: цикл живёт в одной горутине, следующий тик
// не начинается до завершения предыдущего.
//
// Тик: захват lease → выборка due reports → отправка пачки jobs →
// сдвиг next_run_at каждого отчёта → продление lease. Ошибки тиков
// наружу не выбрасываются; после DefaultErrorThreshold подряд
// планировщик переходит в выключенное состояние и требует внешнего
// Start для возобновления.
type Scheduler struct {
	reports    WorkStore
	lease      *LeaseLock
	dispatcher Dispatcher
	logger     *slog.Logger

	pollInterval   time.Duration
	batchSize      int
	errorThreshold int
	disabled       bool // административное выключение, SCHEDULER_ENABLED=false

	mu                sync.Mutex
	running           bool
	consecutiveErrors int
	lastTickAt        *time.Time
	cancel            context.CancelFunc

	wg sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	Reports    WorkStore
	Lease      *LeaseLock
	Dispatcher Dispatcher
	Logger     *slog.Logger

	// PollInterval — интервал между тиками (default: 5m).
	// Должен быть меньше срока lease, иначе lease истечёт между тиками.
	PollInterval time.Duration

	// BatchSize — максимум due reports за тик (default: 50).
	BatchSize int

	// ErrorThreshold — порог самовыключения (default: 10).
	ErrorThreshold int

	// Disabled — административное выключение планирования.
	// Start становится no-op; ручной запуск продолжает работать.
	Disabled bool
}

// New создаёт новый Scheduler.
// Отсутствие обязательной зависимости — фатальная ошибка инициализации.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Reports == nil {
		return nil, errors.New("work store is required")
	}
	if cfg.Lease == nil {
		return nil, errors.New("lease lock is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	errorThreshold := cfg.ErrorThreshold
	if errorThreshold <= 0 {
		errorThreshold = DefaultErrorThreshold
	}

	return &Scheduler{
		reports:        cfg.Reports,
		lease:          cfg.Lease,
		dispatcher:     cfg.Dispatcher,
		logger:         logger,
		pollInterval:   pollInterval,
		batchSize:      batchSize,
		errorThreshold: errorThreshold,
		disabled:       cfg.Disabled,
	}, nil
}

// Start запускает тик-цикл: один тик сразу, затем по таймеру.
// No-op, если цикл уже работает или планирование выключено
// конфигурацией. Повторный Start после самовыключения сбрасывает
// счётчик ошибок и возобновляет работу.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.disabled {
		s.logger.Info("scheduler administratively disabled, not starting")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	s.consecutiveErrors = 0
	s.mu.Unlock()
	telemetry.SetConsecutiveErrors(0)

	s.logger.Info("starting scheduler",
		"instance_id", s.lease.InstanceID(),
		"poll_interval", s.pollInterval,
		"batch_size", s.batchSize,
		"error_threshold", s.errorThreshold,
	)

	// Первый тик сразу, не дожидаясь таймера
	s.tick(ctx)

	s.wg.Add(1)
	go s.run(loopCtx)

	return nil
}

// run — цикл тиков. Живёт в одной горутине до отмены контекста,
// чем гарантирует отсутствие параллельных тиков в процессе.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop останавливает цикл, дожидается завершения текущего тика,
// затем best-effort освобождает lease и закрывает диспетчер.
// No-op, если цикл не работает.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Дожидаемся текущего тика: освобождать общие ресурсы под
	// выполняющимся тиком нельзя
	s.wg.Wait()

	s.lease.Release(ctx)

	if err := s.dispatcher.Close(); err != nil {
		s.logger.Warn("failed to close dispatcher", "error", err)
	}

	s.logger.Info("scheduler stopped")
}

// tick выполняет один тик планировщика.
//
// 1. Захватывает (или подтверждает) lease; без lease тик пропускается
// 2. Находит due reports (enabled=true, next_run_at <= now)
// 3. Отправляет пачку jobs в очередь
// 4. Сдвигает next_run_at и last_run_at каждого отчёта
// 5. Продлевает lease
//
// Ошибки тика не пробрасываются в цикл: они считаются и при
// достижении порога выключают планировщик.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if !s.lease.Acquire(ctx) {
		// Не лидер в этом окне — не ошибка
		s.logger.Debug("lease not acquired, skipping tick")
		telemetry.RecordTick("skipped")
		return
	}

	if err := s.processDue(ctx); err != nil {
		telemetry.RecordTick("error")
		s.recordTickError(ctx, err)
		return
	}

	s.mu.Lock()
	s.consecutiveErrors = 0
	now := time.Now().UTC()
	s.lastTickAt = &now
	s.mu.Unlock()
	telemetry.SetConsecutiveErrors(0)

	s.lease.Renew(ctx)
	telemetry.RecordTick("ok")
}

// processDue отправляет due reports на генерацию и сдвигает их расписания.
func (s *Scheduler) processDue(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := s.reports.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due reports: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	s.logger.Debug("found due reports", "count", len(due))

	jobs := make([]mq.ReportJobPayload, len(due))
	for i := range due {
		jobs[i] = mq.ReportJobPayload{
			ReportID: due[i].ID,
			OwnerID:  due[i].OwnerID,
			Trigger:  domain.RunTriggerScheduled,
		}
	}

	dispatchIDs, err := s.dispatcher.EnqueueReportJobs(ctx, jobs)
	if err != nil {
		telemetry.RecordDispatch(string(domain.RunTriggerScheduled), "error")
		return fmt.Errorf("enqueue report jobs: %w", err)
	}
	for range dispatchIDs {
		telemetry.RecordDispatch(string(domain.RunTriggerScheduled), "ok")
	}

	// Сдвигаем расписания независимо и параллельно, без транзакции.
	// Частичный сбой оставит часть отчётов due — они будут отправлены
	// повторно на следующем тике. Доставка at-least-once это допускает.
	var wg sync.WaitGroup
	errCh := make(chan error, len(due))

	for i := range due {
		report := &due[i]

		nextRun, err := NextRun(&report.Schedule, now)
		if err != nil {
			// Расписание некорректное — next_run_at не трогаем
			s.logger.Error("failed to compute next run, leaving schedule untouched",
				"report_id", report.ID,
				"error", err,
			)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.reports.MarkDispatched(ctx, report.ID, report.OwnerID, nextRun, now); err != nil {
				errCh <- fmt.Errorf("advance schedule of report %s: %w", report.ID, err)
			}
		}()
	}

	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
			continue
		}
		s.logger.Error("schedule advance failed", "error", err)
	}

	s.logger.Info("scheduler tick completed",
		"due", len(due),
		"dispatched", len(dispatchIDs),
	)

	return firstErr
}

// recordTickError считает подряд идущие ошибки тиков и при достижении
// порога выключает планировщик, чтобы сломанный downstream не
// заставлял экземпляр крутиться впустую.
func (s *Scheduler) recordTickError(ctx context.Context, err error) {
	s.mu.Lock()
	s.consecutiveErrors++
	count := s.consecutiveErrors
	s.mu.Unlock()
	telemetry.SetConsecutiveErrors(count)

	s.logger.Error("scheduler tick failed",
		"error", err,
		"consecutive_errors", count,
		"threshold", s.errorThreshold,
	)

	if count >= s.errorThreshold {
		s.logger.Error("consecutive error threshold reached, disabling scheduler",
			"threshold", s.errorThreshold,
		)
		s.selfDisable(ctx)
	}
}

// selfDisable — терминальное выключение из-за порога ошибок.
// Останавливает таймер и отпускает lease. Вызывается из тика, поэтому
// завершения цикла не дожидается — цикл умрёт по отменённому контексту.
func (s *Scheduler) selfDisable(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.lease.Release(ctx)
}

// TriggerManualRun отправляет один job на генерацию, минуя lease и
// тик-цикл. Расписание отчёта не меняется: ручной запуск не сдвигает
// next_run_at и last_run_at.
//
// В отличие от тиков, ошибки пробрасываются вызывающему — это
// синхронное действие пользователя.
func (s *Scheduler) TriggerManualRun(ctx context.Context, reportID uuid.UUID, ownerID string) (string, error) {
	report, err := s.reports.GetByOwner(ctx, reportID, ownerID)
	if err != nil {
		return "", fmt.Errorf("get report: %w", err)
	}

	dispatchID, err := s.dispatcher.EnqueueReportJob(ctx, mq.ReportJobPayload{
		ReportID: report.ID,
		OwnerID:  report.OwnerID,
		Trigger:  domain.RunTriggerManual,
	})
	if err != nil {
		telemetry.RecordDispatch(string(domain.RunTriggerManual), "error")
		return "", fmt.Errorf("enqueue manual job: %w", err)
	}
	telemetry.RecordDispatch(string(domain.RunTriggerManual), "ok")

	s.logger.Info("manual run dispatched",
		"report_id", report.ID,
		"owner_id", ownerID,
		"dispatch_id", dispatchID,
	)

	return dispatchID, nil
}

// Status — состояние планировщика для health-отчётов.
type Status struct {
	// Running — работает ли тик-цикл этого экземпляра.
	Running bool `json:"running"`

	// LastTickAt — время последнего успешного тика.
	LastTickAt *time.Time `json:"last_tick_at,omitempty"`

	// ConsecutiveErrors — текущий счётчик подряд идущих ошибок.
	ConsecutiveErrors int `json:"consecutive_errors"`

	// ErrorThreshold — порог самовыключения.
	ErrorThreshold int `json:"error_threshold"`

	// PollIntervalSec — интервал тиков в секундах.
	PollIntervalSec int64 `json:"poll_interval_sec"`

	// Lease — состояние lease по данным хранилища.
	Lease LeaseStatus `json:"lease"`
}

// Status возвращает состояние планировщика и lease.
func (s *Scheduler) Status(ctx context.Context) Status {
	s.mu.Lock()
	running := s.running
	lastTickAt := s.lastTickAt
	consecutiveErrors := s.consecutiveErrors
	s.mu.Unlock()

	return Status{
		Running:           running,
		LastTickAt:        lastTickAt,
		ConsecutiveErrors: consecutiveErrors,
		ErrorThreshold:    s.errorThreshold,
		PollIntervalSec:   int64(s.pollInterval.Seconds()),
		Lease:             s.lease.Status(ctx),
	}
}
