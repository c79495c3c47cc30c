package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Metronome/internal/domain"
	"github.com/shaiso/Metronome/internal/mq"
	"github.com/shaiso/Metronome/internal/repo"
)

// handleReportGenerate обрабатывает job на генерацию из очереди reports.generate.
func (w *Worker) handleReportGenerate(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ReportJobPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse report job payload", "error", err)
		return err
	}

	w.logger.Debug("received report job",
		"report_id", payload.ReportID,
		"owner_id", payload.OwnerID,
		"trigger", payload.Trigger,
		"dispatch_id", delivery.Message.ID,
	)

	if err := w.processJob(ctx, delivery.Message.ID, &payload); err != nil {
		// Отчёт удалён между отправкой и обработкой — ожидаемая
		// ситуация, retry бессмысленен (ack)
		if errors.Is(err, ErrReportNotFound) {
			w.logger.Warn("report job for missing report",
				"report_id", payload.ReportID,
				"dispatch_id", delivery.Message.ID,
			)
			return nil
		}
		w.logger.Error("failed to process report job",
			"report_id", payload.ReportID,
			"dispatch_id", delivery.Message.ID,
			"error", err,
		)
		return err
	}

	return nil
}

// processJob загружает отчёт, пишет run-запись и выполняет генерацию.
func (w *Worker) processJob(ctx context.Context, dispatchID string, payload *mq.ReportJobPayload) error {
	// 1. Загружаем отчёт
	report, err := w.reports.GetByOwner(ctx, payload.ReportID, payload.OwnerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrReportNotFound, payload.ReportID)
		}
		return fmt.Errorf("get report: %w", err)
	}

	// 2. Создаём запись о генерации
	now := time.Now().UTC()
	run := &domain.Run{
		ID:         uuid.New(),
		ReportID:   report.ID,
		OwnerID:    report.OwnerID,
		DispatchID: dispatchID,
		Trigger:    payload.Trigger,
		Status:     domain.RunStatusRunning,
		StartedAt:  &now,
		CreatedAt:  now,
	}
	if err := w.runs.Create(ctx, run); err != nil {
		return fmt.Errorf("create run record: %w", err)
	}

	w.logger.Info("report generation started",
		"run_id", run.ID,
		"report_id", report.ID,
		"trigger", payload.Trigger,
		"format", report.Format,
	)

	// 3. Генерируем
	result, genErr := w.generator.Generate(ctx, report)

	// 4. Фиксируем результат
	finishedAt := time.Now().UTC()

	if genErr == nil && result.Error == "" {
		if err := w.runs.Finish(ctx, run.ID, domain.RunStatusSucceeded, result.RowCount, "", finishedAt); err != nil {
			return fmt.Errorf("finish run record: %w", err)
		}

		w.logger.Info("report generation succeeded",
			"run_id", run.ID,
			"report_id", report.ID,
			"row_count", result.RowCount,
		)
		return nil
	}

	errMsg := ""
	if genErr != nil {
		errMsg = genErr.Error()
	} else {
		errMsg = result.Error
	}

	if err := w.runs.Finish(ctx, run.ID, domain.RunStatusFailed, 0, errMsg, finishedAt); err != nil {
		return fmt.Errorf("finish run record: %w", err)
	}

	w.logger.Warn("report generation failed",
		"run_id", run.ID,
		"report_id", report.ID,
		"error", errMsg,
	)

	// Результат зафиксирован в истории — job считается обработанным.
	// Инфраструктурные ошибки генерации возвращаем для requeue.
	if genErr != nil && !errors.Is(genErr, ErrUnknownFormat) {
		return fmt.Errorf("%w: %s", ErrGenerationFailed, errMsg)
	}
	return nil
}
