package worker

import "errors"

// Ошибки воркера.
var (
	// ErrReportNotFound — отчёт не найден в БД.
	ErrReportNotFound = errors.New("report not found")

	// ErrUnknownFormat — нет генератора для данного формата выгрузки.
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrGenerationFailed — генерация отчёта завершилась ошибкой.
	ErrGenerationFailed = errors.New("report generation failed")
)
