// Package worker реализует генерацию отчётов по jobs из очереди.
//
// Worker потребляет очередь reports.generate, для каждого job:
//   - загружает отчёт из БД с проверкой владельца
//   - создаёт запись в report_runs (RUNNING)
//   - выполняет генерацию через Generator
//   - фиксирует результат (SUCCEEDED/FAILED, row_count, error)
//
// Структура:
//   - worker.go    — lifecycle (Start/Stop), consumer wiring
//   - handlers.go  — обработка job (processJob)
//   - generator.go — контракт Generator и StubGenerator
//   - errors.go    — sentinel-ошибки
//
// Семантика доставки — at-least-once: один job может быть обработан
// дважды (например, после переподключения к брокеру). Каждая обработка
// оставляет свою запись в report_runs, дедупликации нет.
//
// Некорректные сообщения (не парсятся) уходят в DLQ на уровне
// consumer; jobs для удалённых отчётов подтверждаются без генерации.
package worker
