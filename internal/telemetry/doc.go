// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
//
// Тик-цикл планировщика ошибок наружу не выбрасывает, поэтому
// деградацию видно только здесь: следите за
// metronome_scheduler_consecutive_errors и metronome_lease_held.
package telemetry
