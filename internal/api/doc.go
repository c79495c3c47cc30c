// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, scheduler, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - report_handler.go    — обработчики для /reports
//   - scheduler_handler.go — ручной запуск генерации и статус планирования
//
// Владельца определяет заголовок X-User-ID; реальной аутентификации
// нет, сервис рассчитан на доверенный периметр.
package api
