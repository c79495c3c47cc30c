// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация jobs на генерацию отчётов
//   - consumer.go   — потребление jobs worker-ом
//
// Типы сообщений:
//   - report.generate — job на генерацию отчёта (scheduled или manual)
//
// Exchanges:
//   - metronome.reports — jobs на генерацию
//   - metronome.dlq     — dead letter queue
//
// Гарантия доставки — at-least-once: при гонке планировщика и ручного
// запуска или при повторной отправке после сбоя потребитель может
// получить дубликат job и обязан обрабатывать его идемпотентно.
package mq
