package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Metronome/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeReportGenerate MessageType = "report.generate"
)

// Publisher публикует сообщения в RabbitMQ.
//
// Publisher реализует контракт диспетчера jobs для планировщика:
// идентификатор опубликованного сообщения служит dispatch id.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ReportJobPayload — payload для job на генерацию отчёта.
//
// Доставка at-least-once: потребитель обязан переживать дубликаты.
type ReportJobPayload struct {
	ReportID uuid.UUID         `json:"report_id"`
	OwnerID  string            `json:"owner_id"`
	Trigger  domain.RunTrigger `json:"trigger"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// EnqueueReportJob отправляет один job на генерацию отчёта.
// Возвращает dispatch id опубликованного сообщения.
func (p *Publisher) EnqueueReportJob(ctx context.Context, job ReportJobPayload) (string, error) {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeReportGenerate,
		Payload:   job,
		Timestamp: time.Now(),
	}

	if err := p.Publish(ctx, ExchangeReports, RoutingKeyGenerate, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// Close закрывает соединение, через которое публикуются jobs.
// Повторный вызов безопасен.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

// EnqueueReportJobs отправляет пачку jobs на генерацию.
// Возвращает dispatch id каждого сообщения в порядке jobs.
// При ошибке публикации возвращает id уже отправленных jobs и ошибку.
func (p *Publisher) EnqueueReportJobs(ctx context.Context, jobs []ReportJobPayload) ([]string, error) {
	ids := make([]string, 0, len(jobs))
	for i := range jobs {
		id, err := p.EnqueueReportJob(ctx, jobs[i])
		if err != nil {
			return ids, fmt.Errorf("enqueue job %d of %d: %w", i+1, len(jobs), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
