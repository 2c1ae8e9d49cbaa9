// Package mq mirrors access-log entries to a RabbitMQ exchange for external
// audit consumers. The database access log stays authoritative; the mirror is
// best effort.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const bufferSize = 128

// Channel is the subset of *amqp091.Channel used by the publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AuditRecord is the message body published for every access-log entry.
type AuditRecord struct {
	ID            uuid.UUID `json:"event_id"`
	FileID        string    `json:"file_id"`
	UserID        string    `json:"user_id"`
	Action        string    `json:"action"`
	SourceAddress string    `json:"source_address,omitempty"`
	At            time.Time `json:"at"`
}

type AuditPublisher struct {
	exchange string
	log      logging.Logger
	conn     *amqp091.Connection
	ch       Channel
	in       chan AuditRecord
}

func NewAuditPublisher(exchange string, log logging.Logger) *AuditPublisher {
	return &AuditPublisher{
		exchange: exchange,
		log:      log.With("module", "audit_mq"),
		in:       make(chan AuditRecord, bufferSize),
	}
}

// Connect dials url, opens a channel and declares the topic exchange.
func (p *AuditPublisher) Connect(ctx context.Context, url string) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: amqp091.Table{"connection_name": "sharekeeper"},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	})
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	p.conn = conn

	if err := p.UseChannel(ch); err != nil {
		_ = conn.Close()
		return err
	}
	p.log.Info(ctx, "rabbitmq connected", "exchange", p.exchange)
	return nil
}

// UseChannel declares the exchange on ch and publishes through it.
func (p *AuditPublisher) UseChannel(ch Channel) error {
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.ch = ch
	return nil
}

// Record queues e for publishing without blocking. A full buffer drops the
// record.
func (p *AuditPublisher) Record(ctx context.Context, e models.AccessLogEntry) {
	rec := AuditRecord{
		ID:            uuid.New(),
		FileID:        e.FileID,
		UserID:        e.UserID,
		Action:        string(e.Action),
		SourceAddress: e.SourceAddress,
		At:            e.CreatedAt,
	}
	select {
	case p.in <- rec:
	default:
		p.log.Warn(ctx, "audit buffer full, record dropped", "file_id", e.FileID, "action", e.Action)
	}
}

// Run publishes queued records until ctx is done.
func (p *AuditPublisher) Run(ctx context.Context) error {
	p.log.Info(ctx, "starting audit publisher")
	defer func() {
		if p.ch != nil {
			_ = p.ch.Close()
		}
		if p.conn != nil {
			_ = p.conn.Close()
		}
		p.log.Info(context.Background(), "audit publisher stopped")
	}()

	for {
		select {
		case rec := <-p.in:
			if err := p.publish(ctx, rec); err != nil {
				p.log.Error(ctx, "audit publish failed", "file_id", rec.FileID, "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *AuditPublisher) publish(ctx context.Context, rec AuditRecord) error {
	if p.ch == nil {
		return fmt.Errorf("audit publisher is not connected")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, "file."+rec.Action, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    rec.ID.String(),
		Timestamp:    rec.At,
		Type:         rec.Action,
		Body:         b,
	})
}
