package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/producer"
	"fulfillment-service/internal/sender"
	"fulfillment-service/internal/service"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type EmailSender interface {
	SendEmail(n sender.EmailNotification) error
}

type KafkaEventConsumer struct {
	reader      *kafka.Reader
	emailSender EmailSender
	log         *zap.Logger
}

func NewKafkaEventConsumer(brokers []string, groupID, topic string, emailSender EmailSender, log *zap.Logger) *KafkaEventConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return &KafkaEventConsumer{reader: r, emailSender: emailSender, log: log}
}

// BuildNotification превращает событие из топика заказов в письмо.
// nil без ошибки: событие не требует письма.
func BuildNotification(env producer.Envelope) (*sender.EmailNotification, error) {
	switch env.Type {
	case service.EventOrderConfirmed:
		var e service.OrderConfirmedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.Email == "" {
			return nil, nil
		}
		tracking := ""
		if e.TrackingNumber != nil {
			tracking = *e.TrackingNumber
		}
		return &sender.EmailNotification{
			To:       e.Email,
			Subject:  "Order confirmed #" + e.OrderID.String()[:8],
			Template: "order_confirmed",
			Data: map[string]any{
				"Name":     e.Name,
				"OrderID":  e.OrderID.String(),
				"Items":    e.Items,
				"Total":    e.Total,
				"Currency": e.Currency,
				"Tracking": tracking,
			},
		}, nil
	case service.EventReturnRefunded:
		var e service.ReturnRefundedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.Email == "" {
			return nil, nil
		}
		return &sender.EmailNotification{
			To:       e.Email,
			Subject:  "Your refund has been issued",
			Template: "return_refunded",
			Data: map[string]any{
				"OrderID":  e.OrderID.String(),
				"ReturnID": e.ReturnID.String(),
				"Amount":   e.RefundAmount,
				"Currency": e.Currency,
			},
		}, nil
	case service.EventReturnRejected:
		var e service.ReturnRejectedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.Email == "" {
			return nil, nil
		}
		return &sender.EmailNotification{
			To:       e.Email,
			Subject:  "Your return request was declined",
			Template: "return_rejected",
			Data: map[string]any{
				"OrderID":  e.OrderID.String(),
				"ReturnID": e.ReturnID.String(),
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", env.Type)
}

func (c *KafkaEventConsumer) Run(ctx context.Context) error {
	c.log.Info("kafka consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			continue
		}
		var env producer.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			c.log.Error("unmarshal event", zap.ByteString("value", m.Value), zap.Error(err))
			continue
		}
		n, err := BuildNotification(env)
		if err != nil {
			c.log.Warn("skip event", zap.String("type", env.Type), zap.Error(err))
			continue
		}
		if n == nil {
			continue
		}
		if err = c.emailSender.SendEmail(*n); err != nil {
			c.log.Error("send email failed", zap.String("to", n.To), zap.String("template", n.Template), zap.Error(err))
			continue
		}
		c.log.Info("email sent", zap.String("to", n.To), zap.String("template", n.Template))
	}
}

func (c *KafkaEventConsumer) Close() error { return c.reader.Close() }
