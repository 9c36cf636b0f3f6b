package producer

import (
	"context"
	"encoding/json"
	"time"

	"fulfillment-service/internal/service"

	"github.com/segmentio/kafka-go"
)

// Envelope: формат сообщения в топике заказов.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type EventProducer struct {
	writer *kafka.Writer
}

var _ service.EventBus = (*EventProducer)(nil)

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return &EventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *EventProducer) publish(ctx context.Context, key, typ string, data any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	value, err := json.Marshal(Envelope{Type: typ, Data: raw})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(typ)},
		},
	})
}

func (p *EventProducer) PublishOrderConfirmed(ctx context.Context, e service.OrderConfirmedEvent) error {
	return p.publish(ctx, e.OrderID.String(), service.EventOrderConfirmed, e)
}

func (p *EventProducer) PublishReturnRefunded(ctx context.Context, e service.ReturnRefundedEvent) error {
	return p.publish(ctx, e.OrderID.String(), service.EventReturnRefunded, e)
}

func (p *EventProducer) PublishReturnRejected(ctx context.Context, e service.ReturnRejectedEvent) error {
	return p.publish(ctx, e.OrderID.String(), service.EventReturnRejected, e)
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}
