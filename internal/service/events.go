package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderConfirmed = "order.confirmed"
	EventReturnRefunded = "return.refunded"
	EventReturnRejected = "return.rejected"
)

type OrderItemEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"`
}

type OrderConfirmedEvent struct {
	OrderID        uuid.UUID        `json:"order_id"`
	UserID         *uuid.UUID       `json:"user_id,omitempty"`
	Email          string           `json:"email"`
	Name           string           `json:"name"`
	Items          []OrderItemEvent `json:"items"`
	Total          string           `json:"total"`
	Currency       string           `json:"currency"`
	TrackingNumber *string          `json:"tracking_number,omitempty"`
	ConfirmedAt    time.Time        `json:"confirmed_at"`
}

type ReturnRefundedEvent struct {
	ReturnID     uuid.UUID `json:"return_id"`
	OrderID      uuid.UUID `json:"order_id"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	RefundAmount string    `json:"refund_amount"`
	Currency     string    `json:"currency"`
	RefundID     string    `json:"refund_id"`
	RefundedAt   time.Time `json:"refunded_at"`
}

type ReturnRejectedEvent struct {
	ReturnID   uuid.UUID `json:"return_id"`
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	RejectedAt time.Time `json:"rejected_at"`
}

// EventBus публикует доменные события. nil отключает публикацию.
type EventBus interface {
	PublishOrderConfirmed(ctx context.Context, e OrderConfirmedEvent) error
	PublishReturnRefunded(ctx context.Context, e ReturnRefundedEvent) error
	PublishReturnRejected(ctx context.Context, e ReturnRejectedEvent) error
}
