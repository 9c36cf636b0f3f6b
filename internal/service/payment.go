package service

import (
	"fmt"
	"strings"

	"fulfillment-service/internal/models"

	"github.com/google/uuid"
	"github.com/nanorand/nanorand"
	"github.com/shopspring/decimal"
)

const EventCheckoutCompleted = "checkout.session.completed"

type CheckoutItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// PaymentCompleted: проверенное и разобранное событие завершения оплаты.
// В таком же виде хранится во входящем ящике payment_events.
type PaymentCompleted struct {
	EventID         string              `json:"event_id"`
	SessionID       string              `json:"session_id"`
	PaymentIntentID string              `json:"payment_intent_id"`
	CustomerEmail   string              `json:"customer_email"`
	AmountTotal     int64               `json:"amount_total"`
	Currency        string              `json:"currency"`
	UserID          *uuid.UUID          `json:"user_id,omitempty"`
	Shipping        models.ShippingInfo `json:"shipping"`
	Items           []CheckoutItem      `json:"items"`
	Tax             decimal.Decimal     `json:"tax"`
	TaxRate         decimal.Decimal     `json:"tax_rate"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	PostageType     string              `json:"postage_type"`
}

func (p *PaymentCompleted) Validate() error {
	switch {
	case strings.TrimSpace(p.SessionID) == "":
		return fmt.Errorf("%w: missing session id", ErrInvalidEvent)
	case strings.TrimSpace(p.PaymentIntentID) == "":
		return fmt.Errorf("%w: missing payment intent", ErrInvalidEvent)
	case p.AmountTotal < 0:
		return fmt.Errorf("%w: negative amount", ErrInvalidEvent)
	case len(p.Items) == 0:
		return fmt.Errorf("%w: empty item list", ErrInvalidEvent)
	case p.Tax.IsNegative() || p.ShippingCost.IsNegative() || p.TaxRate.IsNegative():
		return fmt.Errorf("%w: negative tax or shipping", ErrInvalidEvent)
	}
	for i, it := range p.Items {
		if it.ProductID == uuid.Nil {
			return fmt.Errorf("%w: item %d: missing product id", ErrInvalidEvent, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidEvent, i, ErrQuantityInvalid)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: item %d: negative price", ErrInvalidEvent, i)
		}
	}
	return nil
}

// Total: сумма заказа в основных единицах валюты.
func (p *PaymentCompleted) Total() decimal.Decimal {
	return decimal.New(p.AmountTotal, -2)
}

// NewShipmentKey генерирует ключ идемпотентности для новой попытки отправки.
// Ключ сохраняется вместе с заказом и переиспользуется при повторах.
func NewShipmentKey(prefix, id string) (string, error) {
	suffix, err := nanorand.Gen(10)
	if err != nil {
		return "", err
	}
	return prefix + "_" + id + "_" + suffix, nil
}
