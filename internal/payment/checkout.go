package payment

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutSession: поля checkout-сессии, которые нужны для создания заказа.
type CheckoutSession struct {
	ID                string            `json:"id"`
	PaymentIntent     json.RawMessage   `json:"payment_intent"`
	CustomerEmail     string            `json:"customer_email"`
	CustomerDetails   *customerDetails  `json:"customer_details"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type customerDetails struct {
	Email string `json:"email"`
}

// metadataItem: элемент корзины из metadata.items. Количество и цена
// приходят и числом, и строкой, decimal принимает оба варианта.
type metadataItem struct {
	ProductID        string          `json:"productId"`
	SelectedSize     string          `json:"selectedSize"`
	SelectedColor    string          `json:"selectedColor"`
	SelectedQuantity decimal.Decimal `json:"selectedQuantity"`
	Title            string          `json:"title"`
	Price            decimal.Decimal `json:"price"`
}

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

func (cs *CheckoutSession) paymentIntentID() string {
	if len(cs.PaymentIntent) == 0 || string(cs.PaymentIntent) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(cs.PaymentIntent, &id); err == nil {
		return id
	}
	// expanded объект
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(cs.PaymentIntent, &obj); err == nil {
		return obj.ID
	}
	return ""
}

func (cs *CheckoutSession) meta(key string) string {
	if cs.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(cs.Metadata[key])
}

func (cs *CheckoutSession) metaDecimal(key string) (decimal.Decimal, error) {
	raw := cs.meta(key)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: metadata %s: %v", service.ErrInvalidEvent, key, err)
	}
	return d, nil
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// ToPaymentCompleted переводит сессию в доменное событие. Проверка полей: в Validate.
func (cs *CheckoutSession) ToPaymentCompleted(eventID string) (*service.PaymentCompleted, error) {
	items, err := cs.items()
	if err != nil {
		return nil, err
	}

	tax, err := cs.metaDecimal("tax")
	if err != nil {
		return nil, err
	}
	taxRate, err := cs.metaDecimal("taxRate")
	if err != nil {
		return nil, err
	}
	shippingCost, err := cs.metaDecimal("shippingCost")
	if err != nil {
		return nil, err
	}

	email := cs.CustomerEmail
	if email == "" && cs.CustomerDetails != nil {
		email = cs.CustomerDetails.Email
	}

	// гостевой заказ, если id пользователя не передан или не разбирается
	var userID *uuid.UUID
	ref := cs.ClientReferenceID
	if ref == "" {
		ref = cs.meta("userId")
	}
	if id, err := uuid.Parse(ref); err == nil {
		userID = &id
	}

	first, last := splitName(cs.meta("shippingName"))
	ev := &service.PaymentCompleted{
		EventID:         eventID,
		SessionID:       cs.ID,
		PaymentIntentID: cs.paymentIntentID(),
		CustomerEmail:   email,
		AmountTotal:     cs.AmountTotal,
		Currency:        strings.ToUpper(cs.Currency),
		UserID:          userID,
		Shipping: models.ShippingInfo{
			Email:     email,
			FirstName: first,
			LastName:  last,
			Address:   cs.meta("shippingAddress"),
			Address2:  cs.meta("shippingAddress2"),
			City:      cs.meta("shippingCity"),
			State:     cs.meta("shippingState"),
			ZipCode:   cs.meta("shippingZip"),
			Country:   cs.meta("shippingCountry"),
		},
		Items:        items,
		Tax:          tax,
		TaxRate:      taxRate,
		ShippingCost: shippingCost,
		PostageType:  cs.meta("postageType"),
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func (cs *CheckoutSession) items() ([]service.CheckoutItem, error) {
	raw := cs.meta("items")
	if raw == "" {
		return nil, fmt.Errorf("%w: metadata items missing", service.ErrInvalidEvent)
	}
	var list []metadataItem
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w: metadata items: %v", service.ErrInvalidEvent, err)
	}

	out := make([]service.CheckoutItem, 0, len(list))
	for i, it := range list {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: bad product id %q", service.ErrInvalidEvent, i, it.ProductID)
		}
		if !it.SelectedQuantity.IsInteger() {
			return nil, fmt.Errorf("%w: item %d: quantity must be an integer", service.ErrInvalidEvent, i)
		}
		if it.SelectedQuantity.GreaterThan(maxQuantity) {
			return nil, fmt.Errorf("%w: item %d: quantity %s is out of range", service.ErrInvalidEvent, i, it.SelectedQuantity)
		}
		out = append(out, service.CheckoutItem{
			ProductID: pid,
			Title:     it.Title,
			Size:      it.SelectedSize,
			Color:     it.SelectedColor,
			Quantity:  int(it.SelectedQuantity.IntPart()),
			Price:     it.Price,
		})
	}
	return out, nil
}
