package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RefundRequest struct {
	PaymentIntentID string
	AmountCents     int64
	IdempotencyKey  string
	Metadata        map[string]string
}

type RefundResult struct {
	ID          string
	AmountCents int64
	Status      string
}

// RefundHistory: возвраты по платежу глазами одной заявки.
type RefundHistory struct {
	// RefundedCents: успешные возвраты по платежу без возвратов этой заявки
	RefundedCents int64
	// Existing: возврат, уже созданный по этой заявке (ответ провайдера или запись в БД могли потеряться)
	Existing *RefundResult
}

// PaymentProcessor: внешний платёжный провайдер. Суммы в минимальных единицах валюты.
type PaymentProcessor interface {
	PaymentAmount(ctx context.Context, paymentIntentID string) (int64, error)
	// RefundHistory находит возврат заявки по metadata return_request_id
	RefundHistory(ctx context.Context, paymentIntentID, returnRequestID string) (RefundHistory, error)
	// Refund возвращает ErrChargeAlreadyRefunded (обёрнутую), если платёж уже возвращён
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type Address struct {
	Name         string
	Email        string
	Address1     string
	Address2     string
	City         string
	ProvinceCode string
	PostalCode   string
	CountryCode  string
}

type ShipmentItem struct {
	Description string
	SKU         string
	Quantity    int
	Value       decimal.Decimal
	Currency    string
}

type ShipmentRequest struct {
	IdempotencyKey string
	Customer       Address
	IsReturn       bool
	Items          []ShipmentItem
	PostageType    string
}

// Shipper создаёт отправление у перевозчика и возвращает трек-номер.
type Shipper interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (string, error)
}

// Locker сериализует операции над одной сущностью (например, заказом).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Claims struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type TokenParser interface {
	ParseAccess(ctx context.Context, token string) (*Claims, error)
}
