package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type ShippingInfo struct {
	Email     string `gorm:"type:text;not null;default:''"`
	FirstName string `gorm:"type:text;not null;default:''"`
	LastName  string `gorm:"type:text;not null;default:''"`
	Address   string `gorm:"type:text;not null;default:''"`
	Address2  string `gorm:"type:text;not null;default:''"`
	City      string `gorm:"type:text;not null;default:''"`
	State     string `gorm:"type:text;not null;default:''"`
	ZipCode   string `gorm:"type:text;not null;default:''"`
	Country   string `gorm:"type:text;not null;default:''"`
}

func (s ShippingInfo) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID      `gorm:"type:uuid;index"`
	ShippingInfo   ShippingInfo    `gorm:"embedded;embeddedPrefix:shipping_"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Tax            decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(7,5);not null;default:0"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Currency       string          `gorm:"type:char(3);not null;default:'CAD'"`
	PaymentID      string          `gorm:"type:text;not null"`
	SessionID      string          `gorm:"type:text;not null;uniqueIndex:ux_orders_session_id"`
	PaymentStatus  PaymentStatus   `gorm:"type:text;not null;default:'pending';index"`
	Status         OrderStatus     `gorm:"type:text;not null;default:'pending';index"`
	TrackingNumber *string         `gorm:"type:text"`
	PostageType    string          `gorm:"type:text;not null;default:''"`
	ShipmentKey    string          `gorm:"type:text;not null;default:''"`
	InvoiceURL     *string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// Subtotal товаров без доставки и налога.
func (o *Order) Subtotal() decimal.Decimal {
	return o.Total.Sub(o.ShippingCost).Sub(o.Tax)
}

func (o *Order) FindItem(productID uuid.UUID, size, color string) *OrderItem {
	for i := range o.Items {
		it := &o.Items[i]
		if it.ProductID == productID && it.SelectedSize == size && it.SelectedColor == color {
			return it
		}
	}
	return nil
}

type OrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title            string          `gorm:"type:text;not null;default:''"`
	SelectedSize     string          `gorm:"type:text;not null;default:''"`
	SelectedColor    string          `gorm:"type:text;not null;default:''"`
	SelectedQuantity int             `gorm:"type:int;not null"`
	Price            decimal.Decimal `gorm:"type:numeric(12,2);not null"` // цена за единицу на момент оплаты

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i OrderItem) Key() string { return ItemKey(i.ProductID, i.SelectedSize, i.SelectedColor) }

func ItemKey(productID uuid.UUID, size, color string) string {
	return productID.String() + "-" + size + "-" + color
}

type Product struct {
	ID    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title string          `gorm:"type:text;not null"`
	Price decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (Product) TableName() string { return "products" }

// Variant: единица учёта остатков (товар + размер + цвет).
type Variant struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_variants_product_size_color"`
	Size             string     `gorm:"type:text;not null;default:'';uniqueIndex:ux_variants_product_size_color"`
	Color            string     `gorm:"type:text;not null;default:'';uniqueIndex:ux_variants_product_size_color"`
	Quantity         int        `gorm:"type:int;not null;default:0"`
	ReservedQuantity int        `gorm:"type:int;not null;default:0"`
	ReservedUntil    *time.Time `gorm:"index"`
	Version          int64      `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Variant) TableName() string { return "product_variants" }

func (v Variant) Available() int { return v.Quantity - v.ReservedQuantity }

type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
	ReturnStatusRejected ReturnStatus = "rejected"
	ReturnStatusRefunded ReturnStatus = "refunded"
)

type ReturnRequest struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	Reason               string          `gorm:"type:text;not null"`
	Description          string          `gorm:"type:text;not null;default:''"`
	Status               ReturnStatus    `gorm:"type:text;not null;default:'pending';index"`
	RefundPercentage     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:100"`
	RefundAmount         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	RefundReason         *string         `gorm:"type:text"`
	RefundID             *string         `gorm:"type:text"`
	ReturnTrackingNumber *string         `gorm:"type:text"`
	ReturnShipmentKey    *string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []ReturnItem `gorm:"foreignKey:ReturnRequestID;constraint:OnDelete:CASCADE"`
}

func (ReturnRequest) TableName() string { return "return_requests" }

type ReturnItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnRequestID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null"`
	Title           string          `gorm:"type:text;not null;default:''"`
	SelectedSize    string          `gorm:"type:text;not null;default:''"`
	SelectedColor   string          `gorm:"type:text;not null;default:''"`
	ReturnQuantity  int             `gorm:"type:int;not null"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

func (ReturnItem) TableName() string { return "return_items" }

func (i ReturnItem) Key() string { return ItemKey(i.ProductID, i.SelectedSize, i.SelectedColor) }

type PaymentEventStatus string

const (
	PaymentEventReceived  PaymentEventStatus = "received"
	PaymentEventProcessed PaymentEventStatus = "processed"
	PaymentEventFailed    PaymentEventStatus = "failed"
)

// PaymentEvent: входящий ящик событий оплаты, ключ: id checkout-сессии.
type PaymentEvent struct {
	SessionID   string             `gorm:"type:text;primaryKey"`
	EventID     string             `gorm:"type:text;not null"`
	Type        string             `gorm:"type:text;not null"`
	Payload     string             `gorm:"type:jsonb;not null"`
	Status      PaymentEventStatus `gorm:"type:text;not null;default:'received';index"`
	Attempts    int                `gorm:"not null;default:0"`
	LastError   *string            `gorm:"type:text"`
	ReceivedAt  time.Time          `gorm:"not null;default:now()"`
	ProcessedAt *time.Time
}

func (PaymentEvent) TableName() string { return "payment_events" }
