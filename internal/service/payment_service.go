package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "CAD"

type PaymentService struct {
	repo      *repository.Repository
	inventory *InventoryService
	shipper   Shipper
	events    EventBus
	log       *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewPaymentService(repo *repository.Repository, inventory *InventoryService, shipper Shipper, events EventBus, log *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:      repo,
		inventory: inventory,
		shipper:   shipper,
		events:    events,
		log:       log,
		tracer:    otel.Tracer("fulfillment-service/payment"),
		now:       time.Now,
	}
}

// HandleCheckoutCompleted превращает событие оплаты в подтверждённый заказ ровно один раз.
// Повторная доставка той же сессии возвращает уже созданный заказ.
func (s *PaymentService) HandleCheckoutCompleted(ctx context.Context, ev PaymentCompleted) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "payment.checkout_completed",
		trace.WithAttributes(attribute.String("checkout.session_id", ev.SessionID)))
	defer span.End()

	if err := ev.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	if err := s.repo.PaymentEvents.Record(ctx, &models.PaymentEvent{
		SessionID:  ev.SessionID,
		EventID:    ev.EventID,
		Type:       EventCheckoutCompleted,
		Payload:    string(payload),
		Status:     models.PaymentEventReceived,
		ReceivedAt: s.now(),
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("record payment event: %w", err)
	}

	order, created, err := s.confirmOrder(ctx, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order confirmation failed")
		s.log.Error("order confirmation failed", zap.String("session_id", ev.SessionID), zap.Error(err))
		if mErr := s.repo.PaymentEvents.MarkFailed(ctx, ev.SessionID, err.Error()); mErr != nil {
			s.log.Error("failed to mark payment event as failed", zap.String("session_id", ev.SessionID), zap.Error(mErr))
		}
		return nil, err
	}

	if created {
		s.log.Info("order confirmed",
			zap.String("order_id", order.ID.String()),
			zap.String("session_id", ev.SessionID),
			zap.String("total", order.Total.StringFixed(2)))
	} else {
		s.log.Info("duplicate payment event, order already exists",
			zap.String("order_id", order.ID.String()), zap.String("session_id", ev.SessionID))
	}

	// Перевозчик вызывается после коммита: его ошибка не откатывает заказ.
	s.requestShipment(ctx, order)

	if created {
		s.publishConfirmed(ctx, order)
	}
	return order, nil
}

func (s *PaymentService) confirmOrder(ctx context.Context, ev PaymentCompleted) (*models.Order, bool, error) {
	var (
		order   *models.Order
		created bool
	)

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.PaymentEvents.Lock(ctx, ev.SessionID); err != nil {
			return err
		}

		existing, err := tx.Orders.GetBySessionID(ctx, ev.SessionID)
		if err != nil {
			return err
		}
		if existing != nil {
			order = existing
			return nil
		}

		key, err := NewShipmentKey("ship", ev.SessionID)
		if err != nil {
			return err
		}
		o := buildOrder(ev, key, s.now())

		for _, it := range ev.Items {
			short, err := s.inventory.CommitTx(ctx, tx, it.ProductID, it.Size, it.Color, it.Quantity)
			if err != nil {
				return fmt.Errorf("commit inventory: %w", err)
			}
			if short > 0 {
				s.log.Warn("variant oversold on payment",
					zap.String("session_id", ev.SessionID),
					zap.String("product_id", it.ProductID.String()),
					zap.Int("shortfall", short))
			}
		}

		if err := tx.Orders.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := tx.PaymentEvents.MarkProcessed(ctx, ev.SessionID, s.now()); err != nil {
			return err
		}
		order, created = o, true
		return nil
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, gErr := s.repo.Orders.GetBySessionID(ctx, ev.SessionID)
		if gErr != nil {
			return nil, false, gErr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

func buildOrder(ev PaymentCompleted, shipmentKey string, now time.Time) *models.Order {
	items := make([]models.OrderItem, 0, len(ev.Items))
	subtotal := decimal.Zero
	for _, it := range ev.Items {
		price := it.Price.Round(2)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, models.OrderItem{
			ProductID:        it.ProductID,
			Title:            it.Title,
			SelectedSize:     it.Size,
			SelectedColor:    it.Color,
			SelectedQuantity: it.Quantity,
			Price:            price,
			CreatedAt:        now,
		})
	}

	shipping := ev.Shipping
	if shipping.Email == "" {
		shipping.Email = ev.CustomerEmail
	}

	tax := ev.Tax.Round(2)
	if tax.IsZero() && ev.TaxRate.IsPositive() {
		tax = subtotal.Mul(ev.TaxRate).Round(2)
	}

	currency := strings.ToUpper(strings.TrimSpace(ev.Currency))
	if len(currency) != 3 {
		currency = defaultCurrency
	}

	return &models.Order{
		UserID:        ev.UserID,
		ShippingInfo:  shipping,
		Total:         ev.Total(),
		Tax:           tax,
		TaxRate:       ev.TaxRate,
		ShippingCost:  ev.ShippingCost.Round(2),
		Currency:      currency,
		PaymentID:     ev.PaymentIntentID,
		SessionID:     ev.SessionID,
		PaymentStatus: models.PaymentStatusPaid,
		Status:        models.OrderStatusConfirmed,
		PostageType:   ev.PostageType,
		ShipmentKey:   shipmentKey,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         items,
	}
}

func customerAddress(si models.ShippingInfo) Address {
	return Address{
		Name:         si.FullName(),
		Email:        si.Email,
		Address1:     si.Address,
		Address2:     si.Address2,
		City:         si.City,
		ProvinceCode: si.State,
		PostalCode:   si.ZipCode,
		CountryCode:  si.Country,
	}
}

func itemSKU(productID uuid.UUID, size, color string) string {
	return strings.ToUpper(productID.String()[:8] + "-" + size + "-" + color)
}

func shipmentForOrder(o *models.Order) ShipmentRequest {
	items := make([]ShipmentItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ShipmentItem{
			Description: it.Title,
			SKU:         itemSKU(it.ProductID, it.SelectedSize, it.SelectedColor),
			Quantity:    it.SelectedQuantity,
			Value:       it.Price,
			Currency:    o.Currency,
		})
	}
	return ShipmentRequest{
		IdempotencyKey: o.ShipmentKey,
		Customer:       customerAddress(o.ShippingInfo),
		Items:          items,
		PostageType:    o.PostageType,
	}
}

// requestShipment не возвращает ошибку: заказ уже оплачен и подтверждён.
func (s *PaymentService) requestShipment(ctx context.Context, order *models.Order) {
	if s.shipper == nil || order.TrackingNumber != nil || order.Status != models.OrderStatusConfirmed {
		return
	}
	if _, err := s.shipOrder(ctx, order); err != nil {
		s.log.Warn("shipment request failed, order stays confirmed",
			zap.String("order_id", order.ID.String()),
			zap.String("shipment_key", order.ShipmentKey),
			zap.Error(err))
	}
}

func (s *PaymentService) shipOrder(ctx context.Context, order *models.Order) (string, error) {
	ctx, span := s.tracer.Start(ctx, "shipment.create")
	defer span.End()

	tracking, err := s.shipper.CreateShipment(ctx, shipmentForOrder(order))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrCarrier, err)
	}
	if err := s.repo.Orders.SetTrackingNumber(ctx, order.ID, tracking); err != nil {
		return "", err
	}
	order.TrackingNumber = &tracking
	s.log.Info("shipment created", zap.String("order_id", order.ID.String()), zap.String("tracking", tracking))
	return tracking, nil
}

// RetryShipment повторяет запрос к перевозчику с тем же ключом идемпотентности.
func (s *PaymentService) RetryShipment(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	order, err := s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.TrackingNumber != nil || s.shipper == nil {
		return order, nil
	}
	if _, err := s.shipOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Replay повторно обрабатывает событие из входящего ящика.
func (s *PaymentService) Replay(ctx context.Context, sessionID string) (*models.Order, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	stored, err := s.repo.PaymentEvents.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrPaymentEventNotFound
	}
	var ev PaymentCompleted
	if err := json.Unmarshal([]byte(stored.Payload), &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return s.HandleCheckoutCompleted(ctx, ev)
}

func (s *PaymentService) publishConfirmed(ctx context.Context, o *models.Order) {
	if s.events == nil {
		return
	}
	items := make([]OrderItemEvent, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemEvent{
			ProductID: it.ProductID,
			Title:     it.Title,
			Size:      it.SelectedSize,
			Color:     it.SelectedColor,
			Quantity:  it.SelectedQuantity,
			Price:     it.Price.StringFixed(2),
		})
	}
	err := s.events.PublishOrderConfirmed(ctx, OrderConfirmedEvent{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Email:          o.ShippingInfo.Email,
		Name:           o.ShippingInfo.FullName(),
		Items:          items,
		Total:          o.Total.StringFixed(2),
		Currency:       o.Currency,
		TrackingNumber: o.TrackingNumber,
		ConfirmedAt:    s.now(),
	})
	if err != nil {
		s.log.Warn("failed to publish order.confirmed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}
