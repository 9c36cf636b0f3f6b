package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const alreadyRefundedID = "already_refunded"

type ReturnItemInput struct {
	ProductID uuid.UUID
	Title     string
	Size      string
	Color     string
	Quantity  int
}

type CreateReturnInput struct {
	OrderID     uuid.UUID
	Reason      string
	Description string
	Items       []ReturnItemInput
}

type ApproveInput struct {
	Percentage *decimal.Decimal
	Reason     *string
}

type ApproveResult struct {
	Return    *models.ReturnRequest
	Breakdown RefundBreakdown
	RefundID  string
}

type ReturnService struct {
	repo      *repository.Repository
	processor PaymentProcessor
	shipper   Shipper
	locker    Locker
	events    EventBus
	log       *zap.Logger
	now       func() time.Time
}

func NewReturnService(repo *repository.Repository, processor PaymentProcessor, shipper Shipper, locker Locker, events EventBus, log *zap.Logger) *ReturnService {
	return &ReturnService{
		repo:      repo,
		processor: processor,
		shipper:   shipper,
		locker:    locker,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

func (s *ReturnService) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Lock(ctx, key)
}

// lockedReturn берёт блокировку заказа заявки и перечитывает заявку уже под ней.
func (s *ReturnService) lockedReturn(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, func(), error) {
	rr, err := s.repo.Returns.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rr == nil {
		return nil, nil, ErrReturnNotFound
	}
	unlock, err := s.lock(ctx, "order:"+rr.OrderID.String())
	if err != nil {
		return nil, nil, err
	}
	rr, err = s.repo.Returns.GetByID(ctx, id)
	if err == nil && rr == nil {
		err = ErrReturnNotFound
	}
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return rr, unlock, nil
}

func (in *CreateReturnInput) validate() error {
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	if len(in.Items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range in.Items {
		if it.ProductID == uuid.Nil {
			return fmt.Errorf("%w: missing product id", ErrItemNotInOrder)
		}
		if it.Quantity <= 0 {
			return ErrQuantityInvalid
		}
	}
	return nil
}

// CreateReturn открывает заявку на возврат. Позиция, уже входящая в активную
// (не отклонённую) заявку по тому же заказу, повторно не принимается.
func (s *ReturnService) CreateReturn(ctx context.Context, in CreateReturnInput) (*models.ReturnRequest, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, "order:"+in.OrderID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var order *models.Order
	if role == RoleAdmin {
		order, err = s.repo.Orders.GetByID(ctx, in.OrderID)
	} else {
		order, err = s.repo.Orders.GetByIDForUser(ctx, in.OrderID, uid)
	}
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	// одинаковые позиции в запросе складываются
	requested := make(map[string]*models.ReturnItem, len(in.Items))
	keys := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		line := order.FindItem(it.ProductID, it.Size, it.Color)
		if line == nil {
			title := it.Title
			if title == "" {
				title = it.ProductID.String()
			}
			return nil, fmt.Errorf("%w: %s", ErrItemNotInOrder, title)
		}
		key := line.Key()
		if ri, ok := requested[key]; ok {
			ri.ReturnQuantity += it.Quantity
			continue
		}
		requested[key] = &models.ReturnItem{
			ProductID:      line.ProductID,
			Title:          line.Title,
			SelectedSize:   line.SelectedSize,
			SelectedColor:  line.SelectedColor,
			ReturnQuantity: it.Quantity,
			Price:          line.Price,
		}
		keys = append(keys, key)
	}

	active, err := s.repo.Returns.ListActiveByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{})
	for _, rr := range active {
		for _, it := range rr.Items {
			taken[it.Key()] = struct{}{}
		}
	}

	var dups []string
	items := make([]models.ReturnItem, 0, len(keys))
	for _, key := range keys {
		ri := requested[key]
		if _, ok := taken[key]; ok {
			dups = append(dups, ri.Title)
			continue
		}
		if line := order.FindItem(ri.ProductID, ri.SelectedSize, ri.SelectedColor); ri.ReturnQuantity > line.SelectedQuantity {
			return nil, fmt.Errorf("%w: %s", ErrReturnQuantity, ri.Title)
		}
		items = append(items, *ri)
	}
	if len(dups) > 0 {
		return nil, &DuplicateItemsError{Titles: dups}
	}

	owner := uid
	if order.UserID != nil {
		owner = *order.UserID
	}
	rr := &models.ReturnRequest{
		OrderID:     order.ID,
		UserID:      owner,
		Reason:      strings.TrimSpace(in.Reason),
		Description: strings.TrimSpace(in.Description),
		Status:      models.ReturnStatusPending,
		Items:       items,
	}
	if err := s.repo.Returns.Create(ctx, rr); err != nil {
		return nil, err
	}

	s.log.Info("return request created",
		zap.String("return_id", rr.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int("items", len(items)))
	return rr, nil
}

// Process выполняет действие администратора: approve или reject.
func (s *ReturnService) Process(ctx context.Context, id uuid.UUID, action string, in ApproveInput) (*ApproveResult, error) {
	switch action {
	case "approve":
		return s.Approve(ctx, id, in)
	case "reject":
		rr, err := s.Reject(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ApproveResult{Return: rr}, nil
	default:
		return nil, ErrInvalidAction
	}
}

// Approve возвращает деньги через провайдера и только после успеха фиксирует возврат в БД.
func (s *ReturnService) Approve(ctx context.Context, id uuid.UUID, in ApproveInput) (*ApproveResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	pct := hundred
	if in.Percentage != nil {
		pct = *in.Percentage
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return nil, ErrInvalidPercentage
	}

	rr, unlock, err := s.lockedReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if rr.Status != models.ReturnStatusPending {
		return nil, ErrReturnNotPending
	}

	order, err := s.repo.Orders.GetByID(ctx, rr.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentID == "" {
		return nil, ErrNoPaymentID
	}

	br := ComputeRefund(order, rr.Items)
	if !br.RefundAmount.IsPositive() {
		return nil, ErrInvalidRefundAmount
	}

	history, err := s.processor.RefundHistory(ctx, order.PaymentID, rr.ID.String())
	if err != nil {
		return nil, &ProcessorError{Op: "list refunds", Err: err}
	}

	var refundID string
	if history.Existing != nil {
		// возврат уже создан прошлой попыткой, осталось записать его в БД
		refundID = history.Existing.ID
		s.log.Warn("refund already issued for return, recording it",
			zap.String("return_id", rr.ID.String()), zap.String("refund_id", refundID))
	} else {
		refundID, err = s.issueRefund(ctx, order, rr, br, history.RefundedCents)
		if err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Returns.MarkRefunded(ctx, rr.ID, repository.RefundUpdate{
			Percentage: pct,
			Amount:     br.RefundAmount,
			Reason:     in.Reason,
			RefundID:   &refundID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrReturnNotPending
		}
		return tx.Orders.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusRefunded)
	})
	if err != nil {
		// деньги уже возвращены: повтор approve найдёт возврат по return_request_id
		s.log.Error("refund issued but not recorded",
			zap.String("return_id", rr.ID.String()), zap.String("refund_id", refundID), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Returns.GetByID(ctx, rr.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("return refunded",
		zap.String("return_id", rr.ID.String()),
		zap.String("refund_id", refundID),
		zap.String("amount", br.RefundAmount.StringFixed(2)))

	if s.events != nil {
		if err := s.events.PublishReturnRefunded(ctx, ReturnRefundedEvent{
			ReturnID:     rr.ID,
			OrderID:      order.ID,
			UserID:       rr.UserID,
			Email:        order.ShippingInfo.Email,
			RefundAmount: br.RefundAmount.StringFixed(2),
			Currency:     order.Currency,
			RefundID:     refundID,
			RefundedAt:   s.now(),
		}); err != nil {
			s.log.Warn("failed to publish return.refunded", zap.String("return_id", rr.ID.String()), zap.Error(err))
		}
	}

	return &ApproveResult{Return: updated, Breakdown: br, RefundID: refundID}, nil
}

// issueRefund проверяет остаток платежа и создаёт возврат. Параметры запроса
// берутся только из сохранённых данных, чтобы повтор с тем же ключом совпадал.
func (s *ReturnService) issueRefund(ctx context.Context, order *models.Order, rr *models.ReturnRequest, br RefundBreakdown, refunded int64) (string, error) {
	paid, err := s.processor.PaymentAmount(ctx, order.PaymentID)
	if err != nil {
		return "", &ProcessorError{Op: "retrieve payment", Err: err}
	}
	remaining := paid - refunded
	if ToCents(br.RefundAmount) > remaining {
		return "", &RefundExceedsRemainingError{
			Requested: br.RefundAmount,
			Remaining: FromCents(remaining),
			Refunded:  FromCents(refunded),
		}
	}

	res, err := s.processor.Refund(ctx, RefundRequest{
		PaymentIntentID: order.PaymentID,
		AmountCents:     ToCents(br.RefundAmount),
		IdempotencyKey:  "refund_" + rr.ID.String(),
		Metadata: map[string]string{
			"return_request_id": rr.ID.String(),
			"order_id":          order.ID.String(),
			"returned_items":    br.ReturnedItemsAmount.StringFixed(2),
			"returned_tax":      br.ReturnedItemsTax.StringFixed(2),
			"reason":            rr.Reason,
		},
	})
	switch {
	case errors.Is(err, ErrChargeAlreadyRefunded):
		s.log.Warn("charge already refunded, marking return as refunded",
			zap.String("return_id", rr.ID.String()), zap.String("payment_id", order.PaymentID))
		return alreadyRefundedID, nil
	case err != nil:
		return "", &ProcessorError{Op: "create refund", Err: err}
	}
	return res.ID, nil
}

// Reject закрывает заявку без движения денег.
func (s *ReturnService) Reject(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	rr, unlock, err := s.lockedReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if rr.Status != models.ReturnStatusPending {
		return nil, ErrReturnNotPending
	}

	order, err := s.repo.Orders.GetByID(ctx, rr.OrderID)
	if err != nil {
		return nil, err
	}
	// возврат мог пройти у провайдера без записи в БД: такую заявку отклонять нельзя
	if order != nil && order.PaymentID != "" && s.processor != nil {
		history, err := s.processor.RefundHistory(ctx, order.PaymentID, rr.ID.String())
		if err != nil {
			return nil, &ProcessorError{Op: "list refunds", Err: err}
		}
		if history.Existing != nil {
			return nil, ErrRefundAlreadyIssued
		}
	}

	ok, err := s.repo.Returns.MarkRejected(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReturnNotPending
	}
	rr.Status = models.ReturnStatusRejected

	s.log.Info("return rejected", zap.String("return_id", id.String()))

	if s.events != nil {
		var email string
		if order != nil {
			email = order.ShippingInfo.Email
		}
		if err := s.events.PublishReturnRejected(ctx, ReturnRejectedEvent{
			ReturnID:   rr.ID,
			OrderID:    rr.OrderID,
			UserID:     rr.UserID,
			Email:      email,
			RejectedAt: s.now(),
		}); err != nil {
			s.log.Warn("failed to publish return.rejected", zap.String("return_id", id.String()), zap.Error(err))
		}
	}
	return rr, nil
}

func (s *ReturnService) GetReturn(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	rr, err := s.repo.Returns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr == nil || (role != RoleAdmin && rr.UserID != uid) {
		return nil, ErrReturnNotFound
	}
	return rr, nil
}

// ListReturns: покупатель видит только свои заявки.
func (s *ReturnService) ListReturns(ctx context.Context, f repository.ReturnListFilter) ([]*models.ReturnRequest, int64, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	if role != RoleAdmin {
		f.UserID = &uid
	}
	return s.repo.Returns.List(ctx, f)
}

// RequestReturnShipment создаёт обратную отправку: адреса меняются местами.
func (s *ReturnService) RequestReturnShipment(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	rr, err := s.GetReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr.Status == models.ReturnStatusRejected {
		return nil, ErrReturnNotPending
	}
	if rr.ReturnTrackingNumber != nil || s.shipper == nil {
		return rr, nil
	}

	order, err := s.repo.Orders.GetByID(ctx, rr.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if rr.ReturnShipmentKey == nil {
		key, err := NewShipmentKey("return", rr.ID.String())
		if err != nil {
			return nil, err
		}
		if err := s.repo.Returns.SetReturnShipmentKey(ctx, rr.ID, key); err != nil {
			return nil, err
		}
		rr.ReturnShipmentKey = &key
	}

	items := make([]ShipmentItem, 0, len(rr.Items))
	for _, it := range rr.Items {
		items = append(items, ShipmentItem{
			Description: it.Title,
			SKU:         itemSKU(it.ProductID, it.SelectedSize, it.SelectedColor),
			Quantity:    it.ReturnQuantity,
			Value:       it.Price,
			Currency:    order.Currency,
		})
	}

	tracking, err := s.shipper.CreateShipment(ctx, ShipmentRequest{
		IdempotencyKey: *rr.ReturnShipmentKey,
		Customer:       customerAddress(order.ShippingInfo),
		IsReturn:       true,
		Items:          items,
		PostageType:    order.PostageType,
	})
	if err != nil {
		s.log.Warn("return shipment request failed", zap.String("return_id", rr.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCarrier, err)
	}
	if err := s.repo.Returns.SetReturnTrackingNumber(ctx, rr.ID, tracking); err != nil {
		return nil, err
	}
	rr.ReturnTrackingNumber = &tracking
	return rr, nil
}
