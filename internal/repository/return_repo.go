package repository

import (
	"context"
	"errors"
	"fulfillment-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReturnListFilter struct {
	UserID  *uuid.UUID
	OrderID *uuid.UUID
	Status  *models.ReturnStatus
	Limit   int
	Offset  int
}

type RefundUpdate struct {
	Percentage decimal.Decimal
	Amount     decimal.Decimal
	Reason     *string
	RefundID   *string
}

type ReturnRepo interface {
	Create(ctx context.Context, rr *models.ReturnRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	// ListActiveByOrder: все заявки по заказу, кроме отклонённых
	ListActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error)
	List(ctx context.Context, f ReturnListFilter) ([]*models.ReturnRequest, int64, error)

	// Переходы статуса выполняются только из pending
	MarkRefunded(ctx context.Context, id uuid.UUID, upd RefundUpdate) (bool, error)
	MarkRejected(ctx context.Context, id uuid.UUID) (bool, error)

	SetReturnShipmentKey(ctx context.Context, id uuid.UUID, key string) error
	SetReturnTrackingNumber(ctx context.Context, id uuid.UUID, tracking string) error
}

type returnRepo struct{ db *gorm.DB }

func NewReturnRepo(db *gorm.DB) ReturnRepo { return &returnRepo{db: db} }

func (r *returnRepo) Create(ctx context.Context, rr *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(rr).Error
}

func (r *returnRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var rr models.ReturnRequest
	err := r.db.WithContext(ctx).Preload("Items").First(&rr, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rr, err
}

func (r *returnRepo) ListActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error) {
	var list []models.ReturnRequest
	err := r.db.WithContext(ctx).Preload("Items").
		Where("order_id = ? AND status <> ?", orderID, models.ReturnStatusRejected).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *returnRepo) List(ctx context.Context, f ReturnListFilter) ([]*models.ReturnRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ReturnRequest{})

	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []*models.ReturnRequest
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *returnRepo) MarkRefunded(ctx context.Context, id uuid.UUID, upd RefundUpdate) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", id, models.ReturnStatusPending).
		Updates(map[string]any{
			"status":            models.ReturnStatusRefunded,
			"refund_percentage": upd.Percentage,
			"refund_amount":     upd.Amount,
			"refund_reason":     upd.Reason,
			"refund_id":         upd.RefundID,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *returnRepo) MarkRejected(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", id, models.ReturnStatusPending).
		Update("status", models.ReturnStatusRejected)
	return tx.RowsAffected > 0, tx.Error
}

func (r *returnRepo) SetReturnShipmentKey(ctx context.Context, id uuid.UUID, key string) error {
	return r.db.WithContext(ctx).Model(&models.ReturnRequest{}).Where("id = ?", id).
		Update("return_shipment_key", key).Error
}

func (r *returnRepo) SetReturnTrackingNumber(ctx context.Context, id uuid.UUID, tracking string) error {
	return r.db.WithContext(ctx).Model(&models.ReturnRequest{}).Where("id = ?", id).
		Update("return_tracking_number", tracking).Error
}
