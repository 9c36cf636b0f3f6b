package repository

import (
	"context"
	"errors"
	"fulfillment-service/internal/models"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentEventRepo interface {
	// Record сохраняет событие во входящий ящик; при повторной доставке увеличивает attempts.
	Record(ctx context.Context, ev *models.PaymentEvent) error
	Get(ctx context.Context, sessionID string) (*models.PaymentEvent, error)
	// Lock берёт строку на запись: повторные доставки одной сессии выполняются по очереди
	Lock(ctx context.Context, sessionID string) (*models.PaymentEvent, error)
	MarkProcessed(ctx context.Context, sessionID string, at time.Time) error
	MarkFailed(ctx context.Context, sessionID string, reason string) error
}

type paymentEventRepo struct{ db *gorm.DB }

func NewPaymentEventRepo(db *gorm.DB) PaymentEventRepo { return &paymentEventRepo{db: db} }

func (r *paymentEventRepo) Record(ctx context.Context, ev *models.PaymentEvent) error {
	if ev.Attempts == 0 {
		ev.Attempts = 1
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"attempts": gorm.Expr("payment_events.attempts + 1"),
				"event_id": ev.EventID,
			}),
		}).
		Create(ev).Error
}

func (r *paymentEventRepo) Get(ctx context.Context, sessionID string) (*models.PaymentEvent, error) {
	var ev models.PaymentEvent
	err := r.db.WithContext(ctx).First(&ev, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ev, err
}

func (r *paymentEventRepo) Lock(ctx context.Context, sessionID string) (*models.PaymentEvent, error) {
	var ev models.PaymentEvent
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ev, err
}

func (r *paymentEventRepo) MarkProcessed(ctx context.Context, sessionID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PaymentEvent{}).Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"status":       models.PaymentEventProcessed,
			"processed_at": at,
			"last_error":   nil,
		}).Error
}

func (r *paymentEventRepo) MarkFailed(ctx context.Context, sessionID string, reason string) error {
	if len(reason) > 1000 {
		reason = reason[:1000]
	}
	return r.db.WithContext(ctx).Model(&models.PaymentEvent{}).Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"status":     models.PaymentEventFailed,
			"last_error": reason,
		}).Error
}
