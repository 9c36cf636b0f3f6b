package repository

import (
	"context"
	"errors"
	"fulfillment-service/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VariantRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	// Блокирующие чтения (SELECT ... FOR UPDATE), только внутри транзакции
	LockByID(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	LockByKey(ctx context.Context, productID uuid.UUID, size, color string) (*models.Variant, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error)

	// UpdateVersioned пишет количества только если version не изменилась с момента чтения.
	// При успехе v.Version увеличивается.
	UpdateVersioned(ctx context.Context, v *models.Variant) (bool, error)

	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListOrphanedIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	ListReservedIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type variantRepo struct{ db *gorm.DB }

func NewVariantRepo(db *gorm.DB) VariantRepo { return &variantRepo{db: db} }

func (r *variantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *variantRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *variantRepo) LockByKey(ctx context.Context, productID uuid.UUID, size, color string) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&v, "product_id = ? AND size = ? AND color = ?", productID, size, color).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *variantRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error) {
	var list []models.Variant
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("size ASC, color ASC").Find(&list).Error
	return list, err
}

func (r *variantRepo) UpdateVersioned(ctx context.Context, v *models.Variant) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE product_variants
SET quantity          = @q,
    reserved_quantity = @rq,
    reserved_until    = @ru,
    version           = version + 1,
    updated_at        = now()
WHERE id = @id
  AND version = @ver
`, map[string]any{
		"q":   v.Quantity,
		"rq":  v.ReservedQuantity,
		"ru":  v.ReservedUntil,
		"id":  v.ID,
		"ver": v.Version,
	})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 0 {
		return false, nil
	}
	v.Version++
	return true, nil
}

func (r *variantRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Variant{}).
		Where("reserved_until IS NOT NULL AND reserved_until < ?", now).
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *variantRepo) ListOrphanedIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Variant{}).
		Where("reserved_quantity > 0 AND reserved_until IS NULL").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *variantRepo) ListReservedIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Variant{}).
		Where("reserved_quantity > 0 OR reserved_until IS NOT NULL").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
