package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB            *gorm.DB
	Orders        OrderRepo
	Products      ProductRepo
	Variants      VariantRepo
	Returns       ReturnRepo
	PaymentEvents PaymentEventRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:            db,
		Orders:        NewOrderRepo(db),
		Products:      NewProductRepo(db),
		Variants:      NewVariantRepo(db),
		Returns:       NewReturnRepo(db),
		PaymentEvents: NewPaymentEventRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
