package service

import (
	"context"
	"errors"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReserveInput struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

type StockUpdate struct {
	Size     string
	Color    string
	Quantity int
}

type InventoryService struct {
	repo *repository.Repository
	log  *zap.Logger
	ttl  time.Duration
	now  func() time.Time

	newBackOff func() backoff.BackOff
}

func NewInventoryService(repo *repository.Repository, reservationTTL time.Duration, log *zap.Logger) *InventoryService {
	return &InventoryService{
		repo: repo,
		log:  log,
		ttl:  reservationTTL,
		now:  time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 3 * time.Second
			return b
		},
	}
}

// mutate выполняет read-modify-write варианта под блокировкой строки с проверкой version.
// Конфликт версии повторяется с экспоненциальной задержкой.
func (s *InventoryService) mutate(ctx context.Context, lock func(tx *repository.Repository) (*models.Variant, error), fn func(v *models.Variant) (bool, error)) (*models.Variant, error) {
	var out *models.Variant
	op := func() error {
		return s.repo.WithTx(ctx, func(tx *repository.Repository) error {
			v, err := lock(tx)
			if err != nil {
				return err
			}
			if v == nil {
				return ErrVariantNotFound
			}
			if err := applyTx(ctx, tx, v, fn); err != nil {
				return err
			}
			out = v
			return nil
		})
	}

	err := backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, ErrVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(s.newBackOff(), ctx))
	return out, err
}

// applyTx применяет переход к уже заблокированному варианту в текущей транзакции.
func applyTx(ctx context.Context, tx *repository.Repository, v *models.Variant, fn func(v *models.Variant) (bool, error)) error {
	changed, err := fn(v)
	if err != nil || !changed {
		return err
	}
	ok, err := tx.Variants.UpdateVersioned(ctx, v)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVersionConflict
	}
	return nil
}

func (s *InventoryService) Reserve(ctx context.Context, in ReserveInput) (*models.Variant, error) {
	if _, _, err := requireAuth(ctx); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, ErrQuantityInvalid
	}

	v, err := s.mutate(ctx,
		func(tx *repository.Repository) (*models.Variant, error) {
			return tx.Variants.LockByKey(ctx, in.ProductID, in.Size, in.Color)
		},
		func(v *models.Variant) (bool, error) {
			return true, Reserve(v, in.Quantity, s.ttl, s.now())
		})
	if err != nil {
		return nil, err
	}
	s.log.Info("inventory reserved",
		zap.String("variant_id", v.ID.String()),
		zap.Int("quantity", in.Quantity),
		zap.Timep("reserved_until", v.ReservedUntil))
	return v, nil
}

func (s *InventoryService) Release(ctx context.Context, variantID uuid.UUID) (*models.Variant, error) {
	return s.mutate(ctx,
		func(tx *repository.Repository) (*models.Variant, error) { return tx.Variants.LockByID(ctx, variantID) },
		func(v *models.Variant) (bool, error) { return Release(v), nil })
}

// Heal используется свипером: снимает просроченный или осиротевший резерв одного варианта.
func (s *InventoryService) Heal(ctx context.Context, variantID uuid.UUID) (HealResult, error) {
	var res HealResult
	_, err := s.mutate(ctx,
		func(tx *repository.Repository) (*models.Variant, error) { return tx.Variants.LockByID(ctx, variantID) },
		func(v *models.Variant) (bool, error) {
			res = Heal(v, s.now())
			return res != HealNone, nil
		})
	return res, err
}

// CommitTx списывает остаток внутри чужой транзакции (обработка оплаты).
// Отсутствующий вариант не считается ошибкой: оплата уже прошла.
func (s *InventoryService) CommitTx(ctx context.Context, tx *repository.Repository, productID uuid.UUID, size, color string, qty int) (shortfall int, err error) {
	v, err := tx.Variants.LockByKey(ctx, productID, size, color)
	if err != nil {
		return 0, err
	}
	if v == nil {
		s.log.Warn("variant not found on commit",
			zap.String("product_id", productID.String()), zap.String("size", size), zap.String("color", color))
		return qty, nil
	}
	err = applyTx(ctx, tx, v, func(v *models.Variant) (bool, error) {
		shortfall, err = Commit(v, qty)
		return err == nil, err
	})
	return shortfall, err
}

func (s *InventoryService) GetStock(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	p, err := s.repo.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// SetStock: ручная корректировка остатков администратором.
func (s *InventoryService) SetStock(ctx context.Context, productID uuid.UUID, updates []StockUpdate) (*models.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	for _, u := range updates {
		u := u
		_, err := s.mutate(ctx,
			func(tx *repository.Repository) (*models.Variant, error) {
				return tx.Variants.LockByKey(ctx, productID, u.Size, u.Color)
			},
			func(v *models.Variant) (bool, error) { return true, SetStock(v, u.Quantity) })
		if err != nil {
			return nil, err
		}
	}
	return s.GetStock(ctx, productID)
}
