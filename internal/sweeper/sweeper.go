package sweeper

import (
	"context"
	"time"

	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultBatch = 500

type Report struct {
	Expired  int `json:"expired"`
	Orphaned int `json:"orphaned"`
	Failed   int `json:"failed"`
}

// Service снимает просроченные и «осиротевшие» резервы. Каждый вариант
// меняется через InventoryService под блокировкой строки.
type Service struct {
	repo      *repository.Repository
	inventory *service.InventoryService
	log       *zap.Logger
	batch     int
	now       func() time.Time
}

func NewService(repo *repository.Repository, inventory *service.InventoryService, log *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		inventory: inventory,
		log:       log,
		batch:     defaultBatch,
		now:       time.Now,
	}
}

// heal обрабатывает id пачками, пока находятся кандидаты и есть прогресс.
func (s *Service) heal(ctx context.Context, list func(limit int) ([]uuid.UUID, error), rep *Report) error {
	for {
		ids, err := list(s.batch)
		if err != nil {
			return err
		}
		progress := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.inventory.Heal(ctx, id)
			if err != nil {
				rep.Failed++
				s.log.Error("failed to heal variant reservation", zap.String("variant_id", id.String()), zap.Error(err))
				continue
			}
			switch res {
			case service.HealExpired:
				rep.Expired++
				progress++
			case service.HealOrphaned:
				rep.Orphaned++
				progress++
			}
		}
		if len(ids) < s.batch || progress == 0 {
			return nil
		}
	}
}

// ReleaseExpired освобождает резервы с reserved_until в прошлом.
func (s *Service) ReleaseExpired(ctx context.Context) (Report, error) {
	var rep Report
	now := s.now()
	err := s.heal(ctx, func(limit int) ([]uuid.UUID, error) {
		return s.repo.Variants.ListExpiredIDs(ctx, now, limit)
	}, &rep)
	if err != nil {
		s.log.Error("failed to release expired reservations", zap.Error(err))
		return rep, err
	}
	if rep.Expired > 0 {
		s.log.Info("released expired reservations", zap.Int("count", rep.Expired))
	}
	return rep, nil
}

// HealOrphaned обнуляет reserved_quantity там, где нет reserved_until.
func (s *Service) HealOrphaned(ctx context.Context) (Report, error) {
	var rep Report
	err := s.heal(ctx, func(limit int) ([]uuid.UUID, error) {
		return s.repo.Variants.ListOrphanedIDs(ctx, limit)
	}, &rep)
	if err != nil {
		s.log.Error("failed to heal orphaned reservations", zap.Error(err))
		return rep, err
	}
	if rep.Orphaned > 0 {
		s.log.Warn("healed orphaned reservations", zap.Int("count", rep.Orphaned))
	}
	return rep, nil
}

// RunOnce: полный проход свипера.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	expired, err := s.ReleaseExpired(ctx)
	if err != nil {
		return expired, err
	}
	orphaned, err := s.HealOrphaned(ctx)
	rep := Report{
		Expired:  expired.Expired + orphaned.Expired,
		Orphaned: expired.Orphaned + orphaned.Orphaned,
		Failed:   expired.Failed + orphaned.Failed,
	}
	return rep, err
}

// ResetAll снимает все резервы независимо от срока. Ручная операция.
func (s *Service) ResetAll(ctx context.Context) (int, error) {
	released := 0
	for {
		ids, err := s.repo.Variants.ListReservedIDs(ctx, s.batch)
		if err != nil {
			return released, err
		}
		progress := 0
		for _, id := range ids {
			if _, err := s.inventory.Release(ctx, id); err != nil {
				s.log.Error("failed to release variant", zap.String("variant_id", id.String()), zap.Error(err))
				continue
			}
			progress++
		}
		released += progress
		if len(ids) < s.batch || progress == 0 {
			break
		}
	}
	s.log.Info("all reservations reset", zap.Int("count", released))
	return released, nil
}
