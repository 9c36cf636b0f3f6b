package service

import (
	"context"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
)

type ListOrdersFilter struct {
	UserID        *uuid.UUID
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
	Limit         int
	Offset        int
}

type OrderService struct {
	repo *repository.Repository
}

func NewOrderService(repo *repository.Repository) *OrderService {
	return &OrderService{repo: repo}
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	var ord *models.Order
	if role == RoleAdmin {
		ord, err = s.repo.Orders.GetByID(ctx, id)
	} else {
		ord, err = s.repo.Orders.GetByIDForUser(ctx, id, uid)
	}
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

// GetOrderBySession: страница успеха оплаты ищет заказ по id checkout-сессии.
func (s *OrderService) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	ord, err := s.repo.Orders.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	if role != RoleAdmin && (ord.UserID == nil || *ord.UserID != uid) {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *OrderService) ListOrders(ctx context.Context, f ListOrdersFilter) ([]*models.Order, int64, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}

	rf := repository.OrderListFilter{
		UserID:        f.UserID,
		Status:        f.Status,
		PaymentStatus: f.PaymentStatus,
		Limit:         f.Limit,
		Offset:        f.Offset,
	}
	// покупатель видит только свои заказы
	if role != RoleAdmin {
		rf.UserID = &uid
	}
	return s.repo.Orders.List(ctx, rf)
}
