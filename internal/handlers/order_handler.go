package handlers

import (
	"context"
	"net/http"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrdersService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error)
	ListOrders(ctx context.Context, f service.ListOrdersFilter) ([]*models.Order, int64, error)
}

type OrderHandler struct {
	orders OrdersService
	log    *zap.Logger
}

func NewOrderHandler(orders OrdersService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// Get godoc
// @Summary Заказ по ID
// @Description 404, пока вебхук оплаты ещё не обработан
// @Tags orders
// @Produce json
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// List godoc
// @Summary Заказы пользователя или поиск по sessionId
// @Tags orders
// @Produce json
// @Param sessionId query string false "ID checkout-сессии"
// @Param status query string false "Статус заказа"
// @Success 200 {object} dto.OrderListResponse
// @Router /api/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	if sid := c.Query("sessionId"); sid != "" {
		o, err := h.orders.GetOrderBySession(c.Request.Context(), sid)
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewOrderResponse(o))
		return
	}

	limit, offset := pagination(c)
	f := service.ListOrdersFilter{Limit: limit, Offset: offset}
	if v := c.Query("status"); v != "" {
		st := models.OrderStatus(v)
		f.Status = &st
	}
	if v := c.Query("paymentStatus"); v != "" {
		ps := models.PaymentStatus(v)
		f.PaymentStatus = &ps
	}
	if v := c.Query("userId"); v != "" {
		uid, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid userId", nil))
			return
		}
		f.UserID = &uid
	}

	list, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderListResponse(list, total))
}
