package handlers

import (
	"context"
	"net/http"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/sweeper"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentAdmin interface {
	Replay(ctx context.Context, sessionID string) (*models.Order, error)
	RetryShipment(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type ReservationSweeper interface {
	RunOnceNow(ctx context.Context) (sweeper.Report, error)
}

type AdminHandler struct {
	payments PaymentAdmin
	sweeper  ReservationSweeper
	log      *zap.Logger
}

func NewAdminHandler(payments PaymentAdmin, sweeper ReservationSweeper, log *zap.Logger) *AdminHandler {
	return &AdminHandler{payments: payments, sweeper: sweeper, log: log}
}

// ReplayPayment godoc
// @Summary Повторно обработать событие оплаты из входящего ящика
// @Tags admin
// @Produce json
// @Param sessionId path string true "ID checkout-сессии"
// @Success 200 {object} dto.OrderResponse
// @Router /api/admin/payments/{sessionId}/replay [post]
func (h *AdminHandler) ReplayPayment(c *gin.Context) {
	o, err := h.payments.Replay(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// RetryShipment godoc
// @Summary Повторить запрос отправки для заказа без трек-номера
// @Tags admin
// @Produce json
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderResponse
// @Failure 502 {object} dto.UpstreamErrorResponse
// @Router /api/admin/orders/{id}/shipment [post]
func (h *AdminHandler) RetryShipment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	o, err := h.payments.RetryShipment(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// ReleaseReservations godoc
// @Summary Запустить проход свипера резервов
// @Tags admin
// @Produce json
// @Success 200 {object} dto.SweepResponse
// @Router /api/admin/reservations/release [post]
func (h *AdminHandler) ReleaseReservations(c *gin.Context) {
	rep, err := h.sweeper.RunOnceNow(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.SweepResponse{
		Success:  true,
		Expired:  rep.Expired,
		Orphaned: rep.Orphaned,
		Failed:   rep.Failed,
	})
}
