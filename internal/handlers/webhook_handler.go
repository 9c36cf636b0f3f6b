package handlers

import (
	"context"
	"io"
	"net/http"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stripe ограничивает тело события 64 КБ, берём с запасом.
const maxWebhookBody = 1 << 20

type CheckoutParser interface {
	ParseCheckoutCompleted(payload []byte, sigHeader string) (*service.PaymentCompleted, error)
}

type PaymentProcessor interface {
	HandleCheckoutCompleted(ctx context.Context, ev service.PaymentCompleted) (*models.Order, error)
}

type WebhookHandler struct {
	parser   CheckoutParser
	payments PaymentProcessor
	log      *zap.Logger
}

func NewWebhookHandler(parser CheckoutParser, payments PaymentProcessor, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{parser: parser, payments: payments, log: log}
}

// Stripe godoc
// @Summary Вебхук Stripe
// @Description Принимает checkout.session.completed и создаёт заказ ровно один раз
// @Tags payment
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/payment/webhook [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.log.Warn("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("cannot read body", nil))
		return
	}

	ev, err := h.parser.ParseCheckoutCompleted(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.Warn("webhook rejected", zap.Error(err))
		writeError(c, h.log, err)
		return
	}
	if ev == nil {
		// другие типы событий подтверждаем без обработки
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if _, err := h.payments.HandleCheckoutCompleted(c.Request.Context(), *ev); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
