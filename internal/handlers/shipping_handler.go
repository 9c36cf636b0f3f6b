package handlers

import (
	"context"
	"net/http"
	"strings"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/service"
	"fulfillment-service/internal/shipping"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RatesQuoter interface {
	Rates(ctx context.Context, to service.Address, items []service.ShipmentItem) ([]shipping.Rate, error)
}

type ShippingHandler struct {
	quoter RatesQuoter
	log    *zap.Logger
}

func NewShippingHandler(quoter RatesQuoter, log *zap.Logger) *ShippingHandler {
	return &ShippingHandler{quoter: quoter, log: log}
}

// Rates godoc
// @Summary Стоимость доставки для корзины
// @Tags shipping
// @Accept json
// @Produce json
// @Param request body dto.RatesRequest true "Адрес и позиции"
// @Success 200 {object} map[string]any
// @Failure 502 {object} dto.UpstreamErrorResponse
// @Router /api/shipping/rates [post]
func (h *ShippingHandler) Rates(c *gin.Context) {
	var req dto.RatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	d := req.Destination
	to := service.Address{
		Name:         strings.TrimSpace(d.FirstName + " " + d.LastName),
		Address1:     d.Address,
		City:         d.City,
		ProvinceCode: d.ProvinceCode,
		PostalCode:   d.PostalCode,
		CountryCode:  d.CountryCode,
	}
	items := make([]service.ShipmentItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, service.ShipmentItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			Value:       decimal.NewFromFloat(li.ValueAmount),
			Currency:    li.CurrencyCode,
		})
	}

	rates, err := h.quoter.Rates(c.Request.Context(), to, items)
	if err != nil {
		h.log.Warn("stallion rates failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewUpstreamError("failed to fetch shipping rates", err.Error()))
		return
	}

	var cost any
	if best := shipping.CheapestRate(rates); best != nil {
		cost = best.Total
	}
	if rates == nil {
		rates = []shipping.Rate{}
	}
	c.JSON(http.StatusOK, gin.H{"cost": cost, "rates": rates})
}
