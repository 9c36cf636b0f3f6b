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

type InventoryService interface {
	Reserve(ctx context.Context, in service.ReserveInput) (*models.Variant, error)
	GetStock(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	SetStock(ctx context.Context, productID uuid.UUID, updates []service.StockUpdate) (*models.Product, error)
}

type InventoryHandler struct {
	inventory InventoryService
	log       *zap.Logger
}

func NewInventoryHandler(inventory InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, log: log}
}

// Reserve godoc
// @Summary Зарезервировать вариант на время оформления
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body dto.ReserveRequest true "Вариант и количество"
// @Success 200 {object} dto.VariantResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Недостаточно товара"
// @Router /api/inventory/reservations [post]
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	pid, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid productId", nil))
		return
	}
	v, err := h.inventory.Reserve(c.Request.Context(), service.ReserveInput{
		ProductID: pid,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewVariantResponse(v))
}

// Get godoc
// @Summary Остатки товара по вариантам
// @Tags inventory
// @Produce json
// @Param productId path string true "ID товара"
// @Success 200 {object} dto.ProductStockResponse
// @Router /api/inventory/{productId} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	pid, ok := parseUUIDParam(c, "productId")
	if !ok {
		return
	}
	p, err := h.inventory.GetStock(c.Request.Context(), pid)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductStockResponse(p))
}

// SetStock godoc
// @Summary Корректировка остатков (админ)
// @Tags inventory
// @Accept json
// @Produce json
// @Param productId path string true "ID товара"
// @Param request body dto.StockUpdateRequest true "Новые количества"
// @Success 200 {object} dto.ProductStockResponse
// @Router /api/admin/inventory/{productId} [put]
func (h *InventoryHandler) SetStock(c *gin.Context) {
	pid, ok := parseUUIDParam(c, "productId")
	if !ok {
		return
	}
	var req dto.StockUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	updates := make([]service.StockUpdate, 0, len(req.Variants))
	for _, v := range req.Variants {
		updates = append(updates, service.StockUpdate{Size: v.Size, Color: v.Color, Quantity: *v.Quantity})
	}
	p, err := h.inventory.SetStock(c.Request.Context(), pid, updates)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductStockResponse(p))
}
