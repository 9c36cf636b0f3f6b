package handlers

import (
	"context"
	"net/http"
	"strconv"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReturnsService interface {
	CreateReturn(ctx context.Context, in service.CreateReturnInput) (*models.ReturnRequest, error)
	Process(ctx context.Context, id uuid.UUID, action string, in service.ApproveInput) (*service.ApproveResult, error)
	GetReturn(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	ListReturns(ctx context.Context, f repository.ReturnListFilter) ([]*models.ReturnRequest, int64, error)
	RequestReturnShipment(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
}

type ReturnHandler struct {
	returns ReturnsService
	log     *zap.Logger
}

func NewReturnHandler(returns ReturnsService, log *zap.Logger) *ReturnHandler {
	return &ReturnHandler{returns: returns, log: log}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{{Field: name, Message: "must be a UUID"}}))
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// Create godoc
// @Summary Заявка на возврат
// @Tags returns
// @Accept json
// @Produce json
// @Param request body dto.CreateReturnRequest true "Позиции и причина"
// @Success 201 {object} dto.CreateReturnResponse
// @Failure 400 {object} dto.ValidationErrorResponse "В том числе duplicateItems"
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/returns [post]
func (h *ReturnHandler) Create(c *gin.Context) {
	var req dto.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid return request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("Missing required fields", nil))
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid orderId", nil))
		return
	}

	in := service.CreateReturnInput{
		OrderID:     orderID,
		Reason:      req.Reason,
		Description: req.Description,
		Items:       make([]service.ReturnItemInput, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid productId", []dto.FieldError{{Field: "items.productId", Message: it.ProductID}}))
			return
		}
		in.Items = append(in.Items, service.ReturnItemInput{
			ProductID: pid,
			Title:     it.Title,
			Size:      it.SelectedSize,
			Color:     it.SelectedColor,
			Quantity:  it.ReturnQuantity,
		})
	}

	rr, err := h.returns.CreateReturn(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateReturnResponse{Success: true, Request: dto.NewReturnRequestResponse(rr)})
}

// Process godoc
// @Summary Одобрить или отклонить возврат
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "ID заявки"
// @Param request body dto.ProcessReturnRequest true "approve или reject"
// @Success 200 {object} dto.ProcessReturnResponse
// @Failure 400 {object} dto.RefundExceededResponse
// @Failure 409 {object} dto.ConflictErrorResponse
// @Failure 502 {object} dto.UpstreamErrorResponse
// @Router /api/returns/{id} [patch]
func (h *ReturnHandler) Process(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ProcessReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError(service.ErrInvalidAction.Error(), nil))
		return
	}

	res, err := h.returns.Process(c.Request.Context(), id, req.Action, service.ApproveInput{
		Percentage: req.RefundPercentage,
		Reason:     req.RefundReason,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	out := dto.ProcessReturnResponse{Success: true, Request: dto.NewReturnRequestResponse(res.Return)}
	if res.RefundID != "" {
		amount := res.Breakdown.RefundAmount.StringFixed(2)
		out.Refund = &dto.RefundInfo{ID: res.RefundID, Amount: amount}
		out.RefundAmount = amount
		out.RefundPercentage = res.Return.RefundPercentage.StringFixed(2)
		out.ReturnedItemsAmount = res.Breakdown.ReturnedItemsAmount.StringFixed(2)
		out.ProductSubtotal = res.Breakdown.ProductSubtotal.StringFixed(2)
		out.ReturnedItemsTax = res.Breakdown.ReturnedItemsTax.StringFixed(2)
	}
	c.JSON(http.StatusOK, out)
}

// List godoc
// @Summary Список заявок на возврат
// @Tags returns
// @Produce json
// @Param userId query string false "Фильтр по пользователю (админ)"
// @Param orderId query string false "Фильтр по заказу"
// @Param status query string false "pending|refunded|rejected"
// @Success 200 {object} dto.ReturnListResponse
// @Router /api/returns [get]
func (h *ReturnHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	f := repository.ReturnListFilter{Limit: limit, Offset: offset}

	if v := c.Query("userId"); v != "" {
		uid, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid userId", nil))
			return
		}
		f.UserID = &uid
	}
	if v := c.Query("orderId"); v != "" {
		oid, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid orderId", nil))
			return
		}
		f.OrderID = &oid
	}
	if v := c.Query("status"); v != "" {
		st := models.ReturnStatus(v)
		f.Status = &st
	}

	list, total, err := h.returns.ListReturns(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReturnListResponse(list, total))
}

// Get godoc
// @Summary Заявка на возврат
// @Tags returns
// @Produce json
// @Param id path string true "ID заявки"
// @Success 200 {object} dto.ReturnRequestResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/returns/{id} [get]
func (h *ReturnHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	rr, err := h.returns.GetReturn(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReturnRequestResponse(rr))
}

// Ship godoc
// @Summary Создать обратную отправку
// @Tags returns
// @Produce json
// @Param id path string true "ID заявки"
// @Success 200 {object} dto.ReturnRequestResponse
// @Failure 502 {object} dto.UpstreamErrorResponse
// @Router /api/returns/{id}/shipment [post]
func (h *ReturnHandler) Ship(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	rr, err := h.returns.RequestReturnShipment(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReturnRequestResponse(rr))
}
