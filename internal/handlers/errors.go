package handlers

import (
	"errors"
	"net/http"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError переводит доменную ошибку в HTTP-ответ.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var (
		dup      *service.DuplicateItemsError
		exceeded *service.RefundExceedsRemainingError
		procErr  *service.ProcessorError
	)

	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusBadRequest, dto.NewDuplicateItemsError(dup.Titles))
	case errors.As(err, &exceeded):
		c.JSON(http.StatusBadRequest, dto.RefundExceededResponse{
			BaseError: dto.BaseError{
				Code:    "refund_exceeds_remaining",
				Message: "Refund amount exceeds remaining refundable amount",
				Error:   "Refund amount exceeds remaining refundable amount",
			},
			RequestedRefund:     exceeded.Requested.StringFixed(2),
			RemainingRefundable: exceeded.Remaining.StringFixed(2),
			TotalRefunded:       exceeded.Refunded.StringFixed(2),
		})
	case errors.As(err, &procErr):
		log.Error("payment processor error", zap.String("op", procErr.Op), zap.Error(procErr.Err))
		c.JSON(http.StatusBadGateway, dto.NewUpstreamError("Failed to create refund", procErr.Err.Error()))

	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError(err.Error()))

	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrReturnNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrPaymentEventNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))

	case errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrItemNotInOrder),
		errors.Is(err, service.ErrReturnQuantity),
		errors.Is(err, service.ErrQuantityInvalid),
		errors.Is(err, service.ErrNoPaymentID),
		errors.Is(err, service.ErrInvalidRefundAmount),
		errors.Is(err, service.ErrInvalidPercentage),
		errors.Is(err, service.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))

	case errors.Is(err, service.ErrReturnNotPending),
		errors.Is(err, service.ErrRefundAlreadyIssued),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrVersionConflict),
		errors.Is(err, service.ErrLockBusy):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))

	case errors.Is(err, service.ErrCarrier):
		log.Warn("carrier error", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewUpstreamError("carrier request failed", err.Error()))

	default:
		log.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}
