package dto

import (
	"time"

	"fulfillment-service/internal/models"

	"github.com/shopspring/decimal"
)

type ReturnItemRequest struct {
	ProductID      string `json:"productId" binding:"required"`
	Title          string `json:"title"`
	SelectedSize   string `json:"selectedSize"`
	SelectedColor  string `json:"selectedColor"`
	ReturnQuantity int    `json:"returnQuantity" binding:"required,gt=0"`
}

// CreateReturnRequest: userId принимается для совместимости, владелец берётся из токена.
type CreateReturnRequest struct {
	OrderID     string              `json:"orderId" binding:"required"`
	UserID      string              `json:"userId"`
	Items       []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
	Reason      string              `json:"reason" binding:"required"`
	Description string              `json:"description"`
}

type ProcessReturnRequest struct {
	Action           string           `json:"action" binding:"required,oneof=approve reject"`
	RefundPercentage *decimal.Decimal `json:"refundPercentage"`
	RefundReason     *string          `json:"refundReason"`
}

type ReturnItemResponse struct {
	ProductID      string `json:"productId"`
	Title          string `json:"title"`
	SelectedSize   string `json:"selectedSize"`
	SelectedColor  string `json:"selectedColor"`
	ReturnQuantity int    `json:"returnQuantity"`
	Price          string `json:"price"`
}

type ReturnRequestResponse struct {
	ID                   string               `json:"id"`
	OrderID              string               `json:"orderId"`
	UserID               string               `json:"userId"`
	Items                []ReturnItemResponse `json:"items"`
	Reason               string               `json:"reason"`
	Description          string               `json:"description"`
	Status               string               `json:"status"`
	RefundPercentage     string               `json:"refundPercentage"`
	RefundAmount         string               `json:"refundAmount"`
	RefundReason         *string              `json:"refundReason,omitempty"`
	RefundID             *string              `json:"refundId,omitempty"`
	ReturnTrackingNumber *string              `json:"returnTrackingNumber,omitempty"`
	CreatedAt            time.Time            `json:"createdAt"`
}

type CreateReturnResponse struct {
	Success bool                  `json:"success"`
	Request ReturnRequestResponse `json:"request"`
}

type ReturnListResponse struct {
	Requests []ReturnRequestResponse `json:"requests"`
	Total    int64                   `json:"total"`
}

type RefundInfo struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

type ProcessReturnResponse struct {
	Success             bool                  `json:"success"`
	Request             ReturnRequestResponse `json:"request"`
	Refund              *RefundInfo           `json:"refund,omitempty"`
	RefundAmount        string                `json:"refundAmount,omitempty"`
	RefundPercentage    string                `json:"refundPercentage,omitempty"`
	ReturnedItemsAmount string                `json:"returnedItemsAmount,omitempty"`
	ProductSubtotal     string                `json:"productSubtotal,omitempty"`
	ReturnedItemsTax    string                `json:"returnedItemsTax,omitempty"`
}

func NewReturnRequestResponse(rr *models.ReturnRequest) ReturnRequestResponse {
	items := make([]ReturnItemResponse, 0, len(rr.Items))
	for _, it := range rr.Items {
		items = append(items, ReturnItemResponse{
			ProductID:      it.ProductID.String(),
			Title:          it.Title,
			SelectedSize:   it.SelectedSize,
			SelectedColor:  it.SelectedColor,
			ReturnQuantity: it.ReturnQuantity,
			Price:          it.Price.StringFixed(2),
		})
	}
	return ReturnRequestResponse{
		ID:                   rr.ID.String(),
		OrderID:              rr.OrderID.String(),
		UserID:               rr.UserID.String(),
		Items:                items,
		Reason:               rr.Reason,
		Description:          rr.Description,
		Status:               string(rr.Status),
		RefundPercentage:     rr.RefundPercentage.StringFixed(2),
		RefundAmount:         rr.RefundAmount.StringFixed(2),
		RefundReason:         rr.RefundReason,
		RefundID:             rr.RefundID,
		ReturnTrackingNumber: rr.ReturnTrackingNumber,
		CreatedAt:            rr.CreatedAt,
	}
}

func NewReturnListResponse(list []*models.ReturnRequest, total int64) ReturnListResponse {
	out := ReturnListResponse{Requests: make([]ReturnRequestResponse, 0, len(list)), Total: total}
	for _, rr := range list {
		out.Requests = append(out.Requests, NewReturnRequestResponse(rr))
	}
	return out
}
