package dto

import (
	"time"

	"fulfillment-service/internal/models"
)

type ShippingInfoResponse struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

type OrderItemResponse struct {
	ProductID        string `json:"productId"`
	Title            string `json:"title"`
	SelectedSize     string `json:"selectedSize"`
	SelectedColor    string `json:"selectedColor"`
	SelectedQuantity int    `json:"selectedQuantity"`
	Price            string `json:"price"`
}

type OrderResponse struct {
	ID             string               `json:"id"`
	UserID         *string              `json:"userId"`
	ShippingInfo   ShippingInfoResponse `json:"shippingInfo"`
	Items          []OrderItemResponse  `json:"items"`
	Total          string               `json:"total"`
	Tax            string               `json:"tax"`
	TaxRate        string               `json:"taxRate"`
	ShippingCost   string               `json:"shippingCost"`
	Currency       string               `json:"currency"`
	PaymentID      string               `json:"paymentId"`
	SessionID      string               `json:"sessionId"`
	PaymentStatus  string               `json:"paymentStatus"`
	Status         string               `json:"status"`
	TrackingNumber *string              `json:"trackingNumber"`
	InvoiceURL     *string              `json:"invoiceUrl,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
}

func NewOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:        it.ProductID.String(),
			Title:            it.Title,
			SelectedSize:     it.SelectedSize,
			SelectedColor:    it.SelectedColor,
			SelectedQuantity: it.SelectedQuantity,
			Price:            it.Price.StringFixed(2),
		})
	}
	var uid *string
	if o.UserID != nil {
		s := o.UserID.String()
		uid = &s
	}
	si := o.ShippingInfo
	return OrderResponse{
		ID:     o.ID.String(),
		UserID: uid,
		ShippingInfo: ShippingInfoResponse{
			Email:     si.Email,
			FirstName: si.FirstName,
			LastName:  si.LastName,
			Address:   si.Address,
			Address2:  si.Address2,
			City:      si.City,
			State:     si.State,
			ZipCode:   si.ZipCode,
			Country:   si.Country,
		},
		Items:          items,
		Total:          o.Total.StringFixed(2),
		Tax:            o.Tax.StringFixed(2),
		TaxRate:        o.TaxRate.String(),
		ShippingCost:   o.ShippingCost.StringFixed(2),
		Currency:       o.Currency,
		PaymentID:      o.PaymentID,
		SessionID:      o.SessionID,
		PaymentStatus:  string(o.PaymentStatus),
		Status:         string(o.Status),
		TrackingNumber: o.TrackingNumber,
		InvoiceURL:     o.InvoiceURL,
		CreatedAt:      o.CreatedAt,
	}
}

func NewOrderListResponse(list []*models.Order, total int64) OrderListResponse {
	out := OrderListResponse{Orders: make([]OrderResponse, 0, len(list)), Total: total}
	for _, o := range list {
		out.Orders = append(out.Orders, NewOrderResponse(o))
	}
	return out
}
