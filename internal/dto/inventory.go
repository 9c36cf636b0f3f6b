package dto

import (
	"time"

	"fulfillment-service/internal/models"
)

type ReserveRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Size      string `json:"selectedSize"`
	Color     string `json:"selectedColor"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type StockUpdateRequest struct {
	Variants []StockVariant `json:"variants" binding:"required,min=1,dive"`
}

type StockVariant struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity *int   `json:"quantity" binding:"required,gte=0"`
}

type VariantResponse struct {
	ID               string     `json:"id"`
	Size             string     `json:"size"`
	Color            string     `json:"color"`
	Quantity         int        `json:"quantity"`
	ReservedQuantity int        `json:"reservedQuantity"`
	Available        int        `json:"available"`
	ReservedUntil    *time.Time `json:"reservedUntil"`
}

type ProductStockResponse struct {
	ProductID string            `json:"productId"`
	Title     string            `json:"title"`
	Variants  []VariantResponse `json:"variants"`
}

type SweepResponse struct {
	Success  bool `json:"success"`
	Expired  int  `json:"expired"`
	Orphaned int  `json:"orphaned"`
	Failed   int  `json:"failed"`
}

type RatesRequest struct {
	Destination struct {
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		Address      string `json:"address"`
		City         string `json:"city"`
		ProvinceCode string `json:"province_code"`
		PostalCode   string `json:"postal_code"`
		CountryCode  string `json:"country_code" binding:"required"`
	} `json:"destination"`
	LineItems []struct {
		Description  string  `json:"description"`
		Quantity     int     `json:"quantity" binding:"gt=0"`
		ValueAmount  float64 `json:"value_amount"`
		CurrencyCode string  `json:"currency_code"`
	} `json:"line_items" binding:"required,min=1,dive"`
}

func NewVariantResponse(v *models.Variant) VariantResponse {
	return VariantResponse{
		ID:               v.ID.String(),
		Size:             v.Size,
		Color:            v.Color,
		Quantity:         v.Quantity,
		ReservedQuantity: v.ReservedQuantity,
		Available:        v.Available(),
		ReservedUntil:    v.ReservedUntil,
	}
}

func NewProductStockResponse(p *models.Product) ProductStockResponse {
	out := ProductStockResponse{
		ProductID: p.ID.String(),
		Title:     p.Title,
		Variants:  make([]VariantResponse, 0, len(p.Variants)),
	}
	for i := range p.Variants {
		out.Variants = append(out.Variants, NewVariantResponse(&p.Variants[i]))
	}
	return out
}
