package service

import (
	"fulfillment-service/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type RefundBreakdown struct {
	ReturnedItemsAmount decimal.Decimal
	ProductSubtotal     decimal.Decimal
	ReturnProportion    decimal.Decimal
	ReturnedItemsTax    decimal.Decimal
	RefundAmount        decimal.Decimal
}

// ComputeRefund считает возврат по ценам позиций заказа и пропорциональную долю налога.
// Доставка не возвращается. Округление до центов, половина от нуля.
func ComputeRefund(order *models.Order, items []models.ReturnItem) RefundBreakdown {
	returned := decimal.Zero
	for _, it := range items {
		price := it.Price
		if line := order.FindItem(it.ProductID, it.SelectedSize, it.SelectedColor); line != nil {
			price = line.Price
		}
		returned = returned.Add(price.Mul(decimal.NewFromInt(int64(it.ReturnQuantity))))
	}

	subtotal := order.Subtotal()
	proportion := decimal.Zero
	tax := decimal.Zero
	if subtotal.IsPositive() {
		proportion = returned.Div(subtotal)
		tax = order.Tax.Mul(returned).Div(subtotal)
	}

	return RefundBreakdown{
		ReturnedItemsAmount: returned.Round(2),
		ProductSubtotal:     subtotal.Round(2),
		ReturnProportion:    proportion,
		ReturnedItemsTax:    tax.Round(2),
		RefundAmount:        returned.Add(tax).Round(2),
	}
}

// ToCents переводит сумму в минимальные единицы валюты.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
