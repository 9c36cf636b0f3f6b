package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidEvent         = errors.New("invalid payment event")
	ErrPaymentEventNotFound = errors.New("payment event not found")

	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")

	ErrQuantityInvalid   = errors.New("quantity must be > 0")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrVersionConflict   = errors.New("variant was modified concurrently")

	ErrReturnNotFound        = errors.New("return request not found")
	ErrReturnNotPending      = errors.New("return request is not pending")
	ErrEmptyItems            = errors.New("no items to return")
	ErrReasonRequired        = errors.New("return reason is required")
	ErrItemNotInOrder        = errors.New("item is not part of the order")
	ErrReturnQuantity        = errors.New("return quantity exceeds purchased quantity")
	ErrNoPaymentID           = errors.New("no payment id found for this order")
	ErrInvalidRefundAmount   = errors.New("invalid refund amount")
	ErrInvalidPercentage     = errors.New("refund percentage must be between 0 and 100")
	ErrInvalidAction         = errors.New("action must be approve or reject")
	ErrChargeAlreadyRefunded = errors.New("charge already refunded")
	ErrRefundAlreadyIssued   = errors.New("refund already issued for this return request")

	ErrCarrier  = errors.New("carrier request failed")
	ErrLockBusy = errors.New("entity is locked by another operation")
)

// DuplicateItemsError: часть позиций уже есть в активной заявке на возврат.
type DuplicateItemsError struct {
	Titles []string
}

func (e *DuplicateItemsError) Error() string {
	return "some items have already been requested for return: " + strings.Join(e.Titles, ", ")
}

type RefundExceedsRemainingError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
	Refunded  decimal.Decimal
}

func (e *RefundExceedsRemainingError) Error() string {
	return fmt.Sprintf("refund amount exceeds remaining refundable amount: requested %s, remaining %s",
		e.Requested.StringFixed(2), e.Remaining.StringFixed(2))
}

// ProcessorError: ошибка платёжного провайдера, БД при этом не менялась.
type ProcessorError struct {
	Op  string
	Err error
}

func (e *ProcessorError) Error() string { return "payment processor: " + e.Op + ": " + e.Err.Error() }
func (e *ProcessorError) Unwrap() error { return e.Err }
