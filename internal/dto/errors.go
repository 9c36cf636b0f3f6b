package dto

// BaseError универсальный корневой формат ошибки
// Code: машинно-ориентированный код (snake_case)
// Message: краткое человеко-читаемое описание
// Error: то же сообщение под ключом, который ждёт фронтенд магазина
// DuplicateItems: названия позиций, уже поданных на возврат
type BaseError struct {
	Code           string       `json:"code"`
	Message        string       `json:"message"`
	Error          string       `json:"error"`
	Details        string       `json:"details,omitempty"`
	DuplicateItems []string     `json:"duplicateItems,omitempty"`
	Fields         []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// ValidationErrorResponse 400
type ValidationErrorResponse BaseError

// ConflictErrorResponse 409
type ConflictErrorResponse BaseError

// UnauthorizedErrorResponse 401
type UnauthorizedErrorResponse BaseError

// ForbiddenErrorResponse 403
type ForbiddenErrorResponse BaseError

// NotFoundErrorResponse 404
type NotFoundErrorResponse BaseError

// UpstreamErrorResponse 502: ошибка Stripe или перевозчика
type UpstreamErrorResponse BaseError

// InternalErrorResponse 500
type InternalErrorResponse BaseError

// RefundExceededResponse 400: запрошенный возврат больше остатка по платежу
type RefundExceededResponse struct {
	BaseError
	RequestedRefund     string `json:"requestedRefund"`
	RemainingRefundable string `json:"remainingRefundable"`
	TotalRefunded       string `json:"totalRefunded"`
}

func base(code, msg string) BaseError {
	return BaseError{Code: code, Message: msg, Error: msg}
}

func NewValidationError(msg string, fields []FieldError) ValidationErrorResponse {
	b := base("validation_error", msg)
	b.Fields = fields
	return ValidationErrorResponse(b)
}
func NewDuplicateItemsError(titles []string) ValidationErrorResponse {
	b := base("duplicate_items", "Some items have already been requested for return")
	b.DuplicateItems = titles
	return ValidationErrorResponse(b)
}
func NewConflictError(msg string) ConflictErrorResponse {
	return ConflictErrorResponse(base("conflict", msg))
}
func NewUnauthorizedError(msg string) UnauthorizedErrorResponse {
	return UnauthorizedErrorResponse(base("unauthorized", msg))
}
func NewForbiddenError(msg string) ForbiddenErrorResponse {
	return ForbiddenErrorResponse(base("forbidden", msg))
}
func NewNotFoundError(msg string) NotFoundErrorResponse {
	return NotFoundErrorResponse(base("not_found", msg))
}
func NewUpstreamError(msg, details string) UpstreamErrorResponse {
	b := base("upstream_error", msg)
	b.Details = details
	return UpstreamErrorResponse(b)
}
func NewInternalError(details string) InternalErrorResponse {
	b := base("internal_error", "internal server error")
	b.Details = details
	return InternalErrorResponse(b)
}
