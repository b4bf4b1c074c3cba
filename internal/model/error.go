package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeGoodsNotFound         = "GOODS_NOT_FOUND"
	ErrCodeGoodsUnavailable      = "GOODS_UNAVAILABLE"
	ErrCodeReservationNotFound   = "RESERVATION_NOT_FOUND"
	ErrCodeCategoryNotFound      = "CATEGORY_NOT_FOUND"
	ErrCodeNoteNotFound          = "NOTE_NOT_FOUND"
	ErrCodeDuplicateReservation  = "DUPLICATE_RESERVATION"
	ErrCodeInsufficientStock     = "INSUFFICIENT_STOCK"
	ErrCodeNoAvailability        = "NO_AVAILABILITY"
	ErrCodeSalesLimitReached     = "SALES_LIMIT_REACHED"
	ErrCodeInvalidQuantity       = "INVALID_QUANTITY"
	ErrCodeInvalidTransition     = "INVALID_STATUS_TRANSITION"
	ErrCodeCategoryExists        = "CATEGORY_EXISTS"
	ErrCodeMediaStorageDisabled  = "MEDIA_STORAGE_DISABLED"
	ErrCodeUnauthorised          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeUpstreamNotification  = "UPSTREAM_NOTIFICATION_FAILED"
	ErrCodeParseFailed           = "PARSE_FAILED"
	ErrCodeInvalidProductURL     = "INVALID_PRODUCT_URL"
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeMethodNotAllowed      = "METHOD_NOT_ALLOWED"
	ErrCodeRequestEntityTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorKind classifies domain errors; handlers map kinds to HTTP status codes.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindValidation
	KindForbidden
	KindUpstream
)

// Domain errors for business logic
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error with a request-specific message.
func NewValidationError(message string) *DomainError {
	return NewDomainError(KindValidation, ErrCodeValidation, message)
}

// KindOf reports the kind of err, or KindInternal if it is not a domain error.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrGoodsNotFound        = NewDomainError(KindNotFound, ErrCodeGoodsNotFound, "Goods not found")
	ErrGoodsUnavailable     = NewDomainError(KindNotFound, ErrCodeGoodsUnavailable, "Goods are not available for reservation")
	ErrReservationNotFound  = NewDomainError(KindNotFound, ErrCodeReservationNotFound, "Reservation not found")
	ErrCategoryNotFound     = NewDomainError(KindNotFound, ErrCodeCategoryNotFound, "Category not found")
	ErrNoteNotFound         = NewDomainError(KindNotFound, ErrCodeNoteNotFound, "Category note not found")
	ErrDuplicateReservation = NewDomainError(KindConflict, ErrCodeDuplicateReservation, "You have already reserved these goods today")
	ErrInvalidTransition    = NewDomainError(KindConflict, ErrCodeInvalidTransition, "Reservation status does not allow this operation")
	ErrCategoryExists       = NewDomainError(KindConflict, ErrCodeCategoryExists, "Category with this name already exists")
	ErrInsufficientStock    = NewDomainError(KindInsufficientStock, ErrCodeInsufficientStock, "Not enough goods left for today")
	ErrNoAvailability       = NewDomainError(KindInsufficientStock, ErrCodeNoAvailability, "Goods are not available today")
	ErrSalesLimitReached    = NewDomainError(KindInsufficientStock, ErrCodeSalesLimitReached, "Total sales limit for these goods has been reached")
	ErrInvalidQuantity      = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrMediaStoreDisabled   = NewDomainError(KindValidation, ErrCodeMediaStorageDisabled, "Media uploads are not configured")
	ErrNotOwner             = NewDomainError(KindForbidden, ErrCodeForbidden, "Reservation belongs to another user")
)
