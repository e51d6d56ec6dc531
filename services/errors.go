package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies service errors so the HTTP layer can pick a status code
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindBusinessRule
	KindNotFound
	KindConflict
	KindExternal
	KindForbidden
	KindUnauthenticated
)

// Error is a domain error with a stable machine-readable code
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code, so sentinels match copies carrying a more specific message
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e with a more specific message
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrUserNotFound          = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrStickerNotFound       = &Error{Kind: KindNotFound, Code: "STICKER_NOT_FOUND", Message: "Sticker not found"}
	ErrCategoryNotFound      = &Error{Kind: KindNotFound, Code: "CATEGORY_NOT_FOUND", Message: "Category not found"}
	ErrOrderNotFound         = &Error{Kind: KindNotFound, Code: "ORDER_NOT_FOUND", Message: "Order not found"}
	ErrOrderItemNotFound     = &Error{Kind: KindNotFound, Code: "ORDER_ITEM_NOT_FOUND", Message: "Cart item not found"}
	ErrCustomStickerNotFound = &Error{Kind: KindNotFound, Code: "REQUEST_NOT_FOUND", Message: "Custom sticker request not found"}

	ErrValidation       = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "Invalid request data"}
	ErrUnknownCategory  = &Error{Kind: KindValidation, Code: "UNKNOWN_CATEGORY", Message: "Category not found"}
	ErrInvalidAction    = &Error{Kind: KindValidation, Code: "INVALID_ACTION", Message: "Action must be 'increase' or 'decrease'"}
	ErrInvalidStatus    = &Error{Kind: KindValidation, Code: "INVALID_STATUS", Message: "Invalid status"}
	ErrInvalidMethod    = &Error{Kind: KindValidation, Code: "INVALID_PAYMENT_METHOD", Message: "Payment method must be one of stripe, cash, tikkie"}
	ErrInvalidPrice     = &Error{Kind: KindValidation, Code: "INVALID_PRICE", Message: "Price must be a non-negative amount"}
	ErrInvalidStock     = &Error{Kind: KindValidation, Code: "INVALID_STOCK", Message: "Stock must be zero or more"}
	ErrDuplicateSticker = &Error{Kind: KindConflict, Code: "DUPLICATE_STICKER", Message: "A sticker with this name already exists"}
	ErrDuplicateName    = &Error{Kind: KindConflict, Code: "DUPLICATE_NAME", Message: "A record with this name already exists"}
	ErrUserExists       = &Error{Kind: KindConflict, Code: "USER_EXISTS", Message: "Username or email already exists"}

	ErrEmptyCart           = &Error{Kind: KindBusinessRule, Code: "EMPTY_CART", Message: "Your cart is empty"}
	ErrInsufficientStock   = &Error{Kind: KindBusinessRule, Code: "INSUFFICIENT_STOCK", Message: "Not enough stock"}
	ErrStickerUnavailable  = &Error{Kind: KindBusinessRule, Code: "STICKER_UNAVAILABLE", Message: "Sticker is not available"}
	ErrInvalidTransition   = &Error{Kind: KindBusinessRule, Code: "INVALID_TRANSITION", Message: "Status transition not allowed"}
	ErrPaymentNotConfirmed = &Error{Kind: KindBusinessRule, Code: "PAYMENT_NOT_CONFIRMED", Message: "Payment has not been completed"}
	ErrCategoryInUse       = &Error{Kind: KindBusinessRule, Code: "CATEGORY_IN_USE", Message: "Category still has stickers"}
	ErrRequestNotApproved  = &Error{Kind: KindBusinessRule, Code: "REQUEST_NOT_APPROVED", Message: "Request must be approved first"}
	ErrPaymentReceived     = &Error{Kind: KindBusinessRule, Code: "PAYMENT_RECEIVED", Message: "The customer already paid for this order"}

	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	ErrForbidden          = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "You do not have permission to access this order"}

	ErrPaymentGateway = &Error{Kind: KindExternal, Code: "PAYMENT_GATEWAY_ERROR", Message: "Payment gateway request failed"}
	ErrStorage        = &Error{Kind: KindExternal, Code: "STORAGE_ERROR", Message: "Image storage request failed"}
)

// notFoundOr maps gorm.ErrRecordNotFound to notFound and wraps any other error
func notFoundOr(err error, notFound *Error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

// duplicateOr maps a unique constraint violation to duplicate and wraps any other error
func duplicateOr(err error, duplicate *Error, action string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return duplicate
	}
	return fmt.Errorf("%s: %w", action, err)
}
