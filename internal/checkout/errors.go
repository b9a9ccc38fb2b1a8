package checkout

import (
	"errors"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
)

var (
	ErrMissingUser        = errors.New("user id is required")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNegativeAmount     = errors.New("tax, shipping and discount must not be negative")
	ErrUserNotFound       = cart.ErrUserNotFound
	ErrOrderPersistFailed = errors.New("not all orders were persisted")
	ErrCartChanged        = errors.New("cart changed during checkout")
	ErrCartTooLarge       = errors.New("cart has too many lines")
	ErrInvalidStatus      = order.ErrUnknownStatus
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError is shared with the inventory package so the
// pre-check and the conditional decrement report the same type.
type InsufficientStockError = inventory.InsufficientStockError

type NoDealerError struct {
	ProductID string
}

func (e *NoDealerError) Error() string {
	return fmt.Sprintf("no dealer associated with product %s", e.ProductID)
}

// resultLabel names the outcome of a checkout for metrics.
func resultLabel(err error) string {
	var notFound *ProductNotFoundError
	var short *InsufficientStockError
	var noDealer *NoDealerError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingUser), errors.Is(err, ErrNegativeAmount), errors.Is(err, ErrInvalidStatus):
		return "invalid_request"
	case errors.Is(err, ErrCartTooLarge):
		return "cart_too_large"
	case errors.Is(err, ErrCartChanged):
		return "cart_changed"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &notFound):
		return "product_not_found"
	case errors.As(err, &short):
		return "insufficient_stock"
	case errors.As(err, &noDealer):
		return "no_dealer"
	case errors.Is(err, ErrOrderPersistFailed):
		return "persist_failed"
	default:
		return "error"
	}
}
