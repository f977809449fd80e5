package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity        = errors.New("quantity must be a positive integer")
	ErrInvalidUser            = errors.New("invalid user id")
	ErrProductNotFound        = errors.New("product not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrLineNotFound           = errors.New("cart line not found")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrCurrencyMismatch       = errors.New("product currency differs from the cart")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// PersistenceError wraps a backend failure. It matches ErrPersistenceUnavailable
// under errors.Is and unwraps to the driver error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrPersistenceUnavailable, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceUnavailable
}

func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Kind names the error class for logs, metrics and presentation.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInvalidUser):
		return "invalid_user"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrLineNotFound):
		return "line_not_found"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, ErrPersistenceUnavailable):
		return "persistence_unavailable"
	default:
		return "internal"
	}
}
