package services

import (
	"errors"
	"fmt"
	"strings"

	"bevera/internal/repositories"
)

var (
	ErrNotFound            = repositories.ErrNotFound
	ErrConflict            = repositories.ErrConflict
	ErrConstraintViolation = repositories.ErrConstraintViolation

	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrEmptyCart         = errors.New("cart is empty")
)

// ValidationError reports one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ValidationErrors aggregates every rejected field of one request.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return strings.Join(parts, "; ")
}

func (e ValidationErrors) Unwrap() error { return ErrValidation }

// Fields maps field names to messages, first message wins.
func (e ValidationErrors) Fields() map[string]string {
	m := make(map[string]string, len(e))
	for _, v := range e {
		if _, ok := m[v.Field]; !ok {
			m[v.Field] = v.Message
		}
	}
	return m
}

func (e *ValidationErrors) add(field, message string) {
	*e = append(*e, &ValidationError{Field: field, Message: message})
}

func (e ValidationErrors) errOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StockShortage is one cart line that cannot be fulfilled.
type StockShortage struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (s StockShortage) Message() string {
	name := s.Name
	if name == "" {
		name = fmt.Sprintf("Product #%d", s.ProductID)
	}
	if s.Available <= 0 {
		return fmt.Sprintf("%s is no longer available.", name)
	}
	return fmt.Sprintf("%s: requested %d, only %d in stock.", name, s.Requested, s.Available)
}

// StockError lists every line that failed the stock check.
type StockError struct {
	Lines []StockShortage
}

func (e *StockError) Error() string {
	msgs := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		msgs[i] = l.Message()
	}
	return "insufficient stock: " + strings.Join(msgs, " ")
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
