package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidQuantity is returned for add requests with a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidVariant is returned when a size is not offered for a product.
	ErrInvalidVariant = errors.New("variant not offered for product")
	// ErrSoldOut is returned when a product has no stock left.
	ErrSoldOut = errors.New("sold out")
)
