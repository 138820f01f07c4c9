package repository

import "errors"

// Sentinel errors shared by all repositories. Services map these onto the
// API error taxonomy.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrInsufficientStock = errors.New("insufficient stock")
)
