package models

import "errors"

var (
	// ErrNotFound is returned when a referenced food or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when request parameters are out of bounds.
	ErrValidation = errors.New("validation failed")
)
