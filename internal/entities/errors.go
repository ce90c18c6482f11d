package entities

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrProcessing = errors.New("processing failed")
	ErrNotFound   = errors.New("not found")
)
