package models

import "errors"

// Error taxonomy shared by the item store and the offer engine. All four
// are expected, caller-recoverable conditions; the API layer maps them to
// 404/403/409/400. Anything else is an infrastructure fault.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("invalid input")
)
