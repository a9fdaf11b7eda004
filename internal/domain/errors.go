package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned for unknown order, order type, material or field ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed request data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed means an order is not eligible for completion.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidTransition covers mutations of completed orders and unsupported status changes.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrDataIntegrity means stored data references ids absent from the catalogs.
	ErrDataIntegrity = errors.New("data integrity error")
)

// ValidationError carries the deficiencies blocking completion.
type ValidationError struct {
	MissingFields    []string `json:"missing_fields"`
	MissingMaterials []string `json:"missing_materials"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.MissingFields, ", "))
	}
	if len(e.MissingMaterials) > 0 {
		parts = append(parts, "missing materials: "+strings.Join(e.MissingMaterials, ", "))
	}
	if len(parts) == 0 {
		return ErrValidationFailed.Error()
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }
