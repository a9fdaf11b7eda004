package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_IsValidationFailed(t *testing.T) {
	var err error = &ValidationError{MissingFields: []string{"龋齿数量"}}
	wrapped := fmt.Errorf("complete ord2: %w", err)

	assert.True(t, errors.Is(wrapped, ErrValidationFailed))
	assert.False(t, errors.Is(wrapped, ErrInvalidTransition))

	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, []string{"龋齿数量"}, ve.MissingFields)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{
		MissingFields:    []string{"A", "B"},
		MissingMaterials: []string{"X"},
	}
	assert.Equal(t, "validation failed: missing fields: A, B; missing materials: X", err.Error())
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())
}

func TestSelection_NormalizeDropsNonPositive(t *testing.T) {
	s := Selection{"mat1": 2, "mat2": 0, "mat3": -1}
	assert.Equal(t, Selection{"mat1": 2}, s.Normalize())
	assert.Len(t, s, 3)
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o := Order{ID: "o1", Materials: Selection{"mat1": 1}, Intake: Intake{"a": "x"}}
	cp := o.Clone()
	cp.Materials["mat1"] = 5
	cp.Intake["a"] = "y"

	assert.Equal(t, int64(1), o.Materials["mat1"])
	assert.Equal(t, "x", o.Intake["a"])
}

func TestStatusAndKindValidity(t *testing.T) {
	assert.True(t, OrderStatusInProgress.Valid())
	assert.False(t, OrderStatus("cancelled").Valid())
	assert.True(t, FieldCheckbox.Valid())
	assert.False(t, FieldKind("date").Valid())
}
