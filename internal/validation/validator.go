// Package validation decides whether an order carries everything it needs
// to be completed.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"clinic/internal/domain"
)

// MaterialLookup resolves material names for deficiency reports.
type MaterialLookup interface {
	MaterialByID(id string) (domain.Material, error)
}

// Result lists deficiencies in definition order.
type Result struct {
	MissingFields    []string `json:"missing_fields"`
	MissingMaterials []string `json:"missing_materials"`
}

// OK reports whether the order is eligible for completion.
func (r Result) OK() bool {
	return len(r.MissingFields) == 0 && len(r.MissingMaterials) == 0
}

// Err returns a *domain.ValidationError for a failing result, nil otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &domain.ValidationError{MissingFields: r.MissingFields, MissingMaterials: r.MissingMaterials}
}

type Validator struct {
	materials MaterialLookup
}

func NewValidator(materials MaterialLookup) *Validator {
	return &Validator{materials: materials}
}

// Validate reports missing required fields (by label) and missing required
// materials (by name). It never mutates its arguments.
func (v *Validator) Validate(t domain.OrderType, in domain.Intake, sel domain.Selection) (Result, error) {
	res := Result{MissingFields: []string{}, MissingMaterials: []string{}}

	for _, f := range t.FormFields {
		if f.Required && fieldMissing(f, in) {
			res.MissingFields = append(res.MissingFields, f.Label)
		}
	}

	for _, id := range t.RequiredMaterials {
		if sel[id] > 0 {
			continue
		}
		m, err := v.materials.MaterialByID(id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return Result{}, fmt.Errorf("order type %q requires material %q: %w", t.ID, id, domain.ErrDataIntegrity)
			}
			return Result{}, err
		}
		res.MissingMaterials = append(res.MissingMaterials, m.Name)
	}
	return res, nil
}

// A checkbox always carries a value once touched, so only an unrecorded
// checkbox is missing. Other kinds must hold a truthy value.
func fieldMissing(f domain.FormField, in domain.Intake) bool {
	v, ok := in[f.ID]
	if f.Kind == domain.FieldCheckbox {
		return !ok || v == nil
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) == ""
	}
	return !domain.Truthy(v)
}
