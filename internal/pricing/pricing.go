// Package pricing computes order totals from the base fee, consumed
// materials and per-order-type surcharge rules.
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"clinic/internal/domain"
)

// MaterialLookup resolves catalog materials.
type MaterialLookup interface {
	MaterialByID(id string) (domain.Material, error)
}

// LineKind classifies a quote line.
type LineKind string

const (
	LineBase      LineKind = "base"
	LineMaterial  LineKind = "material"
	LineSurcharge LineKind = "surcharge"
)

// Line is one additive component of a total.
type Line struct {
	Kind      LineKind        `json:"kind"`
	Ref       string          `json:"ref"`
	Label     string          `json:"label"`
	Quantity  int64           `json:"quantity,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// Quote is a total with its breakdown.
type Quote struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Engine is stateless apart from the catalog and rule registry it was built with.
type Engine struct {
	materials MaterialLookup
	rules     Registry
}

func NewEngine(materials MaterialLookup, rules Registry) *Engine {
	if rules == nil {
		rules = Registry{}
	}
	return &Engine{materials: materials, rules: rules}
}

// ComputeTotal returns baseFee + Σ price·qty + Σ surcharges.
// A selected material missing from the catalog is a data integrity error.
func (e *Engine) ComputeTotal(t domain.OrderType, sel domain.Selection, in domain.Intake) (decimal.Decimal, error) {
	q, err := e.Quote(t, sel, in)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return q.Total, nil
}

// Quote computes the total together with its line items. Material lines are
// ordered by material id, surcharge lines by rule registration order; zero
// surcharges are omitted.
func (e *Engine) Quote(t domain.OrderType, sel domain.Selection, in domain.Intake) (Quote, error) {
	q := Quote{Total: t.BaseFee}
	q.Lines = append(q.Lines, Line{
		Kind:      LineBase,
		Ref:       t.ID,
		Label:     t.Name,
		Quantity:  1,
		UnitPrice: t.BaseFee,
		Amount:    t.BaseFee,
	})

	ids := make([]string, 0, len(sel))
	for id, qty := range sel {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		m, err := e.materials.MaterialByID(id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return Quote{}, fmt.Errorf("price order type %q: material %q: %w", t.ID, id, domain.ErrDataIntegrity)
			}
			return Quote{}, err
		}
		amount := m.Price.Mul(decimal.NewFromInt(sel[id]))
		q.Lines = append(q.Lines, Line{
			Kind:      LineMaterial,
			Ref:       m.ID,
			Label:     m.Name,
			Quantity:  sel[id],
			UnitPrice: m.Price,
			Amount:    amount,
		})
		q.Total = q.Total.Add(amount)
	}

	for _, r := range e.rules.Rules(t.ID) {
		inc := r.Apply(in)
		if !inc.IsPositive() {
			continue
		}
		q.Lines = append(q.Lines, Line{
			Kind:      LineSurcharge,
			Ref:       r.Name,
			Label:     r.Name,
			UnitPrice: inc,
			Amount:    inc,
		})
		q.Total = q.Total.Add(inc)
	}
	return q, nil
}
