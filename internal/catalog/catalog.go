// Package catalog holds the immutable material and order-type reference data.
package catalog

import (
	"fmt"

	"clinic/internal/domain"
)

// Catalog is loaded once at startup and never mutated afterwards.
// Lookups are safe for concurrent use.
type Catalog struct {
	materials     []domain.Material
	orderTypes    []domain.OrderType
	materialsByID map[string]int
	typesByID     map[string]int
}

// New validates the reference data and builds the lookup indexes.
func New(materials []domain.Material, orderTypes []domain.OrderType) (*Catalog, error) {
	c := &Catalog{
		materials:     make([]domain.Material, 0, len(materials)),
		orderTypes:    make([]domain.OrderType, 0, len(orderTypes)),
		materialsByID: make(map[string]int, len(materials)),
		typesByID:     make(map[string]int, len(orderTypes)),
	}

	for _, m := range materials {
		if m.ID == "" || m.Name == "" {
			return nil, fmt.Errorf("material %q: id and name are required: %w", m.ID, domain.ErrInvalidInput)
		}
		if m.Price.IsNegative() {
			return nil, fmt.Errorf("material %q: negative price: %w", m.ID, domain.ErrInvalidInput)
		}
		if _, dup := c.materialsByID[m.ID]; dup {
			return nil, fmt.Errorf("material %q: duplicate id: %w", m.ID, domain.ErrInvalidInput)
		}
		c.materialsByID[m.ID] = len(c.materials)
		c.materials = append(c.materials, m)
	}

	for _, t := range orderTypes {
		if err := c.checkOrderType(t); err != nil {
			return nil, err
		}
		c.typesByID[t.ID] = len(c.orderTypes)
		c.orderTypes = append(c.orderTypes, cloneOrderType(t))
	}
	return c, nil
}

func (c *Catalog) checkOrderType(t domain.OrderType) error {
	if t.ID == "" || t.Name == "" {
		return fmt.Errorf("order type %q: id and name are required: %w", t.ID, domain.ErrInvalidInput)
	}
	if _, dup := c.typesByID[t.ID]; dup {
		return fmt.Errorf("order type %q: duplicate id: %w", t.ID, domain.ErrInvalidInput)
	}
	if t.BaseFee.IsNegative() {
		return fmt.Errorf("order type %q: negative base fee: %w", t.ID, domain.ErrInvalidInput)
	}
	for _, id := range t.RequiredMaterials {
		if _, ok := c.materialsByID[id]; !ok {
			return fmt.Errorf("order type %q requires unknown material %q: %w", t.ID, id, domain.ErrDataIntegrity)
		}
	}
	seen := make(map[string]struct{}, len(t.FormFields))
	for _, f := range t.FormFields {
		if f.ID == "" {
			return fmt.Errorf("order type %q: field without id: %w", t.ID, domain.ErrInvalidInput)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("order type %q: duplicate field %q: %w", t.ID, f.ID, domain.ErrInvalidInput)
		}
		seen[f.ID] = struct{}{}
		if !f.Kind.Valid() {
			return fmt.Errorf("order type %q field %q: unknown kind %q: %w", t.ID, f.ID, f.Kind, domain.ErrInvalidInput)
		}
		if f.Kind == domain.FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("order type %q field %q: select without options: %w", t.ID, f.ID, domain.ErrInvalidInput)
		}
	}
	return nil
}

// MaterialByID returns the material or domain.ErrNotFound.
func (c *Catalog) MaterialByID(id string) (domain.Material, error) {
	i, ok := c.materialsByID[id]
	if !ok {
		return domain.Material{}, fmt.Errorf("material %q: %w", id, domain.ErrNotFound)
	}
	return c.materials[i], nil
}

// OrderTypeByID returns the order type or domain.ErrNotFound.
func (c *Catalog) OrderTypeByID(id string) (domain.OrderType, error) {
	i, ok := c.typesByID[id]
	if !ok {
		return domain.OrderType{}, fmt.Errorf("order type %q: %w", id, domain.ErrNotFound)
	}
	return cloneOrderType(c.orderTypes[i]), nil
}

// Materials returns all materials in definition order.
func (c *Catalog) Materials() []domain.Material {
	out := make([]domain.Material, len(c.materials))
	copy(out, c.materials)
	return out
}

// OrderTypes returns all order types in definition order.
func (c *Catalog) OrderTypes() []domain.OrderType {
	out := make([]domain.OrderType, 0, len(c.orderTypes))
	for _, t := range c.orderTypes {
		out = append(out, cloneOrderType(t))
	}
	return out
}

func cloneOrderType(t domain.OrderType) domain.OrderType {
	cp := t
	cp.RequiredMaterials = append([]string(nil), t.RequiredMaterials...)
	cp.FormFields = make([]domain.FormField, len(t.FormFields))
	for i, f := range t.FormFields {
		f.Options = append([]string(nil), f.Options...)
		cp.FormFields[i] = f
	}
	return cp
}
