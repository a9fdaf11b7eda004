package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a priced consumable from the material catalog.
type Material struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Unit  string          `json:"unit"`
}

// FieldKind is the input kind of an intake form field.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldNumber   FieldKind = "number"
	FieldSelect   FieldKind = "select"
	FieldCheckbox FieldKind = "checkbox"
)

// Valid reports whether k is one of the known field kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldText, FieldNumber, FieldSelect, FieldCheckbox:
		return true
	}
	return false
}

// FormField describes one intake field of an order type.
type FormField struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"type"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required"`
}

// OrderType is a catalog entry for a clinic service.
type OrderType struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	BaseFee           decimal.Decimal `json:"base_fee"`
	RequiredMaterials []string        `json:"required_materials"`
	FormFields        []FormField     `json:"form_fields"`
}

// Field returns the form field with the given id.
func (t OrderType) Field(id string) (FormField, bool) {
	for _, f := range t.FormFields {
		if f.ID == id {
			return f, true
		}
	}
	return FormField{}, false
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted:
		return true
	}
	return false
}

// Selection maps material id to a positive quantity.
type Selection map[string]int64

// Normalize returns a copy without non-positive quantities.
func (s Selection) Normalize() Selection {
	out := make(Selection, len(s))
	for id, qty := range s {
		if qty > 0 {
			out[id] = qty
		}
	}
	return out
}

// Intake maps form field id to the recorded value (string, number or bool).
type Intake map[string]any

// Clone returns a shallow copy of the intake.
func (in Intake) Clone() Intake {
	out := make(Intake, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Order сущность заказа
type Order struct {
	ID          string           `json:"id"`
	PatientName string           `json:"patient_name"`
	PatientID   string           `json:"patient_id"`
	TypeID      string           `json:"type"`
	Status      OrderStatus      `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	TotalPrice  *decimal.Decimal `json:"total_price,omitempty"`
	Materials   Selection        `json:"materials"`
	Intake      Intake           `json:"form_data"`
}

// Clone returns a deep copy so callers never share maps with the store.
func (o Order) Clone() Order {
	cp := o
	cp.Materials = o.Materials.Normalize()
	if o.Intake != nil {
		cp.Intake = o.Intake.Clone()
	} else {
		cp.Intake = Intake{}
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		cp.CompletedAt = &t
	}
	if o.TotalPrice != nil {
		p := *o.TotalPrice
		cp.TotalPrice = &p
	}
	return cp
}

// Clock supplies timestamps for created/completed markers.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
