package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"clinic/internal/domain"
)

// fileCatalog is the TOML layout accepted by LoadFile:
//
//	[[materials]]
//	id = "mat1"
//	name = "Disinfectant"
//	price = 15
//	unit = "bottle"
//
//	[[materials]]
//	id = "mat2"
//	name = "Polishing paste"
//	price = "19.99"
//
//	[[order_types]]
//	id = "teeth_cleaning"
//	base_fee = 150
//	required_materials = ["mat1"]
//	  [[order_types.form_fields]]
//	  id = "tartar_level"
//	  kind = "select"
//	  options = ["light", "heavy"]
//	  required = true
//
// Prices and fees may be TOML numbers or decimal strings; both are parsed
// from their literal text so no binary float rounding is involved.
type fileCatalog struct {
	Materials  []fileMaterial  `toml:"materials"`
	OrderTypes []fileOrderType `toml:"order_types"`
}

type fileMaterial struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Price amount `toml:"price"`
	Unit  string `toml:"unit"`
}

type fileOrderType struct {
	ID                string      `toml:"id"`
	Name              string      `toml:"name"`
	Description       string      `toml:"description"`
	BaseFee           amount      `toml:"base_fee"`
	RequiredMaterials []string    `toml:"required_materials"`
	FormFields        []fileField `toml:"form_fields"`
}

type fileField struct {
	ID       string   `toml:"id"`
	Label    string   `toml:"label"`
	Kind     string   `toml:"kind"`
	Options  []string `toml:"options"`
	Required bool     `toml:"required"`
}

// amount decodes a TOML number or string into an exact decimal.
type amount decimal.Decimal

func (a *amount) UnmarshalText(text []byte) error {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(string(text)), "_", ""))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", text, domain.ErrInvalidInput)
	}
	*a = amount(d)
	return nil
}

// LoadFile reads a catalog from a TOML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a TOML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	materials := make([]domain.Material, 0, len(fc.Materials))
	for _, m := range fc.Materials {
		materials = append(materials, domain.Material{
			ID:    m.ID,
			Name:  m.Name,
			Price: decimal.Decimal(m.Price),
			Unit:  m.Unit,
		})
	}

	types := make([]domain.OrderType, 0, len(fc.OrderTypes))
	for _, t := range fc.OrderTypes {
		fields := make([]domain.FormField, 0, len(t.FormFields))
		for _, f := range t.FormFields {
			fields = append(fields, domain.FormField{
				ID:       f.ID,
				Label:    f.Label,
				Kind:     domain.FieldKind(f.Kind),
				Options:  f.Options,
				Required: f.Required,
			})
		}
		types = append(types, domain.OrderType{
			ID:                t.ID,
			Name:              t.Name,
			Description:       t.Description,
			BaseFee:           decimal.Decimal(t.BaseFee),
			RequiredMaterials: t.RequiredMaterials,
			FormFields:        fields,
		})
	}

	return New(materials, types)
}
