package pricing

import (
	"github.com/shopspring/decimal"

	"clinic/internal/catalog"
	"clinic/internal/domain"
)

// Rule is an independent surcharge computed from intake data.
// Apply returns zero when the rule does not fire.
type Rule struct {
	Name  string
	Apply func(domain.Intake) decimal.Decimal
}

// Registry maps an order type id to its ordered surcharge rules.
type Registry map[string][]Rule

// Register appends rules for an order type.
func (r Registry) Register(typeID string, rules ...Rule) {
	r[typeID] = append(r[typeID], rules...)
}

// Rules returns the rules for typeID; unknown types have none.
func (r Registry) Rules(typeID string) []Rule {
	return r[typeID]
}

var (
	fluorideFee    = decimal.NewFromInt(50)
	extraCavityFee = decimal.NewFromInt(100)
	xrayFee        = decimal.NewFromInt(80)
)

// FluorideTreatment adds a flat fee when fluoride_treatment is set.
var FluorideTreatment = Rule{
	Name: "fluoride_treatment",
	Apply: func(in domain.Intake) decimal.Decimal {
		if domain.Truthy(in["fluoride_treatment"]) {
			return fluorideFee
		}
		return decimal.Zero
	},
}

// ExtraCavities charges for every cavity beyond the first.
var ExtraCavities = Rule{
	Name: "extra_cavities",
	Apply: func(in domain.Intake) decimal.Decimal {
		n := domain.Count(in["cavity_count"])
		if n.LessThanOrEqual(decimal.NewFromInt(1)) {
			return decimal.Zero
		}
		return n.Sub(decimal.NewFromInt(1)).Mul(extraCavityFee)
	},
}

// XRay adds a flat fee when xray_needed is set.
var XRay = Rule{
	Name: "xray_needed",
	Apply: func(in domain.Intake) decimal.Decimal {
		if domain.Truthy(in["xray_needed"]) {
			return xrayFee
		}
		return decimal.Zero
	},
}

// DefaultRules returns the surcharge rules of the built-in clinic catalog.
func DefaultRules() Registry {
	r := Registry{}
	r.Register(catalog.TeethCleaning, FluorideTreatment)
	r.Register(catalog.CavityFilling, ExtraCavities, XRay)
	return r
}
