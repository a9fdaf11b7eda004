package catalog

import (
	"github.com/shopspring/decimal"

	"clinic/internal/domain"
)

// Order type ids of the built-in clinic catalog.
const (
	TeethCleaning = "teeth_cleaning"
	CavityFilling = "cavity_filling"
)

// Default returns the built-in dental clinic catalog.
func Default() *Catalog {
	c, err := New(defaultMaterials(), defaultOrderTypes())
	if err != nil {
		panic("catalog: built-in data is inconsistent: " + err.Error())
	}
	return c
}

func defaultMaterials() []domain.Material {
	m := func(id, name string, price int64, unit string) domain.Material {
		return domain.Material{ID: id, Name: name, Price: decimal.NewFromInt(price), Unit: unit}
	}
	return []domain.Material{
		m("mat1", "医用消毒液", 15, "瓶"),
		m("mat2", "牙科抛光膏", 45, "盒"),
		m("mat3", "牙科麻醉剂", 120, "支"),
		m("mat4", "一次性口腔检查工具", 8, "套"),
		m("mat5", "氟化物", 35, "瓶"),
		m("mat6", "补牙复合材料", 200, "套"),
		m("mat7", "X光胶片", 25, "张"),
		m("mat8", "医用手套", 5, "副"),
	}
}

func defaultOrderTypes() []domain.OrderType {
	return []domain.OrderType{
		{
			ID:                TeethCleaning,
			Name:              "洗牙",
			Description:       "标准洗牙服务",
			BaseFee:           decimal.NewFromInt(150),
			RequiredMaterials: []string{"mat1", "mat2", "mat4", "mat5", "mat8"},
			FormFields: []domain.FormField{
				{ID: "previous_cleaning", Label: "上次洗牙时间", Kind: domain.FieldText, Required: true},
				{ID: "tartar_level", Label: "牙结石程度", Kind: domain.FieldSelect, Options: []string{"轻度", "中度", "重度"}, Required: true},
				{ID: "fluoride_treatment", Label: "是否需要氟化物处理", Kind: domain.FieldCheckbox},
			},
		},
		{
			ID:                CavityFilling,
			Name:              "补牙",
			Description:       "牙洞填充治疗",
			BaseFee:           decimal.NewFromInt(280),
			RequiredMaterials: []string{"mat1", "mat3", "mat4", "mat6", "mat7", "mat8"},
			FormFields: []domain.FormField{
				{ID: "cavity_count", Label: "龋齿数量", Kind: domain.FieldNumber, Required: true},
				{ID: "cavity_locations", Label: "龋齿位置", Kind: domain.FieldText, Required: true},
				{ID: "filling_material", Label: "填充材料类型", Kind: domain.FieldSelect, Options: []string{"树脂", "银汞合金", "陶瓷"}, Required: true},
				{ID: "xray_needed", Label: "是否需要X光检查", Kind: domain.FieldCheckbox},
			},
		},
	}
}
