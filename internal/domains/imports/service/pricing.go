package service

import (
	"github.com/shopspring/decimal"
)

// PricingConfig is the platform side of the listing price.
type PricingConfig struct {
	MarkupPercent     float64
	AdjustmentPercent float64
}

// FinalPrice computes the listed price: merchant price marked up by the
// platform percentage plus the dynamic adjustment. A manual discount
// override is a merchant decision and wins outright over the markup math.
func FinalPrice(price float64, discount *float64, cfg PricingConfig) float64 {
	if discount != nil {
		return *discount
	}

	multiplier := decimal.NewFromInt(1).
		Add(decimal.NewFromFloat(cfg.MarkupPercent).Div(decimal.NewFromInt(100))).
		Add(decimal.NewFromFloat(cfg.AdjustmentPercent).Div(decimal.NewFromInt(100)))

	final, _ := decimal.NewFromFloat(price).Mul(multiplier).Float64()
	return final
}
