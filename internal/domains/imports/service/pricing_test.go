package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalPriceMarkup(t *testing.T) {
	cfg := PricingConfig{MarkupPercent: 10}

	assert.InDelta(t, 21.989, FinalPrice(19.99, nil, cfg), 1e-9)
	assert.InDelta(t, 110, FinalPrice(100, nil, cfg), 1e-9)
	assert.InDelta(t, 0, FinalPrice(0, nil, cfg), 1e-9)
}

func TestFinalPriceWithAdjustment(t *testing.T) {
	cfg := PricingConfig{MarkupPercent: 10, AdjustmentPercent: 2.5}

	// 100 * (1 + 0.10 + 0.025)
	assert.InDelta(t, 112.5, FinalPrice(100, nil, cfg), 1e-9)
}

func TestFinalPriceDiscountOverrideWins(t *testing.T) {
	cfg := PricingConfig{MarkupPercent: 10}
	discount := 15.0

	assert.Equal(t, 15.0, FinalPrice(19.99, &discount, cfg))
}

func TestFinalPriceAvoidsFloatDrift(t *testing.T) {
	// 0.1 + 0.2 style accumulation must not leak into listed prices.
	cfg := PricingConfig{MarkupPercent: 10, AdjustmentPercent: 20}

	assert.InDelta(t, 0.13, FinalPrice(0.1, nil, cfg), 1e-12)
}
