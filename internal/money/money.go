// Package money holds the small monetary helpers shared by the extraction
// and benchmarking layers. All user-visible amounts are GBP rounded to two
// decimal places.
package money

import "github.com/shopspring/decimal"

// Round2 rounds an amount to 2 decimal places using half-up rounding.
func Round2(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// Clamp bounds value to the inclusive [lo, hi] range.
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// EstimateShippingToUK estimates landed shipping for one parcel to the UK:
// a base rate plus 8% of the source price, bounded to [12, 35] GBP.
func EstimateShippingToUK(sourcePriceGBP float64) float64 {
	return Round2(Clamp(12.0+sourcePriceGBP*0.08, 12.0, 35.0))
}
