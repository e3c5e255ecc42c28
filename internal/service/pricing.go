package service

import "github.com/shopspring/decimal"

// Pricing computes booking totals. Pure functions of price and code; the
// discount table and fee rate are resolved once when the engine is built,
// not re-read per call.
type Pricing struct {
	feeRate   decimal.Decimal
	discounts map[string]int64
}

var defaultFeeRate = decimal.RequireFromString("0.15")

func NewPricing(feeRate decimal.Decimal, discounts map[string]int64) Pricing {
	if feeRate.IsZero() {
		feeRate = defaultFeeRate
	}
	if discounts == nil {
		discounts = map[string]int64{}
	}
	return Pricing{feeRate: feeRate, discounts: discounts}
}

var hundred = decimal.NewFromInt(100)

// ApplyDiscount returns price reduced by the code's percentage. Unknown
// codes discount nothing.
func (p Pricing) ApplyDiscount(price decimal.Decimal, code string) decimal.Decimal {
	percent := p.discounts[code]
	if percent <= 0 {
		return price
	}
	return price.Mul(hundred.Sub(decimal.NewFromInt(percent))).Div(hundred)
}

// ServiceFee returns the per-seat fee charged on a (discounted) price.
func (p Pricing) ServiceFee(price decimal.Decimal) decimal.Decimal {
	return price.Mul(p.feeRate)
}

// SeatContribution is what one seat adds to a booking total: the discounted
// price plus the service fee on the discounted price.
func (p Pricing) SeatContribution(price decimal.Decimal, code string) decimal.Decimal {
	discounted := p.ApplyDiscount(price, code)
	return discounted.Add(p.ServiceFee(discounted))
}

// Total sums the contributions of all seats under one discount code.
func (p Pricing) Total(prices []decimal.Decimal, code string) decimal.Decimal {
	total := decimal.Zero
	for _, price := range prices {
		total = total.Add(p.SeatContribution(price, code))
	}
	return total
}
