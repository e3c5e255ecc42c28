package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testDiscounts = map[string]int64{
	"SAVE10": 10,
	"SAVE20": 20,
	"VIP50":  50,
}

func TestApplyDiscount(t *testing.T) {
	p := NewPricing(decimal.Zero, testDiscounts)
	price := decimal.NewFromInt(100)

	assert.True(t, decimal.NewFromInt(90).Equal(p.ApplyDiscount(price, "SAVE10")))
	assert.True(t, decimal.NewFromInt(80).Equal(p.ApplyDiscount(price, "SAVE20")))
	assert.True(t, decimal.NewFromInt(50).Equal(p.ApplyDiscount(price, "VIP50")))
}

func TestApplyDiscountUnknownCode(t *testing.T) {
	p := NewPricing(decimal.Zero, testDiscounts)
	price := decimal.NewFromInt(100)

	assert.True(t, price.Equal(p.ApplyDiscount(price, "BOGUS")))
	assert.True(t, price.Equal(p.ApplyDiscount(price, "")))
}

func TestServiceFee(t *testing.T) {
	p := NewPricing(decimal.Zero, nil)

	fee := p.ServiceFee(decimal.NewFromInt(100))
	assert.True(t, decimal.NewFromInt(15).Equal(fee), "default fee rate should be 15%%, got %s", fee)
}

func TestSeatContribution(t *testing.T) {
	p := NewPricing(decimal.Zero, testDiscounts)

	// 100 discounted to 90, plus 15% fee on the discounted price: 103.5
	got := p.SeatContribution(decimal.NewFromInt(100), "SAVE10")
	assert.True(t, decimal.RequireFromString("103.5").Equal(got), "got %s", got)
}

func TestTotalTwoSeatsWithDiscount(t *testing.T) {
	p := NewPricing(decimal.Zero, testDiscounts)
	prices := []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(100)}

	got := p.Total(prices, "SAVE10")
	assert.True(t, decimal.NewFromInt(207).Equal(got), "got %s", got)
}

func TestTotalNoSeats(t *testing.T) {
	p := NewPricing(decimal.Zero, testDiscounts)

	assert.True(t, decimal.Zero.Equal(p.Total(nil, "SAVE10")))
}

func TestTotalCustomFeeRate(t *testing.T) {
	p := NewPricing(decimal.RequireFromString("0.10"), nil)
	prices := []decimal.Decimal{decimal.NewFromInt(50)}

	got := p.Total(prices, "")
	assert.True(t, decimal.NewFromInt(55).Equal(got), "got %s", got)
}
