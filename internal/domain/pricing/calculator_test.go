package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

func testPricing() config.PricingConfig {
	return config.PricingConfig{
		Currency:              "INR",
		TaxRate:               decimal.RequireFromString("0.18"),
		FreeShippingThreshold: decimal.NewFromInt(150),
		WeightTiers: []config.WeightTier{
			{MaxGrams: 1000, Rate: decimal.NewFromInt(40)},
			{MaxGrams: 5000, Rate: decimal.NewFromInt(80)},
			{MaxGrams: 10000, Rate: decimal.NewFromInt(120)},
		},
		HeavyRate: decimal.NewFromInt(200),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuoteTwoUnitsAtHundred(t *testing.T) {
	calc := NewCalculator(testPricing())

	q, err := calc.Quote([]Line{{UnitPrice: dec("100"), Quantity: 2, WeightGrams: 300}}, "")
	require.NoError(t, err)

	assert.True(t, q.Subtotal.Equal(dec("200")), q.Subtotal.String())
	assert.True(t, q.Tax.Equal(dec("36")), q.Tax.String())
	assert.True(t, q.Shipping.IsZero())
	assert.True(t, q.Total.Equal(dec("236")), q.Total.String())
	assert.True(t, q.FreeShipping)
	assert.Nil(t, q.AppliedDiscount)
}

func TestTaxRoundsToCents(t *testing.T) {
	calc := NewCalculator(testPricing())
	// 33.33 * 0.18 = 5.9994
	assert.True(t, calc.Tax(dec("33.33")).Equal(dec("6.00")))
	// 10.05 * 0.18 = 1.809
	assert.True(t, calc.Tax(dec("10.05")).Equal(dec("1.81")))
}

func TestShippingTiers(t *testing.T) {
	calc := NewCalculator(testPricing())
	small := dec("50")

	tests := []struct {
		grams int
		want  string
	}{
		{0, "40"},
		{1000, "40"},
		{1001, "80"},
		{5000, "80"},
		{9999, "120"},
		{25000, "200"},
	}
	for _, tt := range tests {
		got := calc.Shipping(small, tt.grams)
		assert.True(t, got.Equal(dec(tt.want)), "grams=%d got %s", tt.grams, got)
	}

	assert.True(t, calc.Shipping(dec("150"), 25000).IsZero(), "threshold is inclusive")
	assert.True(t, calc.Shipping(decimal.Zero, 500).IsZero(), "empty cart ships free")
}

func TestTotalsIdentityWithDiscount(t *testing.T) {
	calc := NewCalculator(testPricing())

	q, err := calc.Quote([]Line{
		{UnitPrice: dec("30.50"), Quantity: 3, WeightGrams: 700},
		{UnitPrice: dec("12.25"), Quantity: 1, WeightGrams: 200},
	}, "welcome10")
	require.NoError(t, err)

	assert.True(t, q.Subtotal.Equal(dec("103.75")))
	assert.True(t, q.Shipping.Equal(dec("80")), "2300g falls into the 5kg tier")
	assert.True(t, q.Discount.Equal(dec("10.38")), q.Discount.String())
	expected := q.Subtotal.Add(q.Shipping).Add(q.Tax).Sub(q.Discount)
	assert.True(t, q.Total.Equal(expected))
	require.NotNil(t, q.AppliedDiscount)
	assert.Equal(t, "WELCOME10", q.AppliedDiscount.Code)
}

func TestDiscountCodes(t *testing.T) {
	calc := NewCalculator(testPricing())

	t.Run("percentage is capped", func(t *testing.T) {
		app, err := calc.ApplyDiscount("WELCOME10", dec("5000"), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, app.Amount.Equal(dec("100")))
	})

	t.Run("fixed requires minimum order", func(t *testing.T) {
		_, err := calc.ApplyDiscount("flat50", dec("199.99"), decimal.Zero)
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

		app, err := calc.ApplyDiscount(" Flat50 ", dec("200"), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, app.Amount.Equal(dec("50")))
	})

	t.Run("free shipping offsets shipping only", func(t *testing.T) {
		app, err := calc.ApplyDiscount("FREESHIP", dec("20"), dec("40"))
		require.NoError(t, err)
		assert.True(t, app.Amount.Equal(dec("40")))
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := calc.ApplyDiscount("NOPE", dec("100"), decimal.Zero)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("empty code applies nothing", func(t *testing.T) {
		app, err := calc.ApplyDiscount("  ", dec("100"), decimal.Zero)
		require.NoError(t, err)
		assert.Nil(t, app)
	})
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	calc := NewCalculatorWithCodes(testPricing(), map[string]DiscountCode{
		"BIG": {Code: "big", Type: DiscountFixed, Value: dec("500")},
	})

	app, err := calc.ApplyDiscount("BIG", dec("120"), dec("40"))
	require.NoError(t, err)
	assert.True(t, app.Amount.Equal(dec("120")))
}

func TestExpiredDiscountRejected(t *testing.T) {
	expiry := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	calc := NewCalculatorWithCodes(testPricing(), map[string]DiscountCode{
		"JAN": {Code: "JAN", Type: DiscountPercentage, Value: dec("5"), ValidUntil: &expiry},
	})

	calc.now = func() time.Time { return expiry.Add(-time.Hour) }
	_, err := calc.ApplyDiscount("jan", dec("100"), decimal.Zero)
	require.NoError(t, err)

	calc.now = func() time.Time { return expiry.Add(time.Hour) }
	_, err = calc.ApplyDiscount("jan", dec("100"), decimal.Zero)
	assert.ErrorContains(t, err, "expired")
}
