// Package pricing computes order totals: subtotal, tax, shipping and discounts.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

// Line is one priced cart or order line
type Line struct {
	UnitPrice   decimal.Decimal
	Quantity    int
	WeightGrams int
}

// Quote is the full totals breakdown for a set of lines
type Quote struct {
	Subtotal         decimal.Decimal      `json:"subtotal"`
	Shipping         decimal.Decimal      `json:"shipping"`
	Tax              decimal.Decimal      `json:"tax"`
	Discount         decimal.Decimal      `json:"discount"`
	Total            decimal.Decimal      `json:"total"`
	TaxRate          decimal.Decimal      `json:"tax_rate"`
	Currency         string               `json:"currency"`
	TotalWeightGrams int                  `json:"total_weight_grams"`
	FreeShipping     bool                 `json:"free_shipping"`
	AppliedDiscount  *DiscountApplication `json:"applied_discount,omitempty"`
}

// Calculator is stateless apart from its configuration and discount catalog
type Calculator struct {
	cfg   config.PricingConfig
	codes map[string]DiscountCode
	now   func() time.Time
}

// NewCalculator creates a calculator with the built-in discount codes
func NewCalculator(cfg config.PricingConfig) *Calculator {
	return NewCalculatorWithCodes(cfg, DefaultDiscountCodes())
}

// NewCalculatorWithCodes creates a calculator over a custom discount catalog
func NewCalculatorWithCodes(cfg config.PricingConfig, codes map[string]DiscountCode) *Calculator {
	normalized := make(map[string]DiscountCode, len(codes))
	for _, c := range codes {
		normalized[normalizeCode(c.Code)] = c
	}
	return &Calculator{cfg: cfg, codes: normalized, now: time.Now}
}

// Subtotal sums unit price times quantity over lines
func (c *Calculator) Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return subtotal.Round(2)
}

// Tax is round(subtotal × rate, 2). Discounts do not reduce the taxable amount.
func (c *Calculator) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.cfg.TaxRate).Round(2)
}

// Shipping is free at or above the configured threshold, otherwise the flat
// rate of the first weight tier that holds the total weight.
func (c *Calculator) Shipping(subtotal decimal.Decimal, weightGrams int) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(c.cfg.FreeShippingThreshold) {
		return decimal.Zero
	}
	for _, tier := range c.cfg.WeightTiers {
		if weightGrams <= tier.MaxGrams {
			return tier.Rate.Round(2)
		}
	}
	return c.cfg.HeavyRate.Round(2)
}

// ApplyDiscount validates code against the amounts. An empty code applies nothing.
func (c *Calculator) ApplyDiscount(code string, subtotal, shipping decimal.Decimal) (*DiscountApplication, error) {
	normalized := normalizeCode(code)
	if normalized == "" {
		return nil, nil
	}
	def, ok := c.codes[normalized]
	if !ok {
		return nil, apperror.Validation("invalid discount code").
			WithDetails(map[string]any{"code": code})
	}
	return def.apply(subtotal, shipping, c.now())
}

// Quote computes total = subtotal + shipping + tax - discount
func (c *Calculator) Quote(lines []Line, discountCode string) (*Quote, error) {
	weight := 0
	for _, l := range lines {
		weight += l.WeightGrams * l.Quantity
	}

	subtotal := c.Subtotal(lines)
	shipping := c.Shipping(subtotal, weight)
	tax := c.Tax(subtotal)

	applied, err := c.ApplyDiscount(discountCode, subtotal, shipping)
	if err != nil {
		return nil, err
	}
	discount := decimal.Zero
	if applied != nil {
		discount = applied.Amount
	}

	return &Quote{
		Subtotal:         subtotal,
		Shipping:         shipping,
		Tax:              tax,
		Discount:         discount,
		Total:            subtotal.Add(shipping).Add(tax).Sub(discount).Round(2),
		TaxRate:          c.cfg.TaxRate,
		Currency:         c.cfg.Currency,
		TotalWeightGrams: weight,
		FreeShipping:     shipping.IsZero() && subtotal.IsPositive(),
		AppliedDiscount:  applied,
	}, nil
}
