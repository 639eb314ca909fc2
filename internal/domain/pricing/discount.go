package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

// DiscountType identifies how a code reduces the order total
type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixed        DiscountType = "fixed"
	DiscountFreeShipping DiscountType = "free_shipping"
)

// DiscountCode is a promotional code definition
type DiscountCode struct {
	Code           string          `json:"code"`
	Type           DiscountType    `json:"type"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	MaxDiscount    decimal.Decimal `json:"max_discount"`
	ValidUntil     *time.Time      `json:"valid_until,omitempty"`
}

// DiscountApplication is the result of applying a code to a quote
type DiscountApplication struct {
	Code    string          `json:"code"`
	Type    DiscountType    `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

// DefaultDiscountCodes is the built-in promotion catalog, keyed by upper-case code.
func DefaultDiscountCodes() map[string]DiscountCode {
	codes := []DiscountCode{
		{
			Code:        "WELCOME10",
			Type:        DiscountPercentage,
			Value:       decimal.NewFromInt(10),
			MaxDiscount: decimal.NewFromInt(100),
		},
		{
			Code:           "SAVE20",
			Type:           DiscountPercentage,
			Value:          decimal.NewFromInt(20),
			MinOrderAmount: decimal.NewFromInt(500),
			MaxDiscount:    decimal.NewFromInt(250),
		},
		{
			Code:           "FLAT50",
			Type:           DiscountFixed,
			Value:          decimal.NewFromInt(50),
			MinOrderAmount: decimal.NewFromInt(200),
		},
		{
			Code: "FREESHIP",
			Type: DiscountFreeShipping,
		},
	}

	byCode := make(map[string]DiscountCode, len(codes))
	for _, c := range codes {
		byCode[c.Code] = c
	}
	return byCode
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// apply computes the discount for code against subtotal and shipping.
// The result never exceeds the subtotal, or the shipping cost for free-shipping codes.
func (d DiscountCode) apply(subtotal, shipping decimal.Decimal, now time.Time) (*DiscountApplication, error) {
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return nil, apperror.Validation("discount code has expired").
			WithDetails(map[string]any{"code": d.Code})
	}

	if subtotal.LessThan(d.MinOrderAmount) {
		return nil, apperror.Validation(fmt.Sprintf("minimum order amount of %s required for this code", d.MinOrderAmount.StringFixed(2))).
			WithDetails(map[string]any{"code": d.Code, "min_order_amount": d.MinOrderAmount.StringFixed(2)})
	}

	var amount decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		amount = d.Value
	case DiscountFreeShipping:
		amount = shipping
	default:
		return nil, apperror.Newf(apperror.CodeInternal, "unsupported discount type %q", d.Type)
	}

	if d.MaxDiscount.IsPositive() && amount.GreaterThan(d.MaxDiscount) {
		amount = d.MaxDiscount
	}
	if d.Type != DiscountFreeShipping && amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	amount = amount.Round(2)

	message := fmt.Sprintf("Coupon applied! You saved %s", amount.StringFixed(2))
	if d.Type == DiscountFreeShipping && amount.IsZero() {
		message = "Shipping is already free for this order"
	}

	return &DiscountApplication{
		Code:    d.Code,
		Type:    d.Type,
		Amount:  amount,
		Message: message,
	}, nil
}
