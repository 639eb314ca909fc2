package product

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

// UnitPrice returns the price of the largest break whose quantity is at most
// qty, falling back to the base price.
func (p *Product) UnitPrice(qty int) decimal.Decimal {
	price := p.Price
	best := 0
	for _, pb := range p.PriceBreaks {
		if pb.Quantity <= qty && pb.Quantity > best {
			best = pb.Quantity
			price = pb.Price
		}
	}
	return price
}

// CheckQuantity validates qty against the product's order limits and live stock.
func (p *Product) CheckQuantity(qty int) error {
	if !p.IsActive {
		return apperror.Validation(fmt.Sprintf("%s is no longer available", p.Name)).
			WithDetails(map[string]any{"product_id": p.ID})
	}
	minQty := p.MinOrderQuantity
	if minQty < 1 {
		minQty = 1
	}
	if qty < minQty {
		return apperror.Validation(fmt.Sprintf("minimum order quantity for %s is %d", p.Name, minQty)).
			WithDetails(map[string]any{"product_id": p.ID, "min_order_quantity": minQty, "requested": qty})
	}
	if p.MaxOrderQuantity > 0 && qty > p.MaxOrderQuantity {
		return apperror.Validation(fmt.Sprintf("maximum order quantity for %s is %d", p.Name, p.MaxOrderQuantity)).
			WithDetails(map[string]any{"product_id": p.ID, "max_order_quantity": p.MaxOrderQuantity, "requested": qty})
	}
	if qty > p.Stock {
		return apperror.Validation(fmt.Sprintf("insufficient stock for %s", p.Name)).
			WithDetails(map[string]any{"product_id": p.ID, "available": p.Stock, "requested": qty})
	}
	return nil
}

// PriceBreakInput is the request shape of a price break
type PriceBreakInput struct {
	Quantity int             `json:"quantity" binding:"required,min=2"`
	Price    decimal.Decimal `json:"price"`
}

func buildPriceBreaks(inputs []PriceBreakInput, basePrice decimal.Decimal) ([]PriceBreak, error) {
	seen := make(map[int]bool, len(inputs))
	breaks := make([]PriceBreak, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity < 2 {
			return nil, apperror.Validation("price break quantity must be at least 2")
		}
		if seen[in.Quantity] {
			return nil, apperror.Validation(fmt.Sprintf("duplicate price break for quantity %d", in.Quantity))
		}
		if !in.Price.IsPositive() {
			return nil, apperror.Validation("price break price must be positive")
		}
		if in.Price.GreaterThan(basePrice) {
			return nil, apperror.Validation("price break price cannot exceed the base price")
		}
		seen[in.Quantity] = true
		breaks = append(breaks, PriceBreak{Quantity: in.Quantity, Price: in.Price.Round(2)})
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Quantity < breaks[j].Quantity })
	return breaks, nil
}
