// Package pricing computes cart totals. ComputeSummary is pure and cheap
// enough to run on every mutation and every read.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/PabloPachecoB/pizza4u/internal/domain"
)

// ComputeSummary derives the monetary totals for the given cart state.
// Money math runs on decimals and is rounded to cents, so equal inputs
// always produce identical summaries. Malformed items (negative price or
// quantity) are rejected by the engine before they get here.
func ComputeSummary(items []domain.CartItem, discount *domain.Discount, cfg domain.CartConfig) domain.CartSummary {
	subtotal := decimal.Zero
	itemCount := 0
	for _, item := range items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		itemCount += item.Quantity
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(decimal.NewFromFloat(cfg.TaxRate)).Round(2)

	threshold := decimal.NewFromFloat(cfg.DeliveryThreshold)
	freeDelivery := subtotal.GreaterThanOrEqual(threshold)
	deliveryFee := decimal.NewFromFloat(cfg.DeliveryFee)
	if freeDelivery {
		deliveryFee = decimal.Zero
	}

	discountAmount := discountFor(discount, subtotal)

	total := subtotal.Add(tax).Add(deliveryFee).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.CartSummary{
		Subtotal:                 subtotal.InexactFloat64(),
		Tax:                      tax.InexactFloat64(),
		DeliveryFee:              deliveryFee.InexactFloat64(),
		DiscountAmount:           discountAmount.InexactFloat64(),
		Total:                    total.InexactFloat64(),
		ItemCount:                itemCount,
		QualifiesForFreeDelivery: freeDelivery,
	}
}

// discountFor clips the discount to [0, subtotal]: a discount never makes
// the subtotal negative and never exceeds it.
func discountFor(discount *domain.Discount, subtotal decimal.Decimal) decimal.Decimal {
	if discount == nil {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch discount.Kind {
	case domain.DiscountPercentage:
		amount = subtotal.Mul(decimal.NewFromFloat(discount.Value)).Div(decimal.NewFromInt(100)).Round(2)
	case domain.DiscountFixed:
		amount = decimal.NewFromFloat(discount.Value).Round(2)
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}
