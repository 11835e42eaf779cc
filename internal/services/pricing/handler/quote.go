package handler

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quote is the resolved price for one product and one viewer. When a
// tier discount applies, OriginalPrice (and SalePrice for on-sale
// products) are kept so clients can render them struck through next to
// the final price and the badge percentage.
type Quote struct {
	OriginalPrice      string  `json:"original_price"`
	SalePrice          *string `json:"sale_price,omitempty"`
	FinalPrice         string  `json:"final_price"`
	DiscountPercentage string  `json:"discount_percentage,omitempty"`
	Discounted         bool    `json:"discounted"`
}

// ComputeQuote applies a tier discount of pct percent on top of the
// effective store price: the sale price when one is set below the
// regular price, otherwise the regular price. The tier discount stacks
// multiplicatively on the sale discount, it never replaces it.
func ComputeQuote(regularPrice string, salePrice *string, pct string) (Quote, error) {
	regular, err := decimal.NewFromString(regularPrice)
	if err != nil {
		return Quote{}, fmt.Errorf("invalid regular price %q: %w", regularPrice, err)
	}

	base := regular
	var sale *decimal.Decimal
	if salePrice != nil && *salePrice != "" {
		s, err := decimal.NewFromString(*salePrice)
		if err != nil {
			return Quote{}, fmt.Errorf("invalid sale price %q: %w", *salePrice, err)
		}
		if s.LessThan(regular) {
			base = s
			sale = &s
		}
	}

	quote := Quote{
		OriginalPrice: regular.StringFixed(2),
	}
	if sale != nil {
		s := sale.StringFixed(2)
		quote.SalePrice = &s
	}

	discount := decimal.Zero
	if pct != "" {
		discount, err = decimal.NewFromString(pct)
		if err != nil {
			return Quote{}, fmt.Errorf("invalid discount percentage %q: %w", pct, err)
		}
	}

	if discount.IsZero() {
		quote.FinalPrice = base.StringFixed(2)
		return quote, nil
	}

	final := base.Sub(base.Mul(discount).Div(decimal.NewFromInt(100)))
	quote.FinalPrice = final.StringFixed(2)
	quote.DiscountPercentage = discount.String()
	quote.Discounted = true
	return quote, nil
}

// UndiscountedQuote returns the plain store price, used for guests,
// suspended accounts and companies without a tier.
func UndiscountedQuote(regularPrice string, salePrice *string) (Quote, error) {
	return ComputeQuote(regularPrice, salePrice, "")
}
