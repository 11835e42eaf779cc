package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestComputeQuote_TierDiscount(t *testing.T) {
	quote, err := ComputeQuote("100.00", nil, "20.00")
	require.NoError(t, err)

	assert.Equal(t, "100.00", quote.OriginalPrice)
	assert.Equal(t, "80.00", quote.FinalPrice)
	assert.Equal(t, "20", quote.DiscountPercentage)
	assert.True(t, quote.Discounted)
	assert.Nil(t, quote.SalePrice)
}

func TestComputeQuote_StacksOnSalePrice(t *testing.T) {
	// 10% off the 80.00 sale price, not the 100.00 regular price.
	quote, err := ComputeQuote("100.00", strPtr("80.00"), "10.00")
	require.NoError(t, err)

	assert.Equal(t, "100.00", quote.OriginalPrice)
	require.NotNil(t, quote.SalePrice)
	assert.Equal(t, "80.00", *quote.SalePrice)
	assert.Equal(t, "72.00", quote.FinalPrice)
	assert.True(t, quote.Discounted)
}

func TestComputeQuote_SaleAboveRegularIgnored(t *testing.T) {
	quote, err := ComputeQuote("50.00", strPtr("60.00"), "10.00")
	require.NoError(t, err)

	assert.Nil(t, quote.SalePrice)
	assert.Equal(t, "45.00", quote.FinalPrice)
}

func TestComputeQuote_ZeroDiscount(t *testing.T) {
	quote, err := ComputeQuote("19.99", nil, "0")
	require.NoError(t, err)

	assert.Equal(t, "19.99", quote.FinalPrice)
	assert.False(t, quote.Discounted)
	assert.Empty(t, quote.DiscountPercentage)
}

func TestComputeQuote_EmptyPercentage(t *testing.T) {
	quote, err := ComputeQuote("19.99", strPtr("14.99"), "")
	require.NoError(t, err)

	assert.Equal(t, "14.99", quote.FinalPrice)
	assert.False(t, quote.Discounted)
}

func TestComputeQuote_Rounding(t *testing.T) {
	// 33.33% of 9.99 leaves 6.66 (banker's-free fixed rounding).
	quote, err := ComputeQuote("9.99", nil, "33.33")
	require.NoError(t, err)
	assert.Equal(t, "6.66", quote.FinalPrice)
}

func TestComputeQuote_FullDiscount(t *testing.T) {
	quote, err := ComputeQuote("25.00", nil, "100")
	require.NoError(t, err)
	assert.Equal(t, "0.00", quote.FinalPrice)
}

func TestComputeQuote_InvalidInputs(t *testing.T) {
	_, err := ComputeQuote("not-a-price", nil, "10")
	assert.Error(t, err)

	_, err = ComputeQuote("10.00", strPtr("bad"), "10")
	assert.Error(t, err)

	_, err = ComputeQuote("10.00", nil, "ten")
	assert.Error(t, err)
}

func TestUndiscountedQuote(t *testing.T) {
	quote, err := UndiscountedQuote("30.00", strPtr("25.00"))
	require.NoError(t, err)

	assert.Equal(t, "25.00", quote.FinalPrice)
	assert.False(t, quote.Discounted)
}
