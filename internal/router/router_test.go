package router

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
)

const (
	suiType  = "0x2::sui::SUI"
	usdcType = "0x5d4b...::coin::COIN"
)

func TestQuoteRequestValidate(t *testing.T) {
	amount := sdkmath.NewInt(1_000_000)

	exactIn := QuoteRequest{FromCoinType: suiType, ToCoinType: usdcType, FromAmount: &amount}
	assert.NoError(t, exactIn.Validate())
	assert.True(t, exactIn.ByAmountIn())

	exactOut := QuoteRequest{FromCoinType: usdcType, ToCoinType: suiType, ToAmount: &amount}
	assert.NoError(t, exactOut.Validate())
	assert.False(t, exactOut.ByAmountIn())
}

func TestQuoteRequestRejectsBothAmounts(t *testing.T) {
	amount := sdkmath.NewInt(1_000_000)
	req := QuoteRequest{FromCoinType: suiType, ToCoinType: usdcType, FromAmount: &amount, ToAmount: &amount}
	assert.ErrorIs(t, req.Validate(), ErrInvalidQuoteRequest)
}

func TestQuoteRequestRejectsNeitherAmount(t *testing.T) {
	req := QuoteRequest{FromCoinType: suiType, ToCoinType: usdcType}
	assert.ErrorIs(t, req.Validate(), ErrInvalidQuoteRequest)
}

func TestQuoteRequestRejectsNonPositiveAmount(t *testing.T) {
	zero := sdkmath.ZeroInt()
	req := QuoteRequest{FromCoinType: suiType, ToCoinType: usdcType, FromAmount: &zero}
	assert.ErrorIs(t, req.Validate(), ErrInvalidQuoteRequest)

	negative := sdkmath.NewInt(-5)
	req = QuoteRequest{FromCoinType: suiType, ToCoinType: usdcType, ToAmount: &negative}
	assert.ErrorIs(t, req.Validate(), ErrInvalidQuoteRequest)
}

func TestQuoteRequestRejectsMissingCoinTypes(t *testing.T) {
	amount := sdkmath.NewInt(1)
	req := QuoteRequest{FromCoinType: "", ToCoinType: usdcType, FromAmount: &amount}
	assert.ErrorIs(t, req.Validate(), ErrInvalidQuoteRequest)
}
