package scoring

import (
	"github.com/shopspring/decimal"

	"newsimpact/internal/domain/scoring"
)

var (
	oneBillion    = decimal.New(1, 9)
	fiveBillion   = decimal.New(5, 9)
	twentyBillion = decimal.New(20, 9)

	multSmall = decimal.RequireFromString("1.6")
	multMid   = decimal.RequireFromString("1.3")
	multLarge = decimal.RequireFromString("1.1")
)

// CapMultiplier maps a market cap in USD to its Layer-2 multiplier.
// Each bucket is closed on the lower bound; an unknown cap gets 1.0.
func CapMultiplier(marketCap decimal.NullDecimal) decimal.Decimal {
	if !marketCap.Valid || marketCap.Decimal.IsNegative() {
		return decimal.NewFromInt(1)
	}
	c := marketCap.Decimal
	switch {
	case c.LessThan(oneBillion):
		return multSmall
	case c.LessThan(fiveBillion):
		return multMid
	case c.LessThan(twentyBillion):
		return multLarge
	}
	return decimal.NewFromInt(1)
}

// KeywordSum adds each distinct keyword's score weighted by its confidence
func KeywordSum(matches []scoring.KeywordMatch) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range DistinctKeywords(matches) {
		sum = sum.Add(decimal.NewFromFloat(m.EventScore).Mul(decimal.NewFromFloat(m.Confidence)))
	}
	return sum.Round(4)
}

// CompositeInputs are the per (article, ticker) layer inputs
type CompositeInputs struct {
	Matches   []scoring.KeywordMatch
	MarketCap decimal.NullDecimal
	Surprise  SurpriseResult
	Reaction  scoring.ReactionBreakdown
}

// CompositeResult carries the layer values and the total
type CompositeResult struct {
	Keyword   decimal.Decimal
	CapMult   decimal.Decimal
	Surprise  decimal.Decimal
	Reaction  decimal.Decimal
	Total     decimal.Decimal
	Direction scoring.Direction
	Alert     bool
}

// Composite merges the four layers. It reads no clock and has no state.
func Composite(in CompositeInputs, threshold decimal.Decimal) CompositeResult {
	res := CompositeResult{
		Keyword:   KeywordSum(in.Matches),
		CapMult:   CapMultiplier(in.MarketCap),
		Surprise:  in.Surprise.Score,
		Reaction:  decimal.NewFromInt(int64(in.Reaction.Total)),
		Direction: in.Surprise.Direction,
	}
	if res.Direction == "" {
		res.Direction = scoring.DirectionNone
	}
	res.Total = res.Keyword.Mul(res.CapMult).Add(res.Surprise).Add(res.Reaction).Round(4)
	res.Alert = res.Total.GreaterThanOrEqual(threshold)
	return res
}
