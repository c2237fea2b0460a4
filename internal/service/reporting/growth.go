package reporting

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RevenueGrowth считает прирост (current-previous)/previous*100 с округлением до 2 знаков.
// При previous <= 0 прирост равен 0.
func RevenueGrowth(current, previous int64) float64 {
	if previous <= 0 {
		return 0
	}
	cur := decimal.NewFromInt(current)
	prev := decimal.NewFromInt(previous)

	growth := cur.Sub(prev).Mul(hundred).DivRound(prev, 8).Round(2)
	value, _ := growth.Float64()
	return value
}
