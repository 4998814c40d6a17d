package lsps1

import (
	"encoding/json"
	"strings"

	"lspquotes-service/internal/domain"

	"github.com/shopspring/decimal"
)

type feeUnit int

const (
	unitMsat feeUnit = iota
	unitSat
)

// FeeStrategy reads a fee from one location in a create_order response.
type FeeStrategy struct {
	Name string
	Path []string
	Unit feeUnit
}

// DefaultFeeStrategies is the priority order used when a provider does not
// configure its own. Shapes were collected from live responses and are not
// assumed complete for unknown providers.
var DefaultFeeStrategies = []FeeStrategy{
	{Name: "total_fee_msat", Path: []string{"total_fee_msat"}, Unit: unitMsat},
	{Name: "fee_total_sat", Path: []string{"fee_total_sat"}, Unit: unitSat},
	{Name: "payment.bolt11.fee_total_sat", Path: []string{"payment", "bolt11", "fee_total_sat"}, Unit: unitSat},
	{Name: "payment.lightning.fee_total_sat", Path: []string{"payment", "lightning", "fee_total_sat"}, Unit: unitSat},
	{Name: "payment.fee_total_sat", Path: []string{"payment", "fee_total_sat"}, Unit: unitSat},
	{Name: "payment.onchain.fee_total_sat", Path: []string{"payment", "onchain", "fee_total_sat"}, Unit: unitSat},
}

// StrategiesFor resolves configured strategy names. Unknown names are read as
// dotted paths; a "_msat" suffix selects millisatoshi, anything else satoshi.
func StrategiesFor(names []string) []FeeStrategy {
	if len(names) == 0 {
		return DefaultFeeStrategies
	}
	known := make(map[string]FeeStrategy, len(DefaultFeeStrategies))
	for _, s := range DefaultFeeStrategies {
		known[s.Name] = s
	}
	out := make([]FeeStrategy, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if s, ok := known[n]; ok {
			out = append(out, s)
			continue
		}
		unit := unitSat
		if strings.HasSuffix(n, "_msat") {
			unit = unitMsat
		}
		out = append(out, FeeStrategy{Name: n, Path: strings.Split(n, "."), Unit: unit})
	}
	if len(out) == 0 {
		return DefaultFeeStrategies
	}
	return out
}

// Extract returns the fee in msat when the field exists and is positive.
// Fractional satoshi amounts keep their millisatoshi part.
func (s FeeStrategy) Extract(body map[string]any) (int64, bool) {
	var cur any = body
	for _, key := range s.Path {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		cur, ok = m[key]
		if !ok {
			return 0, false
		}
	}
	d, ok := toDecimal(cur)
	if !ok {
		return 0, false
	}
	if s.Unit == unitSat {
		d = d.Shift(3)
	}
	v := d.IntPart()
	if v <= 0 {
		return 0, false
	}
	return v, true
}

// ExtractFee tries strategies in order; the first positive match wins.
func ExtractFee(body map[string]any, strategies []FeeStrategy) (domain.OrderQuote, bool) {
	for _, s := range strategies {
		if fee, ok := s.Extract(body); ok {
			out := domain.OrderQuote{TotalFeeMsat: fee, Strategy: s.Name, Fees: extractBreakdown(body)}
			if id, ok := body["order_id"].(string); ok {
				out.OrderID = id
			}
			return out, true
		}
	}
	return domain.OrderQuote{}, false
}

func extractBreakdown(body map[string]any) domain.FeeBreakdown {
	m, ok := body["fee_breakdown"].(map[string]any)
	if !ok {
		return domain.FeeBreakdown{}
	}
	return domain.FeeBreakdown{
		PercentageMsat: msat(m["percentage_msat"]),
		BaseMsat:       msat(m["base_msat"]),
		LeaseMsat:      msat(m["lease_msat"]),
	}
}

func msat(v any) int64 {
	d, ok := toDecimal(v)
	if !ok {
		return 0
	}
	return d.IntPart()
}

// toDecimal accepts the number encodings seen in the wild: JSON numbers and
// numeric strings.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case json.Number:
		return parseDecimal(x.String())
	case string:
		return parseDecimal(strings.TrimSpace(x))
	case float64:
		return decimal.NewFromFloat(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	default:
		return decimal.Zero, false
	}
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
