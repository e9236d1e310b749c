package expense

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money value that never fails to decode: anything that is not a
// finite number (strings that don't parse, null, objects, NaN) reads as 0.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = ParseAmount(string(bytes.TrimSpace(data)))
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Float64())
}

// ParseAmount reads a JSON number or quoted number; everything else is 0.
func ParseAmount(raw string) Amount {
	raw = strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Amount(f)
}

func (a Amount) Float64() float64 {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(a.Float64())
}

func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Round(2).InexactFloat64())
}

// String renders the amount with two decimals.
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}
