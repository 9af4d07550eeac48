package models

import (
	"math"
	"strconv"
	"strings"
)

// NullFloat is a numeric cell that may be missing or unparseable.
type NullFloat struct {
	Value float64 `json:"value" msgpack:"v"`
	Valid bool    `json:"valid" msgpack:"ok"`
}

// Float wraps a known value.
func Float(v float64) NullFloat {
	return NullFloat{Value: v, Valid: true}
}

// ParseFloat coerces a raw cell to a number. Anything that does not parse to
// a finite value becomes null rather than an error.
func ParseFloat(raw string) NullFloat {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NullFloat{}
	}
	// thousands separators used by Czech exports
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return Float(v)
}

// Or returns the value, or fallback when null.
func (n NullFloat) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Value
}

// NaN returns the value, or NaN when null.
func (n NullFloat) NaN() float64 {
	return n.Or(math.NaN())
}

// Ptr returns nil for a null value.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// IsNumber reports whether v is a finite float.
func IsNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
