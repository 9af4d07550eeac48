package models

import (
	"math"
	"strings"
)

// RiskBand is the discrete bucket a slot falls into based on its maximum
// loss percentage. The zero value is RiskUnspecified.
type RiskBand int

const (
	RiskUnspecified RiskBand = iota
	Risk0To5
	Risk6To10
	Risk11To25
	Risk26To50
	Risk51To80
	Risk81To100
)

// UnspecifiedLabel is the sentinel shown for a missing or non-numeric max loss.
const UnspecifiedLabel = "unspecified"

// DefaultRiskWeight applies to RiskUnspecified and any band without a
// configured weight.
const DefaultRiskWeight = 100.0

var riskBandLabels = [...]string{
	RiskUnspecified: UnspecifiedLabel,
	Risk0To5:        "0–5%",
	Risk6To10:       "6–10%",
	Risk11To25:      "11–25%",
	Risk26To50:      "26–50%",
	Risk51To80:      "51–80%",
	Risk81To100:     "81–100%",
}

var riskBandWeights = map[RiskBand]float64{
	Risk0To5:    1500,
	Risk6To10:   1200,
	Risk11To25:  1000,
	Risk26To50:  700,
	Risk51To80:  500,
	Risk81To100: 300,
}

// RiskBands lists every band in ascending order, unspecified last.
func RiskBands() []RiskBand {
	return []RiskBand{Risk0To5, Risk6To10, Risk11To25, Risk26To50, Risk51To80, Risk81To100, RiskUnspecified}
}

func (b RiskBand) String() string {
	if b < 0 || int(b) >= len(riskBandLabels) {
		return UnspecifiedLabel
	}
	return riskBandLabels[b]
}

// Weight is the recommended deposit weight used for proportional allocation.
func (b RiskBand) Weight() float64 {
	if w, ok := riskBandWeights[b]; ok {
		return w
	}
	return DefaultRiskWeight
}

// Specified reports whether the band came from a numeric max loss.
func (b RiskBand) Specified() bool {
	return b > RiskUnspecified && int(b) < len(riskBandLabels)
}

// ParseRiskBand maps a label back to its band; unknown labels are unspecified.
func ParseRiskBand(label string) RiskBand {
	label = strings.ReplaceAll(strings.TrimSpace(label), " ", "")
	for i, l := range riskBandLabels {
		if l == label {
			return RiskBand(i)
		}
	}
	return RiskUnspecified
}

// ClassifyPercent maps a max-loss percentage onto its band. Bounds are upper
// inclusive; anything not finite is unspecified.
func ClassifyPercent(pct float64) RiskBand {
	switch {
	case math.IsNaN(pct) || math.IsInf(pct, 0):
		return RiskUnspecified
	case pct <= 5:
		return Risk0To5
	case pct <= 10:
		return Risk6To10
	case pct <= 25:
		return Risk11To25
	case pct <= 50:
		return Risk26To50
	case pct <= 80:
		return Risk51To80
	default:
		return Risk81To100
	}
}

// MaxLoss is the max-loss percentage attached to a slot by the risk table.
// A zero MaxLoss is the unspecified sentinel. Raw keeps a non-numeric cell as
// written so it can be shown back.
type MaxLoss struct {
	Percent NullFloat `json:"percent" msgpack:"p"`
	Raw     string    `json:"raw,omitempty" msgpack:"r,omitempty"`
}

// Unspecified is the sentinel used when no numeric max loss is known.
var Unspecified = MaxLoss{}

// ParseMaxLoss reads a raw risk cell. A trailing percent sign is accepted.
func ParseMaxLoss(raw string) MaxLoss {
	trimmed := strings.TrimSpace(raw)
	m := MaxLoss{Percent: ParseFloat(strings.TrimSuffix(trimmed, "%"))}
	if !m.Percent.Valid {
		m.Raw = trimmed
	}
	return m
}

// IsUnspecified reports whether no numeric max loss is known. A non-numeric
// Raw value counts as unspecified.
func (m MaxLoss) IsUnspecified() bool {
	return !m.Percent.Valid
}

func (m MaxLoss) String() string {
	switch {
	case m.Percent.Valid:
		return m.Percent.String()
	case m.Raw != "":
		return m.Raw
	default:
		return UnspecifiedLabel
	}
}

// ClassifyMaxLoss is total over MaxLoss: the sentinel maps to RiskUnspecified.
func ClassifyMaxLoss(m MaxLoss) RiskBand {
	if m.IsUnspecified() {
		return RiskUnspecified
	}
	return ClassifyPercent(m.Percent.Value)
}
