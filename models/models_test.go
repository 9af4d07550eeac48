package models

import (
	"math"
	"testing"
)

func TestClassifyPercentBands(t *testing.T) {
	cases := []struct {
		pct  float64
		want RiskBand
	}{
		{-3, Risk0To5},
		{0, Risk0To5},
		{5, Risk0To5},
		{5.0001, Risk6To10},
		{10, Risk6To10},
		{10.5, Risk11To25},
		{25, Risk11To25},
		{26, Risk26To50},
		{50, Risk26To50},
		{50.1, Risk51To80},
		{80, Risk51To80},
		{80.1, Risk81To100},
		{100, Risk81To100},
		{250, Risk81To100},
		{math.NaN(), RiskUnspecified},
		{math.Inf(1), RiskUnspecified},
		{math.Inf(-1), RiskUnspecified},
	}
	for _, c := range cases {
		if got := ClassifyPercent(c.pct); got != c.want {
			t.Errorf("ClassifyPercent(%v) = %s, want %s", c.pct, got, c.want)
		}
	}
}

func TestClassifyMaxLossRawValues(t *testing.T) {
	cases := map[string]RiskBand{
		"":            RiskUnspecified,
		"unspecified": RiskUnspecified,
		"neuvedeno":   RiskUnspecified,
		"abc":         RiskUnspecified,
		"NaN":         RiskUnspecified,
		"7":           Risk6To10,
		" 7,5 ":       Risk6To10,
		"30%":         Risk26To50,
		"100":         Risk81To100,
	}
	for raw, want := range cases {
		if got := ClassifyMaxLoss(ParseMaxLoss(raw)); got != want {
			t.Errorf("ClassifyMaxLoss(%q) = %s, want %s", raw, got, want)
		}
	}
	if got := ClassifyMaxLoss(Unspecified); got != RiskUnspecified {
		t.Fatalf("sentinel classified as %s", got)
	}
}

func TestMaxLossKeepsRawText(t *testing.T) {
	cases := map[string]string{
		"":      UnspecifiedLabel,
		"   ":   UnspecifiedLabel,
		" abc ": "abc",
		"12%":   "12",
		"7,5":   "7.5",
	}
	for raw, want := range cases {
		m := ParseMaxLoss(raw)
		if got := m.String(); got != want {
			t.Errorf("ParseMaxLoss(%q).String() = %q, want %q", raw, got, want)
		}
	}
	if m := ParseMaxLoss("abc"); !m.IsUnspecified() || m.Raw != "abc" {
		t.Fatalf("non-numeric max loss should be unspecified with raw text, got %+v", m)
	}
	if m := ParseMaxLoss("12"); m.Raw != "" {
		t.Fatalf("numeric max loss should not keep raw text, got %+v", m)
	}
}

func TestRiskBandWeights(t *testing.T) {
	want := map[RiskBand]float64{
		Risk0To5:        1500,
		Risk6To10:       1200,
		Risk11To25:      1000,
		Risk26To50:      700,
		Risk51To80:      500,
		Risk81To100:     300,
		RiskUnspecified: 100,
		RiskBand(42):    100,
	}
	for band, w := range want {
		if got := band.Weight(); got != w {
			t.Errorf("%s weight = %v, want %v", band, got, w)
		}
	}
}

func TestRiskBandLabels(t *testing.T) {
	for _, b := range RiskBands() {
		if got := ParseRiskBand(b.String()); got != b {
			t.Errorf("ParseRiskBand(%q) = %s", b.String(), got)
		}
	}
	if got := ParseRiskBand("0–5 %"); got != Risk0To5 {
		t.Errorf("spaced label parsed as %s", got)
	}
	if RiskBand(99).String() != UnspecifiedLabel {
		t.Errorf("out of range band should print as unspecified")
	}
	if RiskUnspecified.Specified() || !Risk26To50.Specified() {
		t.Errorf("unexpected Specified result")
	}
}

func TestParseFloat(t *testing.T) {
	cases := map[string]NullFloat{
		"":         {},
		"  ":       {},
		"x12":      {},
		"NaN":      {},
		"Inf":      {},
		"42":       Float(42),
		" -1000 ":  Float(-1000),
		"1 500,5":  Float(1500.5),
		"1 000":    Float(1000),
		"12.25":    Float(12.25),
	}
	for raw, want := range cases {
		if got := ParseFloat(raw); got != want {
			t.Errorf("ParseFloat(%q) = %+v, want %+v", raw, got, want)
		}
	}
}

func TestNullFloatHelpers(t *testing.T) {
	var n NullFloat
	if n.Or(3) != 3 || !math.IsNaN(n.NaN()) || n.Ptr() != nil || n.String() != "" {
		t.Fatalf("unexpected null helpers: %+v", n)
	}
	v := Float(2.5)
	if v.Or(3) != 2.5 || v.NaN() != 2.5 || *v.Ptr() != 2.5 || v.String() != "2.5" {
		t.Fatalf("unexpected valid helpers: %+v", v)
	}
}

func TestBudgetConfig(t *testing.T) {
	b := DefaultBudgets()
	if len(b) != 5 {
		t.Fatalf("expected 5 slot types, got %d", len(b))
	}
	for _, st := range SlotTypes() {
		if b.For(st) != DefaultBudget {
			t.Errorf("budget for %s = %v", st, b.For(st))
		}
	}
	if b.For("Neznámý") != 0 {
		t.Errorf("unknown type should get 0")
	}

	merged := b.Merge(map[string]float64{SlotTypeWeekly: 5000})
	if merged.For(SlotTypeWeekly) != 5000 || b.For(SlotTypeWeekly) != DefaultBudget {
		t.Fatalf("merge must copy: merged=%v orig=%v", merged.For(SlotTypeWeekly), b.For(SlotTypeWeekly))
	}
	if err := merged.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := b.Merge(map[string]float64{SlotTypeDaily: -1}).Validate(); err == nil {
		t.Fatalf("expected negative budget to be rejected")
	}
}
