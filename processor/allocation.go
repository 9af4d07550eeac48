package processor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"slotflow/models"
)

type aggregateKey struct {
	slotType string
	band     models.RiskBand
}

// MeanReturns averages the numeric return percentages per (slot type, risk
// band). Slots with an unspecified band are left out and NaN returns are not
// averaged. Rows are sorted by slot type, then band.
func MeanReturns(slots []models.SlotSummary) []models.AggregateRow {
	var order []aggregateKey
	values := make(map[aggregateKey][]float64)
	for _, s := range slots {
		if !s.RiskBand.Specified() {
			continue
		}
		k := aggregateKey{slotType: s.SlotType, band: s.RiskBand}
		if _, ok := values[k]; !ok {
			order = append(order, k)
			values[k] = nil
		}
		if models.IsNumber(s.ReturnPercent) {
			values[k] = append(values[k], s.ReturnPercent)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].slotType != order[j].slotType {
			return order[i].slotType < order[j].slotType
		}
		return order[i].band < order[j].band
	})

	rows := make([]models.AggregateRow, 0, len(order))
	for _, k := range order {
		xs := values[k]
		mean := math.NaN()
		if len(xs) > 0 {
			mean = stat.Mean(xs, nil)
		}
		rows = append(rows, models.AggregateRow{
			SlotType:   k.slotType,
			RiskBand:   k.band,
			MeanReturn: mean,
			Count:      len(xs),
		})
	}
	return rows
}

// Allocate splits each slot type's budget across its slots in proportion to
// their recommended weight. Groups are emitted in first-seen type order and
// keep their incoming order. A type whose weights sum to zero gets no ratio.
func Allocate(slots []models.SlotSummary, budgets models.BudgetConfig) []models.SlotSummary {
	var types []string
	groups := make(map[string][]models.SlotSummary)
	for _, s := range slots {
		if _, ok := groups[s.SlotType]; !ok {
			types = append(types, s.SlotType)
		}
		groups[s.SlotType] = append(groups[s.SlotType], s)
	}

	out := make([]models.SlotSummary, 0, len(slots))
	for _, t := range types {
		group := groups[t]
		total := 0.0
		for _, s := range group {
			total += s.RecommendedWeight
		}
		budget := budgets.For(t)
		for _, s := range group {
			if total != 0 {
				ratio := s.RecommendedWeight / total
				s.AllocationRatio = models.Float(ratio)
				s.AISuggestedDeposit = models.Float(ratio * budget)
			} else {
				s.AllocationRatio = models.NullFloat{}
				s.AISuggestedDeposit = models.NullFloat{}
			}
			out = append(out, s)
		}
	}
	return out
}
