package writer

import "slotflow/models"

// RecommendationColumns heads the recommendation table shown to users.
var RecommendationColumns = []string{
	"Slot Type",
	"Slot ID",
	"Mining Subject",
	"Risk Band",
	"Return %",
	"Recommended Weight-Deposit",
	"AI Suggested Deposit (Kč)",
}

// Recommendation is the display projection of a slot.
type Recommendation struct {
	SlotType           string   `json:"slot_type"`
	SlotID             *float64 `json:"slot_id"`
	MiningSubject      string   `json:"mining_subject"`
	RiskBand           string   `json:"risk_band"`
	ReturnPercent      *float64 `json:"return_percent"`
	RecommendedWeight  float64  `json:"recommended_weight"`
	AISuggestedDeposit *float64 `json:"ai_suggested_deposit"`
}

// AggregateView is the display projection of an aggregate row.
type AggregateView struct {
	SlotType   string   `json:"slot_type"`
	RiskBand   string   `json:"risk_band"`
	MeanReturn *float64 `json:"mean_return_percent"`
	Count      int      `json:"count"`
}

func Recommendations(slots []models.SlotSummary) []Recommendation {
	out := make([]Recommendation, len(slots))
	for i, s := range slots {
		out[i] = Recommendation{
			SlotType:           s.SlotType,
			SlotID:             s.SlotID.Ptr(),
			MiningSubject:      s.MiningSubject,
			RiskBand:           s.RiskBand.String(),
			ReturnPercent:      finitePtr(s.ReturnPercent),
			RecommendedWeight:  s.RecommendedWeight,
			AISuggestedDeposit: s.AISuggestedDeposit.Ptr(),
		}
	}
	return out
}

func AggregateViews(rows []models.AggregateRow) []AggregateView {
	out := make([]AggregateView, len(rows))
	for i, r := range rows {
		out[i] = AggregateView{
			SlotType:   r.SlotType,
			RiskBand:   r.RiskBand.String(),
			MeanReturn: finitePtr(r.MeanReturn),
			Count:      r.Count,
		}
	}
	return out
}
