package processor

import (
	"slotflow/logger"
	"slotflow/models"
)

// Join attaches a max loss to every activity row by slot id. Rows without a
// matching risk entry get models.Unspecified. When the risk table repeats a
// slot id the first entry wins; null ids never match.
func Join(activity []models.ActivityRecord, risk []models.RiskRecord) []models.JoinedRecord {
	index := make(map[float64]models.MaxLoss, len(risk))
	duplicates := 0
	for _, r := range risk {
		if !r.SlotID.Valid {
			continue
		}
		if _, ok := index[r.SlotID.Value]; ok {
			duplicates++
			continue
		}
		index[r.SlotID.Value] = r.MaxLoss
	}

	joined := make([]models.JoinedRecord, len(activity))
	unmatched := 0
	for i, a := range activity {
		loss := models.Unspecified
		if a.SlotID.Valid {
			if m, ok := index[a.SlotID.Value]; ok {
				loss = m
			} else {
				unmatched++
			}
		} else {
			unmatched++
		}
		joined[i] = models.JoinedRecord{ActivityRecord: a, MaxLoss: loss}
	}

	logger.GetLogger().WithComponent("joiner").WithFields(logger.Fields{
		"rows":            len(joined),
		"unmatched":       unmatched,
		"duplicate_risks": duplicates,
	}).Debug("risk joined")
	return joined
}
