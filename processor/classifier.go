package processor

import "slotflow/models"

// Classify sets the risk band and recommended weight of every slot in place
// and returns the same slice.
func Classify(slots []models.SlotSummary) []models.SlotSummary {
	for i := range slots {
		band := models.ClassifyMaxLoss(slots[i].MaxLoss)
		slots[i].RiskBand = band
		slots[i].RecommendedWeight = band.Weight()
	}
	return slots
}
