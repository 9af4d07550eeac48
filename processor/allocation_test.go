package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotflow/models"
)

func summary(id float64, slotType string, loss string, ret float64) models.SlotSummary {
	return models.SlotSummary{
		SlotID:        models.Float(id),
		SlotType:      slotType,
		MaxLoss:       models.ParseMaxLoss(loss),
		ReturnPercent: ret,
	}
}

func TestClassifySetsBandAndWeight(t *testing.T) {
	slots := Classify([]models.SlotSummary{
		summary(1, models.SlotTypeDaily, "4,5", 0),
		summary(2, models.SlotTypeDaily, "", 0),
		summary(3, models.SlotTypeDaily, "81", 0),
	})

	assert.Equal(t, models.Risk0To5, slots[0].RiskBand)
	assert.Equal(t, 1500.0, slots[0].RecommendedWeight)
	assert.Equal(t, models.RiskUnspecified, slots[1].RiskBand)
	assert.Equal(t, 100.0, slots[1].RecommendedWeight)
	assert.Equal(t, models.Risk81To100, slots[2].RiskBand)
	assert.Equal(t, 300.0, slots[2].RecommendedWeight)
}

func TestMeanReturnsGroupsAndSorts(t *testing.T) {
	slots := Classify([]models.SlotSummary{
		summary(1, models.SlotTypeWeekly, "30", 10),
		summary(2, models.SlotTypeDaily, "30", 4),
		summary(3, models.SlotTypeWeekly, "30", 20),
		summary(4, models.SlotTypeWeekly, "2", math.NaN()),
		summary(5, models.SlotTypeDaily, "", 1000),
		summary(6, models.SlotTypeDaily, "1", 6),
	})

	rows := MeanReturns(slots)
	require.Len(t, rows, 4)

	assert.Equal(t, models.SlotTypeDaily, rows[0].SlotType)
	assert.Equal(t, models.Risk0To5, rows[0].RiskBand)
	assert.Equal(t, 6.0, rows[0].MeanReturn)
	assert.Equal(t, models.Risk26To50, rows[1].RiskBand)
	assert.Equal(t, 4.0, rows[1].MeanReturn)

	assert.Equal(t, models.SlotTypeWeekly, rows[2].SlotType)
	assert.Equal(t, models.Risk0To5, rows[2].RiskBand)
	assert.True(t, math.IsNaN(rows[2].MeanReturn))
	assert.Equal(t, 0, rows[2].Count)
	assert.Equal(t, 15.0, rows[3].MeanReturn)
	assert.Equal(t, 2, rows[3].Count)
}

func TestAllocateGroupsByFirstSeenType(t *testing.T) {
	slots := Classify([]models.SlotSummary{
		summary(1, models.SlotTypeWeekly, "5", 0),
		summary(2, models.SlotTypeHourly, "5", 0),
		summary(3, models.SlotTypeWeekly, "20", 0),
		summary(4, "Unknown", "20", 0),
	})

	out := Allocate(slots, models.DefaultBudgets())
	require.Len(t, out, 4)

	ids := []float64{out[0].SlotID.Value, out[1].SlotID.Value, out[2].SlotID.Value, out[3].SlotID.Value}
	assert.Equal(t, []float64{1, 3, 2, 4}, ids)
	assert.InDelta(t, 12000.0, out[0].AISuggestedDeposit.Value, 1e-9)
	assert.InDelta(t, 8000.0, out[1].AISuggestedDeposit.Value, 1e-9)
	assert.InDelta(t, 20000.0, out[2].AISuggestedDeposit.Value, 1e-9)
	assert.Equal(t, 1.0, out[3].AllocationRatio.Value)
	assert.Equal(t, 0.0, out[3].AISuggestedDeposit.Value, "types without a budget get nothing")
}

func TestAllocateZeroWeightLeavesRatioNull(t *testing.T) {
	out := Allocate([]models.SlotSummary{{SlotType: models.SlotTypeDaily}}, models.DefaultBudgets())
	require.Len(t, out, 1)
	assert.False(t, out[0].AllocationRatio.Valid)
	assert.False(t, out[0].AISuggestedDeposit.Valid)
}
