package processor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotflow/models"
)

func joined(date string, id models.NullFloat, event, deposited, pl string) models.JoinedRecord {
	return models.JoinedRecord{ActivityRecord: models.ActivityRecord{
		Date:            date,
		SlotID:          id,
		SlotType:        models.SlotTypeDaily,
		EventType:       event,
		DepositedAmount: deposited,
		ProfitLoss:      pl,
	}}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-05", "05.03.2024", "5.3.2024", "2024-03-05T00:00:00Z", "03/05/2024", "3/5/2024", "45356"} {
		got := parseDate(raw)
		require.NotNil(t, got, raw)
		assert.True(t, want.Equal(*got), "%s parsed as %v", raw, got)
	}

	withTime := parseDate("5.3.2024 14:30")
	require.NotNil(t, withTime)
	assert.Equal(t, 14, withTime.Hour())

	slashed := parseDate("01/02/2024 08:15:00")
	require.NotNil(t, slashed)
	assert.Equal(t, time.January, slashed.Month(), "slash dates are month first")
	assert.Equal(t, 2, slashed.Day())

	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("yesterday"))
}

func TestAggregateEarliestDepositWins(t *testing.T) {
	a := NewAggregator(nil)
	slots := a.Aggregate([]models.JoinedRecord{
		joined("2024-02-01", models.Float(1), "Deposit", "200", ""),
		joined("2024-01-01", models.Float(1), "Deposit", "100", ""),
		joined("bad", models.Float(2), "Deposit", "50", ""),
		joined("2024-01-15", models.Float(3), "Deposit", "70", ""),
		joined("2024-01-15", models.Float(3), "Deposit", "80", ""),
	})
	require.Len(t, slots, 3)

	assert.Equal(t, 1.0, slots[0].SlotID.Value)
	assert.Equal(t, 100.0, slots[0].DepositedAmount.Value)
	assert.Equal(t, 3.0, slots[1].SlotID.Value)
	assert.Equal(t, 70.0, slots[1].DepositedAmount.Value, "ties keep row order")
	assert.Equal(t, 2.0, slots[2].SlotID.Value, "undated slots sort last")
	assert.Nil(t, slots[2].FirstDepositDate)
}

func TestAggregateSlotWithoutOutcomes(t *testing.T) {
	a := NewAggregator(nil)
	slots := a.Aggregate([]models.JoinedRecord{
		joined("2024-01-01", models.Float(1), "Deposit", "400", ""),
	})
	require.Len(t, slots, 1)

	s := slots[0]
	assert.False(t, s.NetProfitLoss.Valid)
	assert.Equal(t, 400.0, s.FinalTotal)
	assert.Equal(t, 0.0, s.ReturnPercent)
}

func TestAggregateNullValues(t *testing.T) {
	a := NewAggregator([]string{"Vklady"})
	slots := a.Aggregate([]models.JoinedRecord{
		joined("2024-01-01", models.Float(1), "Vklady", "n/a", ""),
		joined("2024-01-02", models.Float(1), "Výběr", "", "25"),
		joined("2024-01-03", models.Float(1), "Výběr", "", "oops"),
		joined("2024-01-04", models.NullFloat{}, "Vklady", "10", ""),
		joined("2024-01-05", models.NullFloat{}, "Vklady", "20", ""),
		joined("2024-01-06", models.NullFloat{}, "Výběr", "", "99"),
		joined("2024-01-07", models.Float(5), "Výběr", "", "1"),
	})
	require.Len(t, slots, 2, "null ids collapse into one slot; outcome-only slots are dropped")

	first := slots[0]
	assert.False(t, first.DepositedAmount.Valid)
	assert.Equal(t, 25.0, first.NetProfitLoss.Value)
	assert.True(t, math.IsNaN(first.FinalTotal))
	assert.True(t, math.IsNaN(first.ReturnPercent))

	unidentified := slots[1]
	assert.False(t, unidentified.SlotID.Valid)
	assert.Equal(t, 10.0, unidentified.DepositedAmount.Value)
	assert.False(t, unidentified.NetProfitLoss.Valid)
}

func TestIsDeposit(t *testing.T) {
	a := NewAggregator(nil)
	assert.True(t, a.IsDeposit("Deposit"))
	assert.True(t, a.IsDeposit("Vklady"))
	assert.False(t, a.IsDeposit(" Vklady "))
	assert.False(t, a.IsDeposit("deposit"))
	assert.False(t, a.IsDeposit("Payout"))
}
