package processor

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"slotflow/logger"
	"slotflow/models"
)

// DefaultDepositTypes are the event labels treated as deposits.
var DefaultDepositTypes = []string{"Deposit", "Vklady"}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"2.1.2006 15:04",
	"02.01.2006",
	"2.1.2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
}

// Excel serial day numbers accepted as dates (1900-01-01 .. 9999-12-31).
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// parseDate reads a deposit date. Unparseable input yields nil.
func parseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if serial := models.ParseFloat(s); serial.Valid && serial.Value >= minExcelSerial && serial.Value <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial.Value, false); err == nil {
			return &t
		}
	}
	return nil
}

// slotKey groups rows by slot id. All null ids share one key.
type slotKey struct {
	valid bool
	id    float64
}

func keyOf(id models.NullFloat) slotKey {
	if !id.Valid {
		return slotKey{}
	}
	return slotKey{valid: true, id: id.Value}
}

type deposit struct {
	row    int
	date   *time.Time
	amount models.NullFloat
	rec    models.JoinedRecord
}

// Aggregator collapses joined rows into one summary per slot.
type Aggregator struct {
	depositTypes map[string]struct{}
	log          *logger.Log
}

// NewAggregator treats the given event labels as deposits; an empty list
// falls back to DefaultDepositTypes. Labels match exactly.
func NewAggregator(depositTypes []string) *Aggregator {
	if len(depositTypes) == 0 {
		depositTypes = DefaultDepositTypes
	}
	a := &Aggregator{
		depositTypes: make(map[string]struct{}, len(depositTypes)),
		log:          logger.GetLogger(),
	}
	for _, t := range depositTypes {
		a.depositTypes[t] = struct{}{}
	}
	return a
}

// IsDeposit reports whether an event label marks a deposit row.
func (a *Aggregator) IsDeposit(eventType string) bool {
	_, ok := a.depositTypes[eventType]
	return ok
}

// Aggregate builds one SlotSummary per slot that has a deposit row. Metadata
// comes from the earliest dated deposit and outcomes are summed. Output is
// ordered by first deposit date, undated slots last.
func (a *Aggregator) Aggregate(rows []models.JoinedRecord) []models.SlotSummary {
	var (
		deposits    []deposit
		sums        = make(map[slotKey]float64)
		badDates    int
		badAmounts  int
		outcomeRows int
		orphanRows  int
	)

	for i, r := range rows {
		if a.IsDeposit(r.EventType) {
			d := deposit{row: i, date: parseDate(r.Date), amount: models.ParseFloat(r.DepositedAmount), rec: r}
			if d.date == nil {
				badDates++
			}
			if !d.amount.Valid {
				badAmounts++
			}
			deposits = append(deposits, d)
			continue
		}

		if !r.SlotID.Valid {
			orphanRows++
			continue
		}
		outcomeRows++
		k := keyOf(r.SlotID)
		// null profit/loss adds nothing but still marks the slot as having outcomes
		sums[k] += models.ParseFloat(r.ProfitLoss).Or(0)
	}

	sort.SliceStable(deposits, func(i, j int) bool {
		di, dj := deposits[i].date, deposits[j].date
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})

	seen := make(map[slotKey]struct{}, len(deposits))
	slots := make([]models.SlotSummary, 0, len(deposits))
	for _, d := range deposits {
		k := keyOf(d.rec.SlotID)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		s := models.SlotSummary{
			FirstDepositDate: d.date,
			SlotID:           d.rec.SlotID,
			Source:           d.rec.Source,
			SlotType:         d.rec.SlotType,
			MiningSubject:    d.rec.MiningSubject,
			DepositedAmount:  d.amount,
			MaxLoss:          d.rec.MaxLoss,
		}
		if k.valid {
			if sum, ok := sums[k]; ok {
				s.NetProfitLoss = models.Float(sum)
			}
		}
		s.FinalTotal, s.ReturnPercent = returns(s.DepositedAmount, s.NetProfitLoss)
		slots = append(slots, s)
	}

	a.log.WithComponent("aggregator").WithFields(logger.Fields{
		"deposit_rows":    len(deposits),
		"outcome_rows":    outcomeRows,
		"orphan_outcomes": orphanRows,
		"invalid_dates":   badDates,
		"invalid_amounts": badAmounts,
		"slots":           len(slots),
	}).Debug("slots aggregated")
	return slots
}

// returns computes the final total and return percentage. A null net counts
// as zero; a null deposit makes both NaN and a zero deposit makes the
// percentage NaN.
func returns(deposited, net models.NullFloat) (total, pct float64) {
	if !deposited.Valid {
		return math.NaN(), math.NaN()
	}
	n := net.Or(0)
	total = deposited.Value + n
	if deposited.Value == 0 {
		return total, math.NaN()
	}
	return total, n / deposited.Value * 100
}
