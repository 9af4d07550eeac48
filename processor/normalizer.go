package processor

import (
	"errors"
	"fmt"
	"strings"

	"slotflow/logger"
	"slotflow/models"
	"slotflow/reader"
)

var (
	// ErrInputsNotReady is returned when one of the two input tables is missing.
	ErrInputsNotReady = errors.New("inputs not ready")
	// ErrUnrecognizedSchema is returned when a table has none of the expected columns.
	ErrUnrecognizedSchema = errors.New("unrecognized table schema")
)

// Field names used as keys for header aliases.
const (
	FieldDate            = "date"
	FieldSlotID          = "slot_id"
	FieldSource          = "source"
	FieldSlotType        = "slot_type"
	FieldMiningSubject   = "mining_subject"
	FieldType            = "type"
	FieldDepositedAmount = "deposited_amount"
	FieldProfitLoss      = "profit_loss"
	FieldTotalAmount     = "total_amount"
	FieldMaxLoss         = "max_loss"
)

// activityFields is the allow-list of activity columns. Everything else in the
// activity table is dropped.
var activityFields = []string{
	FieldDate,
	FieldSlotID,
	FieldSource,
	FieldSlotType,
	FieldMiningSubject,
	FieldType,
	FieldDepositedAmount,
	FieldProfitLoss,
	FieldTotalAmount,
}

var defaultAliases = map[string][]string{
	FieldDate:            {"Date", "Datum"},
	FieldSlotID:          {"Slot ID", "ID slotu"},
	FieldSource:          {"Source", "Zdroj"},
	FieldSlotType:        {"Slot Type", "Typ slotu"},
	FieldMiningSubject:   {"Mining Subject", "Předmět těžby"},
	FieldType:            {"Type", "Event Type", "Typ"},
	FieldDepositedAmount: {"Deposited Amount", "Vložená částka"},
	FieldProfitLoss:      {"Profit/Loss", "Zisk/Ztráta"},
	FieldTotalAmount:     {"Total Amount", "Running Total", "Souhrná částka"},
	FieldMaxLoss:         {"Max Loss (%)", "Max Loss", "Maximální ztráta (%)"},
}

// Normalizer maps raw tables onto typed records. Header matching ignores case
// and repeated whitespace.
type Normalizer struct {
	aliases map[string]string // normalized header -> field
	log     *logger.Log
}

// NewNormalizer builds a normalizer from the built-in aliases plus extra,
// keyed by field name.
func NewNormalizer(extra map[string][]string) *Normalizer {
	n := &Normalizer{
		aliases: make(map[string]string),
		log:     logger.GetLogger(),
	}
	for field, names := range defaultAliases {
		n.addAliases(field, names)
	}
	for field, names := range extra {
		n.addAliases(strings.ToLower(strings.TrimSpace(field)), names)
	}
	return n
}

func (n *Normalizer) addAliases(field string, names []string) {
	for _, name := range names {
		if key := normalizeHeader(name); key != "" {
			n.aliases[key] = field
		}
	}
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// columns returns the first column index of every recognised field.
func (n *Normalizer) columns(t *reader.Table) map[string]int {
	cols := make(map[string]int)
	for i, h := range t.Header {
		field, ok := n.aliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := cols[field]; !seen {
			cols[field] = i
		}
	}
	return cols
}

// Activity normalizes the investment history.
func (n *Normalizer) Activity(t *reader.Table) ([]models.ActivityRecord, error) {
	if t == nil {
		return nil, ErrInputsNotReady
	}

	cols := n.columns(t)
	known := 0
	for _, f := range activityFields {
		if _, ok := cols[f]; ok {
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("activity table [%s]: %w", t.Name, ErrUnrecognizedSchema)
	}

	records := make([]models.ActivityRecord, 0, len(t.Rows))
	badIDs := 0
	for _, row := range t.Rows {
		cell := func(field string) string {
			i, ok := cols[field]
			if !ok {
				return ""
			}
			return cellAt(row, i)
		}

		rawID := cell(FieldSlotID)
		id := models.ParseFloat(rawID)
		if !id.Valid && rawID != "" {
			badIDs++
		}
		records = append(records, models.ActivityRecord{
			Date:            cell(FieldDate),
			SlotID:          id,
			Source:          cell(FieldSource),
			SlotType:        cell(FieldSlotType),
			MiningSubject:   cell(FieldMiningSubject),
			EventType:       rawCell(row, cols, FieldType),
			DepositedAmount: cell(FieldDepositedAmount),
			ProfitLoss:      cell(FieldProfitLoss),
			RunningTotal:    cell(FieldTotalAmount),
		})
	}

	n.log.WithComponent("normalizer").WithFields(logger.Fields{
		"table":           t.Name,
		"columns":         known,
		"rows":            len(records),
		"invalid_slot_id": badIDs,
	}).Debug("activity table normalized")
	return records, nil
}

// Risk normalizes the per-slot risk table.
func (n *Normalizer) Risk(t *reader.Table) ([]models.RiskRecord, error) {
	if t == nil {
		return nil, ErrInputsNotReady
	}

	cols := n.columns(t)
	idCol, ok := cols[FieldSlotID]
	if !ok {
		return nil, fmt.Errorf("risk table [%s] has no slot id column: %w", t.Name, ErrUnrecognizedSchema)
	}
	lossCol, hasLoss := cols[FieldMaxLoss]

	records := make([]models.RiskRecord, 0, len(t.Rows))
	badIDs, unspecified := 0, 0
	for _, row := range t.Rows {
		rawID := cellAt(row, idCol)
		rec := models.RiskRecord{SlotID: models.ParseFloat(rawID)}
		if !rec.SlotID.Valid && rawID != "" {
			badIDs++
		}
		if hasLoss {
			rec.MaxLoss = models.ParseMaxLoss(cellAt(row, lossCol))
		}
		if rec.MaxLoss.IsUnspecified() {
			unspecified++
		}
		records = append(records, rec)
	}

	n.log.WithComponent("normalizer").WithFields(logger.Fields{
		"table":           t.Name,
		"rows":            len(records),
		"invalid_slot_id": badIDs,
		"unspecified":     unspecified,
	}).Debug("risk table normalized")
	return records, nil
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rawCell returns a cell untrimmed. Event labels are compared as written.
func rawCell(row []string, cols map[string]int, field string) string {
	i, ok := cols[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
