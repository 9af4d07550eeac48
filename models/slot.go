package models

import "time"

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// INPUT /////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// ActivityRecord is one row of the investment history. Amount columns are
// kept raw; they are coerced per event partition by the aggregator.
type ActivityRecord struct {
	Date            string    `json:"date"`
	SlotID          NullFloat `json:"slot_id"`
	Source          string    `json:"source"`
	SlotType        string    `json:"slot_type"`
	MiningSubject   string    `json:"mining_subject"`
	EventType       string    `json:"event_type"`
	DepositedAmount string    `json:"deposited_amount"`
	ProfitLoss      string    `json:"profit_loss"`
	RunningTotal    string    `json:"running_total"`
}

// RiskRecord is one row of the per-slot risk table.
type RiskRecord struct {
	SlotID  NullFloat `json:"slot_id"`
	MaxLoss MaxLoss   `json:"max_loss"`
}

// JoinedRecord is an activity row with its risk attached.
type JoinedRecord struct {
	ActivityRecord
	MaxLoss MaxLoss `json:"max_loss"`
}

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// OUTPUT ////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// SlotSummary is the per-slot row produced by the aggregator and enriched by
// the classifier and the allocation engine.
type SlotSummary struct {
	FirstDepositDate *time.Time `json:"first_deposit_date,omitempty" msgpack:"date"`
	SlotID           NullFloat  `json:"slot_id" msgpack:"slot_id"`
	Source           string     `json:"source" msgpack:"source"`
	SlotType         string     `json:"slot_type" msgpack:"slot_type"`
	MiningSubject    string     `json:"mining_subject" msgpack:"subject"`
	DepositedAmount  NullFloat  `json:"deposited_amount" msgpack:"deposited"`
	NetProfitLoss    NullFloat  `json:"net_profit_loss" msgpack:"net"`
	// FinalTotal and ReturnPercent are NaN when not computable.
	FinalTotal         float64   `json:"-" msgpack:"total"`
	ReturnPercent      float64   `json:"-" msgpack:"return"`
	MaxLoss            MaxLoss   `json:"max_loss" msgpack:"max_loss"`
	RiskBand           RiskBand  `json:"-" msgpack:"band"`
	RecommendedWeight  float64   `json:"recommended_weight" msgpack:"weight"`
	AllocationRatio    NullFloat `json:"allocation_ratio" msgpack:"ratio"`
	AISuggestedDeposit NullFloat `json:"ai_suggested_deposit" msgpack:"suggested"`
}

// AggregateRow is the mean return of one (slot type, risk band) group.
type AggregateRow struct {
	SlotType   string   `json:"slot_type"`
	RiskBand   RiskBand `json:"-"`
	MeanReturn float64  `json:"-"`
	Count      int      `json:"count"`
}

// Report is the outcome of one pipeline run.
type Report struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Slots       []SlotSummary  `json:"slots"`
	Aggregate   []AggregateRow `json:"aggregate"`
	Budgets     BudgetConfig   `json:"budgets"`
}
