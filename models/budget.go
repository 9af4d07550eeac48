package models

import (
	"fmt"
	"sort"
)

// DefaultBudget is the per-type budget used when none is configured.
const DefaultBudget = 20000.0

// Slot type labels as they appear in the activity history.
const (
	SlotTypeHourly  = "Hodinové"
	SlotTypeDaily   = "Jednodenní"
	SlotTypeWeekly  = "Týdenní"
	SlotTypeMonthly = "Měsíční"
	SlotTypeLong    = "Dlouhodobé"
)

// SlotTypes returns the fixed slot type labels in display order.
func SlotTypes() []string {
	return []string{SlotTypeHourly, SlotTypeDaily, SlotTypeWeekly, SlotTypeMonthly, SlotTypeLong}
}

// BudgetConfig maps a slot type label to the amount to distribute across
// slots of that type.
type BudgetConfig map[string]float64

// DefaultBudgets returns DefaultBudget for every fixed slot type.
func DefaultBudgets() BudgetConfig {
	b := make(BudgetConfig, len(SlotTypes()))
	for _, t := range SlotTypes() {
		b[t] = DefaultBudget
	}
	return b
}

// For returns the budget of a slot type; unknown types get 0.
func (b BudgetConfig) For(slotType string) float64 {
	return b[slotType]
}

// Merge returns a copy of b with overrides applied.
func (b BudgetConfig) Merge(overrides map[string]float64) BudgetConfig {
	out := make(BudgetConfig, len(b)+len(overrides))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Validate rejects negative budgets.
func (b BudgetConfig) Validate() error {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if b[k] < 0 {
			return fmt.Errorf("budget for %q must not be negative, got %v", k, b[k])
		}
	}
	return nil
}
