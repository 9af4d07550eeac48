package processor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"slotflow/config"
	"slotflow/logger"
	"slotflow/models"
	"slotflow/reader"
)

// Pipeline runs normalize, join, aggregate, classify and allocate over one
// pair of input tables. It holds no per-run state and is safe for concurrent
// use.
type Pipeline struct {
	normalizer *Normalizer
	aggregator *Aggregator
	budgets    models.BudgetConfig
	log        *logger.Log
}

// NewPipeline builds a pipeline from the configured aliases, deposit labels
// and default budgets.
func NewPipeline(cfg *config.Config) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Pipeline{
		normalizer: NewNormalizer(cfg.Columns.Aliases),
		aggregator: NewAggregator(cfg.DepositTypes),
		budgets:    cfg.BudgetConfig(),
		log:        logger.GetLogger(),
	}
}

// Budgets returns the configured budgets merged with overrides.
func (p *Pipeline) Budgets(overrides map[string]float64) models.BudgetConfig {
	return p.budgets.Merge(overrides)
}

// Run produces a report from the activity and risk tables. budgets overrides
// the configured budget per slot type; nil keeps the configuration.
func (p *Pipeline) Run(activity, risk *reader.Table, budgets map[string]float64) (*models.Report, error) {
	if activity == nil || risk == nil {
		return nil, ErrInputsNotReady
	}

	b := p.Budgets(budgets)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid budgets: %w", err)
	}

	runID := uuid.New().String()
	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{"run_id": runID})
	start := time.Now()

	activityRows, err := p.normalizer.Activity(activity)
	if err != nil {
		return nil, err
	}
	riskRows, err := p.normalizer.Risk(risk)
	if err != nil {
		return nil, err
	}
	logger.LogDataFlowEntry(log, "normalizer", "joiner", len(activityRows), "activity")

	joined := Join(activityRows, riskRows)
	slots := p.aggregator.Aggregate(joined)
	logger.LogDataFlowEntry(log, "aggregator", "classifier", len(slots), "slots")

	slots = Classify(slots)
	aggregate := MeanReturns(slots)
	slots = Allocate(slots, b)

	duration := time.Since(start)
	logger.LogPerformanceEntry(log, "pipeline", "run", duration, logger.Fields{
		"slots":          len(slots),
		"aggregate_rows": len(aggregate),
	})
	log.LogMetric("pipeline", "slots_allocated", len(slots), "counter", logger.Fields{})
	log.LogMetric("pipeline", "run_duration", float64(duration.Milliseconds()), "duration", logger.Fields{})

	return &models.Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Slots:       slots,
		Aggregate:   aggregate,
		Budgets:     b,
	}, nil
}
