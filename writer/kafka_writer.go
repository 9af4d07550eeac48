package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"

	appconfig "slotflow/config"
	"slotflow/logger"
	"slotflow/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReportEvent announces a finished report run.
type ReportEvent struct {
	RunID          string              `json:"run_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Filename       string              `json:"filename"`
	Location       string              `json:"location,omitempty"`
	Slots          int                 `json:"slots"`
	Budgets        models.BudgetConfig `json:"budgets"`
	TotalSuggested float64             `json:"total_suggested"`
}

// NewReportEvent summarizes report. location is where the artifact was
// stored, empty when it was not uploaded.
func NewReportEvent(report *models.Report, filename, location string) ReportEvent {
	total := 0.0
	for _, s := range report.Slots {
		total += s.AISuggestedDeposit.Or(0)
	}
	return ReportEvent{
		RunID:          report.RunID,
		GeneratedAt:    report.GeneratedAt,
		Filename:       filename,
		Location:       location,
		Slots:          len(report.Slots),
		Budgets:        report.Budgets,
		TotalSuggested: total,
	}
}

// Notifier publishes report events to a Kafka topic.
type Notifier struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	log     *logger.Log
}

func NewNotifier(cfg appconfig.KafkaConfig) (*Notifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	n := newNotifier(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
	}, cfg.Topic, cfg.WriteTimeout)

	n.log.WithComponent("kafka_writer").WithFields(logger.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	}).Debug("kafka notifier initialized")
	return n, nil
}

func newNotifier(w messageWriter, topic string, timeout time.Duration) *Notifier {
	return &Notifier{writer: w, topic: topic, timeout: timeout, log: logger.GetLogger()}
}

// Notify writes event keyed by its run id.
func (n *Notifier) Notify(ctx context.Context, event ReportEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal report event: %w", err)
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	log := n.log.WithComponent("kafka_writer").WithFields(logger.Fields{
		"run_id": event.RunID,
		"topic":  n.topic,
	})
	if err := n.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.RunID), Value: data}); err != nil {
		log.WithEnv("KAFKA_BROKERS").WithError(err).Warn("failed to write message")
		return fmt.Errorf("publish report event: %w", err)
	}
	log.Debug("report event written to kafka")
	return nil
}

func (n *Notifier) Close() error {
	n.log.WithComponent("kafka_writer").Debug("stopping kafka notifier")
	return n.writer.Close()
}
