package dashboard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ring keeps the most recent items up to limit. It is safe for concurrent use.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newRing[T any](limit int) *ring[T] {
	if limit <= 0 {
		limit = 200
	}
	return &ring[T]{limit: limit}
}

func (r *ring[T]) add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, item)
	if len(r.items) > r.limit {
		// keep the most recent entries only
		r.items = append([]T(nil), r.items[len(r.items)-r.limit:]...)
	}
}

func (r *ring[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// logRecord is a captured log entry served by /api/logs.
type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// metricRecord is a captured LogMetric entry served by /api/metrics.
type metricRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Component string      `json:"component"`
	Name      string      `json:"name"`
	Value     interface{} `json:"value"`
	Type      string      `json:"type"`
}

// logStore is a logrus hook retaining recent log entries and the metrics
// logged through logger.LogMetric.
type logStore struct {
	logs    *ring[logRecord]
	metrics *ring[metricRecord]
	enabled atomic.Bool
}

func newLogStore(limit int) *logStore {
	ls := &logStore{
		logs:    newRing[logRecord](limit),
		metrics: newRing[metricRecord](limit),
	}
	ls.enabled.Store(true)
	return ls
}

func (s *logStore) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	if !s.enabled.Load() {
		return nil
	}

	record := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	if component, ok := entry.Data["component"].(string); ok {
		record.Component = component
	}

	if len(entry.Data) > 0 {
		record.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if k == "component" {
				continue
			}
			switch val := v.(type) {
			case error:
				record.Fields[k] = val.Error()
			case fmt.Stringer:
				record.Fields[k] = val.String()
			default:
				record.Fields[k] = val
			}
		}
	}
	s.logs.add(record)

	if entry.Message == "metric" {
		name, _ := entry.Data["metric"].(string)
		typ, _ := entry.Data["metric_type"].(string)
		s.metrics.add(metricRecord{
			Timestamp: entry.Time,
			Component: record.Component,
			Name:      name,
			Value:     entry.Data["value"],
			Type:      typ,
		})
	}
	return nil
}

func (s *logStore) snapshot() []logRecord {
	return s.logs.snapshot()
}

func (s *logStore) metricSnapshot() []metricRecord {
	return s.metrics.snapshot()
}

func (s *logStore) close() {
	s.enabled.Store(false)
}
