package logger

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

type levelCounts struct {
	warns  int64
	errors int64
}

// per component warn/error counters, map[string]*levelCounts
var componentCounts sync.Map

func recordLevel(component string, level logrus.Level) {
	v, _ := componentCounts.LoadOrStore(component, &levelCounts{})
	c := v.(*levelCounts)
	switch level {
	case logrus.WarnLevel:
		atomic.AddInt64(&c.warns, 1)
	case logrus.ErrorLevel:
		atomic.AddInt64(&c.errors, 1)
	}
}

// WarnCount returns how many warnings a component has logged.
func WarnCount(component string) int64 {
	if v, ok := componentCounts.Load(component); ok {
		return atomic.LoadInt64(&v.(*levelCounts).warns)
	}
	return 0
}

// ErrorCount returns how many errors a component has logged.
func ErrorCount(component string) int64 {
	if v, ok := componentCounts.Load(component); ok {
		return atomic.LoadInt64(&v.(*levelCounts).errors)
	}
	return 0
}

// LogRunReport logs host and process statistics together with the per
// component warn/error counters and the supplied run fields. It is a no-op
// unless the logger level is "report".
func LogRunReport(ctx context.Context, log *Log, run Fields) {
	if !log.ReportRuns() {
		return
	}

	cpuPct := 0.0
	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		cpuPct = pcts[0]
	}
	var memUsedMB float64
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memUsedMB = float64(vm.Used) / 1024 / 1024
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	counts := map[string]map[string]int64{}
	var names []string
	componentCounts.Range(func(k, v any) bool {
		name := k.(string)
		c := v.(*levelCounts)
		counts[name] = map[string]int64{
			"warns":  atomic.LoadInt64(&c.warns),
			"errors": atomic.LoadInt64(&c.errors),
		}
		names = append(names, name)
		return true
	})
	sort.Strings(names)

	fields := Fields{
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      memUsedMB,
		"heap_alloc_mb":  float64(ms.HeapAlloc) / 1024 / 1024,
		"component_logs": counts,
	}
	for k, v := range run {
		fields[k] = v
	}
	log.WithComponent("report").WithFields(fields).Info("run report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(memUsedMB)},
	}
	for _, name := range names {
		dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(name)}}
		data = append(data,
			cwtypes.MetricDatum{MetricName: aws.String("Warnings"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(counts[name]["warns"]))},
			cwtypes.MetricDatum{MetricName: aws.String("Errors"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(counts[name]["errors"]))},
		)
	}
	publishMetrics(ctx, data)
}
