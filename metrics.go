package container

import (
	"sort"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
)

// ── Performance metrics ───────────────────────────────────────────────────────

const (
	metricResolvePrefix = "container.resolve."
	metricFailurePrefix = "container.failure."
)

// IdentifierMetrics is the per-identifier slice of the performance report.
type IdentifierMetrics struct {
	Resolutions int64
	Failures    int64
	AvgDuration time.Duration
	MaxDuration time.Duration
}

// PerformanceMetrics is the read-back snapshot of the metric registry.
type PerformanceMetrics struct {
	TotalResolutions int64
	TotalFailures    int64
	PerIdentifier    map[string]IdentifierMetrics
	SlowestFirst     []string
}

func (c *Container) recordMetrics(abstract string, d time.Duration, err error) {
	metrics.GetOrRegisterTimer(metricResolvePrefix+abstract, c.metrics).Update(d)
	if err != nil {
		metrics.GetOrRegisterCounter(metricFailurePrefix+abstract, c.metrics).Inc(1)
	}
}

// GetPerformanceMetrics snapshots resolution counts, failure counts, and
// timing per identifier.
func (c *Container) GetPerformanceMetrics() PerformanceMetrics {
	report := PerformanceMetrics{PerIdentifier: make(map[string]IdentifierMetrics)}

	c.metrics.Each(func(name string, metric any) {
		switch m := metric.(type) {
		case metrics.Timer:
			id := strings.TrimPrefix(name, metricResolvePrefix)
			snap := m.Snapshot()
			entry := report.PerIdentifier[id]
			entry.Resolutions = snap.Count()
			entry.AvgDuration = time.Duration(snap.Mean())
			entry.MaxDuration = time.Duration(snap.Max())
			report.PerIdentifier[id] = entry
			report.TotalResolutions += snap.Count()
		case metrics.Counter:
			id := strings.TrimPrefix(name, metricFailurePrefix)
			entry := report.PerIdentifier[id]
			entry.Failures = m.Count()
			report.PerIdentifier[id] = entry
			report.TotalFailures += m.Count()
		}
	})

	report.SlowestFirst = make([]string, 0, len(report.PerIdentifier))
	for id := range report.PerIdentifier {
		report.SlowestFirst = append(report.SlowestFirst, id)
	}
	sort.Slice(report.SlowestFirst, func(i, j int) bool {
		a := report.PerIdentifier[report.SlowestFirst[i]]
		b := report.PerIdentifier[report.SlowestFirst[j]]
		if a.AvgDuration != b.AvgDuration {
			return a.AvgDuration > b.AvgDuration
		}
		return report.SlowestFirst[i] < report.SlowestFirst[j]
	})
	return report
}
