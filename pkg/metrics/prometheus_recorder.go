package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg          *prom.Registry
	lines        prom.Counter
	matches      *prom.CounterVec
	scanDuration prom.Histogram
	runs         *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		lines: prom.NewCounter(prom.CounterOpts{
			Namespace: "logparse",
			Name:      "lines_total",
			Help:      "Log lines classified",
		}),
		matches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "logparse",
			Name:      "matches_total",
			Help:      "Classified lines by category",
		}, []string{"category"}),
		scanDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "logparse",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a single log scan",
			Buckets:   prom.DefBuckets,
		}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "logparse",
			Name:      "runs_total",
			Help:      "Classification runs by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.lines, pr.matches, pr.scanDuration, pr.runs)
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

func (p *PrometheusRecorder) AddLines(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.lines.Add(float64(n))
}

func (p *PrometheusRecorder) AddMatches(category string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.matches.WithLabelValues(category).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveScanDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.scanDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcome) {
	if p == nil {
		return
	}
	p.runs.WithLabelValues(string(outcome)).Inc()
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node_exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
