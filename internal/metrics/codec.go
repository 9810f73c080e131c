// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for the scan model codec.
package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namePrefix = "scanmodel_"

// Result label values. Failures use the codec error kind name.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// CodecOperationsTotal counts load/save calls by outcome.
	CodecOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanmodel_codec_operations_total",
		Help: "Total number of codec operations, by operation (load/save) and result.",
	}, []string{"op", "result"})

	// CodecOperationDuration observes wall time of load/save calls.
	CodecOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scanmodel_codec_operation_duration_seconds",
		Help:    "Duration of codec operations in seconds, by operation.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"op"})

	// ReloadsTotal counts configuration reload attempts by outcome.
	ReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanmodel_reloads_total",
		Help: "Total number of configuration reloads, by result.",
	}, []string{"result"})
)

// Recorder receives codec outcomes. The codec uses Prometheus by default.
type Recorder interface {
	ObserveOperation(op, result string, took time.Duration)
}

// Prometheus records into the package-level collectors.
type Prometheus struct{}

// ObserveOperation implements Recorder.
func (Prometheus) ObserveOperation(op, result string, took time.Duration) {
	CodecOperationsTotal.WithLabelValues(op, result).Inc()
	CodecOperationDuration.WithLabelValues(op).Observe(took.Seconds())
}

// Nop discards observations.
type Nop struct{}

// ObserveOperation implements Recorder.
func (Nop) ObserveOperation(string, string, time.Duration) {}

// RecordReload increments the reload counter.
func RecordReload(ok bool) {
	result := ResultOK
	if !ok {
		result = ResultError
	}
	ReloadsTotal.WithLabelValues(result).Inc()
}

// WriteText writes the scanmodel_ families gathered from g in the Prometheus
// text exposition format. Families of other collectors are skipped.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namePrefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
