//go:build linux

package irq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricIRQDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uconet_irq_dispatched_total",
			Help: "Count of device IRQs dispatched to their registered handlers.",
		},
		[]string{"irq"},
	)

	metricSoftirqRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "uconet_softirq_runs_total",
			Help: "Count of soft-IRQ bottom-half invocations.",
		},
	)
)
