package netcore

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricProtocolQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "uconet_protocol_queue_depth",
			Help: "Current number of frames queued for a registered protocol type.",
		},
		[]string{"type"},
	)

	// MetricProtocolDropped is exported so tests outside this package
	// (e.g. internal/ipv4) can assert on drop reasons with
	// prometheus/client_golang/prometheus/testutil.
	MetricProtocolDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uconet_protocol_dropped_total",
			Help: "Count of received frames dropped, by reason.",
		},
		[]string{"reason"},
	)

	metricDeviceTxBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uconet_device_tx_bytes_total",
			Help: "Bytes successfully handed to a device's Transmit.",
		},
		[]string{"device"},
	)

	metricDeviceTxErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uconet_device_tx_errors_total",
			Help: "Count of Output failures, by device and reason.",
		},
		[]string{"device", "reason"},
	)
)

// RecordProtocolDropped increments the drop counter for reason. Exported so
// callers above this package (e.g. the IPv4 input path) can report the
// reasons only they can detect, such as "checksum" or "fragment".
func RecordProtocolDropped(reason string) {
	MetricProtocolDropped.WithLabelValues(reason).Inc()
}

func setProtocolQueueDepth(typ uint16, depth int) {
	metricProtocolQueueDepth.WithLabelValues(strconv.Itoa(int(typ))).Set(float64(depth))
}
