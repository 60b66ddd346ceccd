package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	bytesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "streamlink",
			Subsystem: "stream",
			Name:      "bytes_read_total",
			Help:      "Raw bytes received from the transport.",
		},
	)
	samplesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "streamlink",
			Subsystem: "stream",
			Name:      "samples_decoded_total",
			Help:      "Telemetry objects decoded and dispatched.",
		},
	)
	decodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "streamlink",
			Subsystem: "stream",
			Name:      "decode_errors_total",
			Help:      "Candidate frames discarded as malformed.",
		},
	)
	bufferOverflows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "streamlink",
			Subsystem: "stream",
			Name:      "buffer_overflows_total",
			Help:      "Receive-buffer resets after the overflow ceiling.",
		},
	)
	callbackFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "streamlink",
			Subsystem: "stream",
			Name:      "callback_faults_total",
			Help:      "Observer callbacks that panicked during dispatch.",
		},
	)
	transportRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "streamlink",
			Subsystem: "stream",
			Name:      "transport_retries_total",
			Help:      "Loop iterations spent waiting on an unavailable transport.",
		},
	)
	lastSampleTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "streamlink",
			Subsystem: "stream",
			Name:      "last_sample_unix_seconds",
			Help:      "Wall-clock time of the most recent decoded sample.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streamlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			bytesRead, samplesDecoded, decodeErrors, bufferOverflows,
			callbackFaults, transportRetries, lastSampleTime,
			httpRequests, httpDuration,
		)
	})
}

func RecordBytesRead(n int) {
	RegisterMetrics()
	bytesRead.Add(float64(n))
}

func RecordSampleDecoded() {
	RegisterMetrics()
	samplesDecoded.Inc()
}

func RecordDecodeError() {
	RegisterMetrics()
	decodeErrors.Inc()
}

func RecordBufferOverflow() {
	RegisterMetrics()
	bufferOverflows.Inc()
}

func RecordCallbackFault() {
	RegisterMetrics()
	callbackFaults.Inc()
}

func RecordTransportRetry() {
	RegisterMetrics()
	transportRetries.Inc()
}

func SetLastSampleTime(t time.Time) {
	RegisterMetrics()
	lastSampleTime.Set(float64(t.UnixNano()) / float64(time.Second))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
