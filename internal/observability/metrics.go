package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	messagesSentTotal    *prometheus.CounterVec
	messagesDeletedTotal *prometheus.CounterVec
	readReceiptsTotal    prometheus.Counter
	purchasesTotal       prometheus.Counter
	attachmentBytesSized prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors for the marketplace API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_chat_messages_sent_total",
			Help: "Total number of chat messages persisted, by kind.",
		}, []string{"kind"})

		messagesDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_chat_messages_deleted_total",
			Help: "Total number of chat messages deleted, by mode.",
		}, []string{"mode"})

		readReceiptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_chat_read_receipts_total",
			Help: "Total number of messages flipped to the read state.",
		})

		purchasesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_purchases_total",
			Help: "Total number of completed token purchases.",
		})

		attachmentBytesSized = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "market_chat_attachment_bytes",
			Help:    "Size distribution of accepted chat attachments.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 9),
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			messagesSentTotal,
			messagesDeletedTotal,
			readReceiptsTotal,
			purchasesTotal,
			attachmentBytesSized,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for served requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// MessagesSent exposes the counter for persisted chat messages.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// MessagesDeleted exposes the counter for deleted chat messages.
func MessagesDeleted() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesDeletedTotal
}

// ReadReceipts exposes the counter for read transitions.
func ReadReceipts() prometheus.Counter {
	RegisterMetrics()
	return readReceiptsTotal
}

// Purchases exposes the counter for completed purchases.
func Purchases() prometheus.Counter {
	RegisterMetrics()
	return purchasesTotal
}

// AttachmentBytes exposes the histogram for accepted attachment sizes.
func AttachmentBytes() prometheus.Histogram {
	RegisterMetrics()
	return attachmentBytesSized
}
