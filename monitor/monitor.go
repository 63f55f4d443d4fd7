// monitor/monitor.go
package monitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/models"
)

// StatusSource produces the read-only snapshot served on /status and over
// the ops RPC. Informational only; it is not part of the game's contract.
type StatusSource interface {
	StatusSnapshot() models.StatusReport
}

type Metrics struct {
	OnlinePlayers      prometheus.Gauge
	ActiveRooms        prometheus.Gauge
	MessagesReceived   prometheus.Counter
	SubmissionsScored  prometheus.Counter
	RateLimitedActions prometheus.Counter
	MessageLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with a round in play",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		SubmissionsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_scored_total",
			Help:      "Total number of verified item submissions",
		}),
		RateLimitedActions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of actions rejected by the rate limiter",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.SubmissionsScored,
		m.RateLimitedActions,
		m.MessageLatency,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	source    StatusSource
	startTime time.Time
}

func NewMonitor(namespace string, source StatusSource) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		source:    source,
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", m.handleStatus)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Log.Errorf("monitor server stopped: %v", err)
		}
	}()
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := m.source.StatusSnapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		models.StatusReport
		UptimeSeconds float64 `json:"uptimeSeconds"`
	}{report, time.Since(m.startTime).Seconds()}); err != nil {
		logger.Log.Errorf("failed to write status: %v", err)
	}
}

func (m *Monitor) IncOnlinePlayers()        { m.metrics.OnlinePlayers.Inc() }
func (m *Monitor) DecOnlinePlayers()        { m.metrics.OnlinePlayers.Dec() }
func (m *Monitor) SetActiveRooms(count int) { m.metrics.ActiveRooms.Set(float64(count)) }
func (m *Monitor) IncMessagesReceived()     { m.metrics.MessagesReceived.Inc() }
func (m *Monitor) IncSubmissionsScored()    { m.metrics.SubmissionsScored.Inc() }
func (m *Monitor) IncRateLimited()          { m.metrics.RateLimitedActions.Inc() }

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}
