package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bid outcomes recorded on bids_total
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics owns the auction collectors and the registry they are exposed from.
// Each instance has its own registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	BidsTotal    *prometheus.CounterVec
	BidRetries   prometheus.Counter
	HTTPRequests *prometheus.CounterVec
	ItemsClosed  prometheus.Counter
	ItemsCreated prometheus.Counter
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		BidsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auction_bids_total",
				Help: "Bids received, by outcome.",
			},
			[]string{"outcome"},
		),
		BidRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_bid_cas_retries_total",
			Help: "Price compare-and-swap attempts lost to a concurrent bid.",
		}),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auction_http_requests_total",
				Help: "HTTP requests served, by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		ItemsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_items_closed_total",
			Help: "Items moved from active to closed.",
		}),
		ItemsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_items_created_total",
			Help: "Items listed for auction.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
