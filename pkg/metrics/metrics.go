package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry, so tests and several engines in one process do not collide.
type Collector struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec   // method, path, status
	HTTPDuration *prometheus.HistogramVec // method, path

	Queries       *prometheus.CounterVec   // algorithm, found
	QueryDuration *prometheus.HistogramVec // algorithm
	VisitedNodes  *prometheus.HistogramVec // algorithm

	RealtimeUpdates *prometheus.CounterVec // feed, result: applied|failed
	AdditionalEdges prometheus.Gauge

	PtNodes   prometheus.Gauge
	PtEdges   prometheus.Gauge
	Stations  prometheus.Gauge
	DataReady prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigatorx_pt_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "navigatorx_pt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"method", "path"}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigatorx_pt_queries_total",
			Help: "Route queries by algorithm and whether a trip was found.",
		}, []string{"algorithm", "found"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "navigatorx_pt_query_duration_seconds",
			Help:    "Duration of route queries.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"algorithm"}),
		VisitedNodes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "navigatorx_pt_query_visited_nodes",
			Help:    "Labels settled by a route query.",
			Buckets: prometheus.ExponentialBuckets(100, 4, 10),
		}, []string{"algorithm"}),
		RealtimeUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigatorx_pt_realtime_updates_total",
			Help: "Realtime feed messages applied or rejected.",
		}, []string{"feed", "result"}),
		AdditionalEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navigatorx_pt_realtime_additional_edges",
			Help: "Edges added by the current realtime snapshot.",
		}),
		PtNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navigatorx_pt_graph_nodes",
			Help: "Nodes of the transit graph.",
		}),
		PtEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navigatorx_pt_graph_edges",
			Help: "Edges of the transit graph.",
		}),
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navigatorx_pt_stations",
			Help: "Stations in the nearest station index.",
		}),
		DataReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navigatorx_pt_data_ready",
			Help: "1 once the graph is loaded and queries are served.",
		}),
	}

	reg.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.Queries, c.QueryDuration, c.VisitedNodes,
		c.RealtimeUpdates, c.AdditionalEdges,
		c.PtNodes, c.PtEdges, c.Stations, c.DataReady,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) ObserveQuery(algorithm string, found bool, visitedNodes int, elapsed time.Duration) {
	c.Queries.WithLabelValues(algorithm, strconv.FormatBool(found)).Inc()
	c.QueryDuration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
	c.VisitedNodes.WithLabelValues(algorithm).Observe(float64(visitedNodes))
}

func (c *Collector) RealtimeUpdateApplied(feedID string) {
	c.RealtimeUpdates.WithLabelValues(feedID, "applied").Inc()
}

func (c *Collector) RealtimeUpdateFailed(feedID string) {
	c.RealtimeUpdates.WithLabelValues(feedID, "failed").Inc()
}

func (c *Collector) SetAdditionalEdges(n int) {
	c.AdditionalEdges.Set(float64(n))
}

// SetGraphSize records the size of the loaded data and marks it ready.
func (c *Collector) SetGraphSize(nodes, edges, stations int) {
	c.PtNodes.Set(float64(nodes))
	c.PtEdges.Set(float64(edges))
	c.Stations.Set(float64(stations))
	c.DataReady.Set(1)
}

// HTTPMiddleware counts requests per chi route pattern, so path parameters do not blow up the labels.
func (c *Collector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Serve exposes /metrics on its own address, for deployments that keep it off the api port.
func (c *Collector) Serve(addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server", "error", err)
		}
	}()
	log.Info("metrics listening", "addr", addr)
	return srv
}
