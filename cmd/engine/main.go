package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	_ "github.com/lintang-b-s/navigatorx-pt/docs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/config"
	"github.com/lintang-b-s/navigatorx-pt/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/ptrouter"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/tripbased"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/metrics"
	"github.com/lintang-b-s/navigatorx-pt/pkg/realtime"
	"github.com/lintang-b-s/navigatorx-pt/pkg/server/rest"
	"github.com/lintang-b-s/navigatorx-pt/pkg/server/rest/service"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	configFile = flag.String("config", "config.yml", "config file, env NAVX_* overrides it")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

//	@title			navigatorx-pt lintangbs API
//	@version		1.0
//	@description	public transit routing engine in go, openstreetmap foot network + gtfs & gtfs-realtime

//	@contact.name	lintang birda saputra
//	@description 	public transit routing engine in go. Multi criteria label setting over a time expanded graph, plus trip based routing

//	@license.name	GNU Affero General Public License v3.0
//	@license.url	https://www.gnu.org/licenses/gpl-3.0.en.html

// @host		localhost:5000
// @BasePath	/api
// @schemes	http
func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.InitLogger(cfg.Log.LoggerConfig())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ds, err := dataset.Load(ctx, cfg, log)
	if err != nil {
		log.Fatal("load dataset, run the preprocessing first", "error", err)
	}
	defer ds.Close()
	recordMemProfile(memprofile, "load_dataset", log)

	collector := metrics.NewCollector()
	collector.SetGraphSize(int(ds.Pt.NodeCount()), int(ds.Pt.EdgeCount()), ds.Stations.Size())

	publisher := realtime.NewPublisher(ds.Storage, ds.Pt, log, collector, cfg.Realtime.StaleAfter())
	if len(cfg.Realtime.FeedURLs) > 0 {
		fetcher := realtime.NewFetcher(cfg.Realtime.FeedURLs, cfg.Realtime.PollInterval(), publisher, log)
		go func() {
			if err := fetcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("realtime fetcher stopped", "error", err)
			}
		}()
	}
	if cfg.Realtime.NatsURL != "" {
		sub, err := realtime.NewNatsSubscriber(cfg.Realtime.NatsURL, cfg.Realtime.NatsSubject, publisher, log)
		if err != nil {
			log.Fatal("connect nats", "error", err)
		}
		defer sub.Close()
		if err := sub.Subscribe(); err != nil {
			log.Fatal("subscribe nats", "subject", cfg.Realtime.NatsSubject, "error", err)
		}
	}

	transferTime := dataset.TransferTime(cfg.Routing, ds.Street, ds.Storage)
	ttCfg := cfg.Routing.TripTransferConfig()
	ttCfg.TransferTime = transferTime
	trips := tripbased.NewTrips(ds.Storage)
	tripTransfers := tripbased.NewTripTransferIndex(trips, ttCfg, ds.TransferStore, log)

	snapper := snap.NewStreetSnapper(ds.KV, cfg.Routing.SnapMaxDistanceMeters)
	router := ptrouter.NewRouter(ds.Street, ds.Pt, ds.Storage, snapper, cfg.Routing.RouterConfig(), log,
		ptrouter.WithTripBased(trips, tripTransfers),
		ptrouter.WithMetrics(collector),
		ptrouter.WithRealtime(publisher),
	)
	ptSvc := service.NewPtService(router, ds.Stations, publisher, ds.Storage.FeedIDs())

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(collector.HTTPMiddleware) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Server.MaxConcurrentRequests > 0 {
		r.Use(middleware.Throttle(cfg.Server.MaxConcurrentRequests))
	}

	r.Mount("/debug", middleware.Profiler())

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = collector.Serve(cfg.Server.MetricsAddr, log)
	} else {
		r.Handle("/metrics", collector.Handler())
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s/swagger/doc.json", cfg.Server.SwaggerHost)), //The url pointing to API definition
	))

	rest.PtRouter(r, ptSvc)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server started, time expanded network + trip based routing ready!!", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown", "error", err)
		}
	}
}

func recordMemProfile(memprofile *string, name string, log logger.Logger) {
	if *memprofile == "" {
		return
	}
	path := strings.Replace(*memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
	f, err := os.Create(path)
	if err != nil {
		log.Error("create memory profile", "error", err)
		return
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error("write memory profile", "error", err)
	}
}
