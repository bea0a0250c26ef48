package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pauldevelopai/alibi-sub001/internal/alert"
	"github.com/pauldevelopai/alibi-sub001/internal/audit"
	"github.com/pauldevelopai/alibi-sub001/internal/config"
	"github.com/pauldevelopai/alibi-sub001/internal/detect"
	"github.com/pauldevelopai/alibi-sub001/internal/eventbus"
	"github.com/pauldevelopai/alibi-sub001/internal/events"
	"github.com/pauldevelopai/alibi-sub001/internal/feed"
	"github.com/pauldevelopai/alibi-sub001/internal/incident"
	"github.com/pauldevelopai/alibi-sub001/internal/pipeline"
	"github.com/pauldevelopai/alibi-sub001/internal/plan"
	"github.com/pauldevelopai/alibi-sub001/internal/validate"
	"github.com/pauldevelopai/alibi-sub001/internal/watchlist"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/default.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event bus: external broker if configured, embedded otherwise.
	nc, closeBus, err := eventbus.Connect(cfg.NATS.URL, cfg.NATS.EmbeddedPort)
	if err != nil {
		log.Fatalf("Event bus error: %v", err)
	}
	defer closeBus()

	// Audit log: append-only, serialized writer shared by all cycles.
	auditWriter, err := audit.NewWriter(cfg.Audit.LogPath)
	if err != nil {
		log.Fatalf("Audit log error: %v", err)
	}
	defer auditWriter.Close()

	// Optional redis for the zone cooldown.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Watchlist: store, gallery snapshots, matcher.
	store := watchlist.NewStore(cfg.Watchlist.StorePath)
	gallery := watchlist.NewGallery(store, cfg.Watchlist.ReloadInterval, cfg.Watchlist.WatchStoreChange)
	gallery.StartReloader(ctx)

	// Text generator: external model when configured, deterministic
	// no-op otherwise. The compiler falls back either way.
	var gen alert.TextGenerator = alert.DeterministicGenerator{}
	if cfg.TextGen.URL != "" {
		gen = alert.NewHTTPGenerator(cfg.TextGen.URL, cfg.TextGen.APIKey, cfg.TextGen.Timeout)
	}

	validator := validate.NewValidator(cfg.Thresholds)
	hub := feed.NewHub()

	pipe := pipeline.New(
		incident.NewAggregator(cfg.Pipeline.GroupWindow),
		plan.NewBuilder(cfg.Thresholds),
		validator,
		alert.NewCompiler(gen, validator),
		alert.NewCooldown(rdb, cfg.Pipeline.CooldownWindow),
		auditWriter,
		hub,
		events.NewDedup(cfg.Detectors.DedupMaxKeys, cfg.Detectors.DedupTTLSeconds),
	)

	// The pipeline chain is synchronous; it runs inline in the bus
	// subscription callback.
	sub, err := eventbus.Subscribe(nc, cfg.NATS.SubjectRoot, func(evt *events.DetectionEvent) {
		pipe.Process(ctx, evt)
	})
	if err != nil {
		log.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Unsubscribe()

	// Detector loops. Each camera configured via env gets a watchlist
	// matcher cycle; other detectors are external processes publishing
	// to the same bus.
	runner := detect.NewRunner(eventbus.NewPublisher(nc, cfg.NATS.SubjectRoot, cfg.NATS.PublishRetry))
	if snapURL := os.Getenv("SNAPSHOT_URL"); snapURL != "" {
		source := detect.NewHTTPFrameSource(snapURL, os.Getenv("SNAPSHOT_TOKEN"))
		sourceID := envOr("WATCHLIST_SOURCE_ID", "cam-1")
		zoneID := envOr("WATCHLIST_ZONE_ID", "zone-1")
		runner.Register(watchlist.NewMatcher(cfg.Watchlist, gallery, source, sourceID, zoneID))
	}
	runner.Start(ctx)
	defer runner.Stop()

	// Health / metrics / redacted watchlist listing / alert feed.
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router(hub, store, gallery)}
	go func() {
		log.Printf("[Server] Listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] HTTP server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Printf("[Server] Shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func router(hub *feed.Hub, store *watchlist.Store, gallery *watchlist.Gallery) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       "ok",
			"feed_clients": hub.ClientCount(),
			"gallery_size": len(gallery.Current().Entries),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Redacted listing only: embeddings never leave the core.
	r.Get("/api/v1/watchlist", func(w http.ResponseWriter, req *http.Request) {
		listed, err := store.List()
		if err != nil {
			http.Error(w, "watchlist unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(listed)
	})

	r.Get("/api/v1/alerts/feed", hub.ServeWS)

	return r
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
