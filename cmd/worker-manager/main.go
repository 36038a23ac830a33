// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sales-crm-workers/internal/agent"
	awsclients "sales-crm-workers/internal/common/aws"
	"sales-crm-workers/internal/common/camunda"
	"sales-crm-workers/internal/common/config"
	"sales-crm-workers/internal/common/database"
	commonhttp "sales-crm-workers/internal/common/http"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/observability"
	"sales-crm-workers/internal/intelligence"
	"sales-crm-workers/internal/judge"
	"sales-crm-workers/internal/marketplace"
	"sales-crm-workers/internal/store"
	"sales-crm-workers/internal/transport"
	"sales-crm-workers/pkg/registry"
)

// deps is everything the worker constructors draw on.
type deps struct {
	cfg        *config.Config
	log        logger.Logger
	leads      store.Leads
	cache      *store.Cache
	pipeline   *judge.Pipeline
	dispatcher *transport.Dispatcher
	aws        *awsclients.Clients
	market     *marketplace.Client
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewFromConfig(cfg.Logging)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting worker manager",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	camunda.UseRecorder(obs)

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err), zap.String("path", cfg.Registry.Path))
	}
	if err := reg.CheckEnabled(enabledTaskTypes(cfg)); err != nil {
		zapLog.Fatal("refusing to start", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zeebeClient, err := camunda.Connect(ctx, cfg.Camunda.BrokerAddress, camunda.DefaultRetryConfig)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("zeebe client connected")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()
	if err := camunda.Retry(ctx, camunda.DefaultRetryConfig, "postgres ping", pg.Ping); err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	pgStore := store.NewPostgresStore(pg.DB)
	if err := pgStore.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("postgres connected")

	rc, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer rc.Close()
	if err := camunda.Retry(ctx, camunda.DefaultRetryConfig, "redis ping", rc.Ping); err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	cache := store.NewCache(rc)
	zapLog.Info("redis connected")

	catalog, err := buildCatalog(ctx, cfg, pgStore, cache, log)
	if err != nil {
		zapLog.Fatal("product catalog init failed", zap.Error(err))
	}

	backend, err := judge.NewBackend(ctx, cfg.Judge)
	if err != nil {
		zapLog.Fatal("judge backend init failed", zap.Error(err))
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	evaluator := intelligence.NewEvaluator(intelligence.ParamsFromConfig(cfg.Intelligence))
	ag := agent.New(agent.ParamsFromConfig(cfg.Agent), catalog)

	d := &deps{
		cfg:        cfg,
		log:        log,
		leads:      store.NewCachedStore(pgStore, cache, log),
		cache:      cache,
		pipeline:   judge.NewPipeline(evaluator, ag, backend, config.GetDuration(cfg.Judge.Timeout), log),
		dispatcher: transport.NewDispatcher(transport.FromConfig(cfg.Integrations.WhatsApp, log), log),
		market: marketplace.NewClient(
			cfg.Integrations.Marketplace.BaseURL,
			cfg.Integrations.Marketplace.CRMKey,
			commonhttp.NewClient(config.GetDuration(cfg.Integrations.Marketplace.Timeout), 0, 1),
		),
	}
	if config.IsWorkerEnabled(cfg, "alert-boss") {
		d.aws, err = awsclients.NewClients(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws clients init failed", zap.Error(err))
		}
	}

	started := startWorkers(zeebeClient, reg, d, zapLog)
	zapLog.Info("workers registered", zap.Int("count", started))

	srv := healthServer(cfg.App.HTTPAddr, zeebeClient, pg, rc)
	go func() {
		zapLog.Info("health/metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("health/metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutdown signal received, stopping workers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error stopping health server", zap.Error(err))
	}
	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("error closing zeebe client", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error flushing telemetry", zap.Error(err))
	}
	zapLog.Info("worker manager stopped")
}

// buildCatalog searches Elasticsearch when it is configured and falls back
// to the products table otherwise. Either way lookups are cached in Redis.
func buildCatalog(ctx context.Context, cfg *config.Config, pgStore *store.PostgresStore, cache *store.Cache, log logger.Logger) (agent.Catalog, error) {
	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		products, err := pgStore.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		log.Info("product catalog loaded from postgres", map[string]interface{}{"products": len(products)})
		return store.NewCachedCatalog(agent.NewKeywordCatalog(products), cache, log), nil
	}

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if err := camunda.Retry(ctx, camunda.DefaultRetryConfig, "elasticsearch ping", es.Ping); err != nil {
		return nil, err
	}
	if err := es.EnsureProductIndex(ctx); err != nil {
		return nil, err
	}
	log.Info("product catalog served from elasticsearch", map[string]interface{}{"index": es.ProductIndex})
	return store.NewCachedCatalog(store.NewProductSearch(es), cache, log), nil
}

func healthServer(addr string, zeebeClient zbc.Client, pg *database.PostgresClient, rc *database.RedisClient) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"status": "ready"}
		code := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    func(ctx context.Context) error { return camunda.HealthCheck(ctx, zeebeClient) },
			"postgres": pg.Ping,
			"redis":    rc.Ping,
		} {
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				checks["status"] = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, code, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	body["time"] = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
