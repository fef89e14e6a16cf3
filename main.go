package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"medadherence/internal/adherence"
	"medadherence/internal/config"
	"medadherence/internal/db"
	"medadherence/internal/features"
	"medadherence/internal/http/handlers"
	appmw "medadherence/internal/http/middleware"
	"medadherence/internal/logging"
	"medadherence/internal/risk"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asm := adherence.Assembler{
		TopUsers:    cfg.TopUsers,
		TrendWindow: cfg.TrendWindow,
		TrendMode:   adherence.ParseWindowMode(cfg.TrendMode),
	}

	scorer := loadScorer(cfg)

	handlers.InitPrometheusMetrics()

	var store *db.Store
	if cfg.HasDatabase() {
		gdb, err := db.Connect(cfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect database")
		}
		store = db.NewStore(gdb, cfg.RetentionDays)
		db.StartRetentionWorker(ctx, gdb, cfg.RetentionDays)
		db.StartSnapshotWorker(ctx, store, asm, cfg.SnapshotInterval, handlers.ObserveSnapshots)
	} else {
		logging.Warn().Msg("APP_DATABASE_URL not set; dose logging and stored reports are disabled")
	}

	r := router.New()

	// Global middleware chain: request id, request logger, CORS, then router
	handler := appmw.RequestID(handlers.RequestLogger(appmw.CORS(cfg.CORSOrigin)(r.Handler)))

	r.GET("/healthz", handlers.Healthz)
	r.GET("/health", handlers.Health(scorer))
	r.GET("/metrics", handlers.MetricsHandler(nil))

	r.POST("/v1/report", handlers.Report(asm))
	r.GET("/v1/report", handlers.StoredReport(store, asm))
	r.GET("/v1/report/latest", handlers.LatestReport(store))
	r.POST("/v1/analyze", handlers.Analyze())
	r.POST("/v1/dashboard", handlers.Dashboard(asm))

	r.POST("/v1/predict", handlers.Predict(scorer))
	r.POST("/v1/suggest-times", handlers.SuggestTimes(scorer))

	r.POST("/v1/logs", handlers.IngestLogs(store))
	r.GET("/v1/stats", handlers.Stats(store))
	r.GET("/v1/patterns", handlers.Patterns(store))

	server := &fasthttp.Server{
		Handler: handler,
		Name:    "medadherence",
	}

	go func() {
		<-ctx.Done()
		logging.Info().Msg("shutting down")
		if err := server.Shutdown(); err != nil {
			logging.Error().Err(err).Msg("shutdown error")
		}
	}()

	logging.Info().Str("addr", cfg.ListenAddr).Msg("medadherence listening")
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
}

// loadScorer binds the configured model, or the bundled one when no path is set. A
// model that fails to load leaves the prediction routes answering "Model not loaded".
func loadScorer(cfg *config.Config) *risk.Scorer {
	var model risk.Classifier = risk.DefaultModel()
	if cfg.ModelPath != "" {
		m, err := risk.LoadModel(cfg.ModelPath)
		if err != nil {
			logging.Error().Err(err).Str("path", cfg.ModelPath).Msg("failed to load model")
			return nil
		}
		model = m
	}

	deriver := features.NewDeriver(features.ParsePolicy(cfg.ValidationPolicy))
	scorer, err := risk.NewScorer(model, deriver)
	if err != nil {
		logging.Error().Err(err).Msg("model rejected")
		return nil
	}
	logging.Info().Strs("columns", model.Columns()).Str("validation_policy", string(deriver.Policy)).Msg("model loaded")
	return scorer
}
