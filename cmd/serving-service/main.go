package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/strokecare/platform/pkg/common/config"
	"github.com/strokecare/platform/pkg/common/database"
	"github.com/strokecare/platform/pkg/common/kafka"
	"github.com/strokecare/platform/pkg/common/logger"
	"github.com/strokecare/platform/pkg/gateway/middleware"
	"github.com/strokecare/platform/pkg/observability/metrics"
	"github.com/strokecare/platform/pkg/risk"
	"github.com/strokecare/platform/pkg/serving"
	"github.com/strokecare/platform/pkg/serving/predictor"
	"github.com/strokecare/platform/pkg/storage"
)

func main() {
	logger.Init("serving-service")
	cfg := config.Load()

	policy, err := risk.ResolvePolicy(cfg.RiskPolicyPath, cfg.RiskLowCutoff, cfg.RiskHighCutoff)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid risk policy")
	}
	scorer := risk.NewScorer(predictor.NewPredictor(cfg.ModelArtifactDir), policy, cfg.ModelName)
	if err := scorer.Ready(); err != nil {
		// Requests answer 503 until an artifact appears.
		logger.Log.WithError(err).Warn("Risk model not loaded")
	}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	repo := serving.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate prediction tables")
	}

	featureStore := storage.NewFeatureStore(database.GetRedis(cfg), cfg.FeatureCachePrefix, cfg.FeatureCacheTTL)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.RiskEventsTopic)
	service := serving.NewService(scorer, repo, featureStore, producer)

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	serving.NewHTTPHandler(service, cfg.MaxRequestBody).Register(router)

	var handler http.Handler = router
	handler = middleware.BodyLimit(cfg.MaxRequestBody)(handler)
	handler = middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.PatientEventsTopic, cfg.KafkaGroupID)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Consume(ctx, service.HandlePatientEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.WithError(err).Error("Patient event consumer stopped")
		}
	}()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  cfg.ServerPort,
			"model": cfg.ModelName,
			"low":   policy.LowCutoff,
			"high":  policy.HighCutoff,
		}).Info("Serving Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Serving Service...")

	cancel()
	<-consumerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := consumer.Close(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close consumer")
	}
	if err := producer.Close(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close producer")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close Redis")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close database")
	}

	logger.Log.Info("Serving Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
