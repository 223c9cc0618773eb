package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/strokecare/platform/pkg/common/config"
	"github.com/strokecare/platform/pkg/common/database"
	"github.com/strokecare/platform/pkg/common/logger"
	"github.com/strokecare/platform/pkg/patients"
	"github.com/strokecare/platform/pkg/risk"
	"github.com/strokecare/platform/pkg/serving/predictor"
)

// recompute-service rescores every active patient once and exits.
func main() {
	logger.Init("recompute-service")
	cfg := config.Load()

	policy, err := risk.ResolvePolicy(cfg.RiskPolicyPath, cfg.RiskLowCutoff, cfg.RiskHighCutoff)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid risk policy")
	}
	scorer := risk.NewScorer(predictor.NewPredictor(cfg.ModelArtifactDir), policy, cfg.ModelName)

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	repo := patients.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate patient tables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	summary, err := patients.NewRecomputer(repo, scorer, cfg.RecomputeBatchSize, cfg.RecomputeWorkers).Run(ctx)
	stop()

	entry := logger.Log.WithFields(map[string]interface{}{
		"scanned":     summary.Scanned,
		"updated":     summary.Updated,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
		"duration_ms": summary.Duration.Milliseconds(),
		"model":       cfg.ModelName,
	})
	if closeErr := database.ClosePostgres(); closeErr != nil {
		logger.Log.WithError(closeErr).Warn("Failed to close database")
	}
	if err != nil {
		entry.WithError(err).Error("Risk recompute failed")
		os.Exit(1)
	}
	entry.Info("Risk recompute finished")
}
