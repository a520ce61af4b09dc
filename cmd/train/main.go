package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/okian/mmx/internal/adapters/ingest"
	"github.com/okian/mmx/internal/adapters/repository"
	app "github.com/okian/mmx/internal/app"
	"github.com/okian/mmx/internal/config"
	"github.com/okian/mmx/internal/domain/mmm"
	"github.com/okian/mmx/pkg/logger"
)

// kindAll trains both estimator variants in one run.
const kindAll = "all"

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var (
		dataDir   = flag.String("data", cfg.RawDataDir, "Directory of raw channel spend CSVs plus the sales CSV")
		modelsDir = flag.String("models", filepath.Dir(cfg.ArtifactPath), "Directory that receives trained model artifacts")
		kindFlag  = flag.String("kind", cfg.ModelKind, "Model kind to train: linear, bayesian or all")
		decay     = flag.Float64("decay", cfg.AdstockDecay, "Adstock decay applied to every spend channel")
		draws     = flag.Int("draws", cfg.BayesDraws, "Posterior draws kept per chain (bayesian only)")
		warmup    = flag.Int("warmup", cfg.BayesWarmup, "Warmup iterations discarded per chain (bayesian only)")
		chains    = flag.Int("chains", cfg.BayesChains, "Number of sampling chains (bayesian only)")
		seed      = flag.Uint64("seed", cfg.BayesSeed, "Sampler seed (bayesian only)")
	)
	flag.Parse()

	var kinds []mmm.Kind
	if *kindFlag == kindAll {
		kinds = []mmm.Kind{mmm.KindLinear, mmm.KindBayesian}
	} else {
		kind, err := mmm.ParseKind(*kindFlag)
		if err != nil {
			os.Stderr.WriteString("invalid -kind: " + err.Error() + "\n")
			os.Exit(1)
		}
		kinds = []mmm.Kind{kind}
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithAdstockDecay(*decay),
		app.WithProcessedDataDir(cfg.ProcessedDataDir),
		app.WithSampler(*draws, *warmup, *chains, *seed),
		app.WithIngestOptions(
			ingest.WithSpendPattern(cfg.SpendFilePattern),
			ingest.WithSalesFileName(cfg.SalesFileName),
			ingest.WithMinRows(cfg.MinTrainingRows),
			ingest.WithMinChannels(cfg.MinChannels),
		),
	)

	store := repository.NewFileArtifactStore(*modelsDir)
	for _, kind := range kinds {
		art, err := svc.TrainKind(ctx, kind, *dataDir)
		if err != nil {
			log.Error(ctx, "training failed", logger.String("model_kind", string(kind)), logger.Error(err))
			os.Exit(1)
		}
		path, err := store.Save(ctx, art)
		if err != nil {
			log.Error(ctx, "saving artifact failed", logger.String("model_kind", string(kind)), logger.Error(err))
			os.Exit(1)
		}
		log.Info(ctx, "model trained",
			logger.String("model_kind", string(kind)),
			logger.String("artifact_id", art.ID),
			logger.String("path", path),
		)
	}
}
