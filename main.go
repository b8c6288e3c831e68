// Command mask2coco converts a directory of color-coded segmentation masks
// into a COCO instance-segmentation annotation file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mask2coco/internal/cache"
	"mask2coco/internal/coco"
	"mask2coco/internal/config"
	"mask2coco/internal/contour"
	"mask2coco/internal/logger"
	"mask2coco/internal/maskio"
	"mask2coco/internal/metrics"
	"mask2coco/internal/pipeline"
	"mask2coco/internal/report"
	"mask2coco/internal/store"
	"mask2coco/internal/version"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	input := flag.String("input", "", "Directory of mask images")
	output := flag.String("output", "", "Path of the COCO JSON to write")
	workers := flag.Int("workers", 0, "Number of workers")
	tracer := flag.String("tracer", "", "Contour tracer: native or opencv")
	showReport := flag.Bool("report", false, "Print per-category statistics after converting")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// explicitly set flags win over file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputDir = *input
		case "output":
			cfg.Output = *output
		case "workers":
			cfg.Workers = *workers
		case "tracer":
			cfg.Tracer = *tracer
		}
	})

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *showReport, log); err != nil {
		log.Error("conversion failed", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, showReport bool, log *zap.Logger) error {
	runID := uuid.New()
	log = log.With(zap.String("run_id", runID.String()))
	log.Info("starting conversion",
		zap.String("version", version.Version),
		zap.String("input", cfg.InputDir),
		zap.String("output", cfg.Output))

	pal, err := cfg.BuildPalette()
	if err != nil {
		return err
	}

	tr, err := contour.New(cfg.Tracer)
	if err != nil {
		return err
	}

	names, err := maskio.List(cfg.InputDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Warn("input directory has no files", zap.String("input", cfg.InputDir))
	}
	for _, n := range names {
		// still converted; such files normally fail to decode and keep an empty image entry
		if !maskio.IsSupportedFormat(n) {
			log.Warn("file is not a recognised image format", zap.String("file", n))
		}
	}

	m := metrics.New()
	opts := pipeline.Options{
		Workers: cfg.Workers,
		Tracer:  tr,
		Metrics: m,
		Logger:  log,
	}

	if rc := openCache(ctx, cfg, log); rc != nil {
		defer rc.Close()
		opts.Cache = rc
	}

	start := time.Now()
	batch := pipeline.New(pal, opts).Run(ctx, maskio.Paths(cfg.InputDir, names))

	ds := coco.Assemble(batch.Images, batch.Annotations, pal.Categories(), cfg.ImageSize())
	if err := ds.Write(cfg.Output); err != nil {
		return err
	}
	m.LastRunAnnotations.Set(float64(len(ds.Annotations)))

	log.Info("dataset written",
		zap.String("output", cfg.Output),
		zap.Int("images", len(ds.Images)),
		zap.Int("annotations", len(ds.Annotations)),
		zap.Int("categories", len(ds.Categories)),
		zap.Int("failed", batch.Failed),
		zap.Duration("elapsed", time.Since(start)))

	if showReport {
		report.Summarize(ds).Print(os.Stdout)
	}

	if cfg.Postgres.DSN != "" {
		if err := export(ctx, cfg, runID, tr.Name(), ds, log); err != nil {
			return err
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("failed to write metrics", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	return nil
}

// openCache returns nil when no cache is configured or the server cannot be
// reached; the run then traces every mask.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) *cache.Redis {
	rc := cache.NewRedis(cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	}, log)
	if rc == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.Warn("region cache unavailable, continuing without it",
			zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rc.Close()
		return nil
	}
	log.Info("region cache enabled", zap.String("addr", cfg.Redis.Addr))
	return rc
}

func export(ctx context.Context, cfg *config.Config, runID uuid.UUID, tracer string, ds *coco.Dataset, log *zap.Logger) error {
	db, err := store.Open(cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := store.EnsureSchema(ctx, db); err != nil {
		return err
	}
	return store.Export(ctx, db, store.Run{
		ID:        runID,
		Source:    cfg.InputDir,
		Tracer:    tracer,
		CreatedAt: time.Now().UTC(),
	}, ds, log)
}
