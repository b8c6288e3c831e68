// Command cocoview serves a COCO file produced by mask2coco with its
// polygons drawn over the source masks.
package main

import (
	"flag"
	"fmt"
	"os"

	"mask2coco/internal/coco"
	"mask2coco/internal/config"
	"mask2coco/internal/logger"
	"mask2coco/internal/preview"
	"mask2coco/internal/render"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config (optional), used for the palette colors")
	datasetPath := flag.String("dataset", "", "COCO JSON to serve (defaults to the configured output)")
	masksDir := flag.String("masks", "", "Directory of the source masks (defaults to the configured input)")
	addr := flag.String("addr", ":8093", "Listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *datasetPath == "" {
		*datasetPath = cfg.Output
	}
	if *masksDir == "" {
		*masksDir = cfg.InputDir
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	ds, err := coco.Load(*datasetPath)
	if err != nil {
		log.Fatal("failed to load dataset", zap.String("path", *datasetPath), zap.Error(err))
	}

	pal, err := cfg.BuildPalette()
	if err != nil {
		log.Fatal("invalid palette", zap.Error(err))
	}

	srv := preview.NewServer(ds, *masksDir, render.CategoryColors(pal), log)
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
