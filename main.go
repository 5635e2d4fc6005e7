// Command rackdiff serves the rack change-detection API: image
// comparison, change classification, and inventory reconciliation.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"rackdiff/internal/config"
	"rackdiff/internal/detect"
	"rackdiff/internal/inventory"
	"rackdiff/internal/logging"
	"rackdiff/internal/ocr"
	"rackdiff/internal/report"
	"rackdiff/internal/server"
	"rackdiff/internal/session"
	"rackdiff/internal/version"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	flag.Parse()

	// .env is optional; environment wins over file config for the
	// deployment-specific settings below.
	_ = godotenv.Load()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	if addr := os.Getenv("RACKDIFF_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dbPath := os.Getenv("RACKDIFF_DB"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if err := logging.Setup(cfg.LogFile); err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logging.Close()

	store, err := inventory.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("inventory: %v", err)
	}
	defer store.Close()

	if err := inventory.Seed(context.Background(), store); err != nil {
		log.Fatalf("inventory seed: %v", err)
	}

	sessions, err := session.NewStore(cfg.Server.ResultsDir)
	if err != nil {
		log.Fatalf("results: %v", err)
	}
	reports, err := report.NewStore(cfg.Server.ResultsDir)
	if err != nil {
		log.Fatalf("reports: %v", err)
	}

	detector := detect.New(detect.Options{
		MinContourArea: cfg.Detection.MinContourArea,
		MaxDimension:   cfg.Detection.MaxDimension,
		TotalRackUnits: cfg.Detection.TotalRackUnits,
		IntensityRatio: cfg.Detection.IntensityRatio,
	})

	if cfg.Detection.OCREnabled {
		engine, err := ocr.NewEngine()
		if err != nil {
			logging.Error("ocr unavailable, continuing without text extraction: %v", err)
		} else {
			defer engine.Close()
			detector.SetAnnotator(engine)
		}
	}

	srv := server.New(cfg.Detection, detector, store, sessions, reports)

	logging.Info("rackdiff %s listening on %s", version.Version, cfg.Server.Addr)
	log.Printf("rackdiff %s listening on %s", version.Version, cfg.Server.Addr)
	if err := srv.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
