package main

import (
	"flag"
	"log"
	"os"

	"github.com/sourav-625/market-regime-radar/internal/di"
	"github.com/sourav-625/market-regime-radar/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s provider=%s estimator=%s", cfg.Environment, cfg.MarketData.Provider, cfg.Analysis.Estimator)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.ClickHouse.Enabled {
		log.Printf("clickhouse: schema ready db=%s", cfg.ClickHouse.Database)
	}
	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v reports=%s requests=%s", cfg.Kafka.Brokers, cfg.Kafka.ReportTopic, cfg.Kafka.RequestTopic)
	}

	// blocks until SIGINT or SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
