package main

import (
	"context"
	"flag"
	"os"

	"github.com/hayago/tracking-service/config"
	"github.com/hayago/tracking-service/internal/app"
	"github.com/hayago/tracking-service/pkg/logger"
	"github.com/joho/godotenv"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	// Local development overrides; missing file is fine.
	_ = godotenv.Load()

	ctx := context.Background()
	log := logger.InitLogger("tracking", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	config.PrintConfig(cfg)

	if !logger.ValidateLogLevel(cfg.Log.Level) {
		log.Warn(ctx, "unknown log level, falling back to DEBUG", "level", cfg.Log.Level)
		cfg.Log.Level = logger.LevelDebug
	}
	log = logger.InitLogger("tracking", cfg.Log.Level)

	app, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err = app.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
