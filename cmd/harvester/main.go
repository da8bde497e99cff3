package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-index-harvester/internal/app"
	"github.com/samvad-hq/samvad-index-harvester/internal/config"
	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
)

// Exit codes: 1 for configuration problems, 2 when the runtime fails.
const (
	exitConfig  = 1
	exitRuntime = 2
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "index harvester: load config: %v\n", err)
		os.Exit(exitConfig)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "index harvester: init logger: %v\n", err)
		os.Exit(exitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := harvest(ctx, cfg, log)
	stop()
	_ = logger.Close()
	os.Exit(code)
}

func harvest(ctx context.Context, cfg *config.Config, log logger.Logger) int {
	log.InfoObj("index harvester starting", "config", map[string]any{
		"app_name":        cfg.AppName,
		"app_env":         cfg.Env,
		"sites_file":      cfg.SitesFile,
		"publishers_file": cfg.PublishersFile,
	})

	harvester, err := app.NewHarvester(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("index harvester setup failed", "error", err)
		return exitConfig
	}
	log.InfoObj("index harvester ready", "harvester_summary", harvester.Summary())

	if err := harvester.Run(ctx); err != nil {
		log.ErrorObj("index harvester stopped with error", "error", err)
		return exitRuntime
	}
	log.InfoObj("index harvester stopped", "reason", "signal")
	return 0
}
