package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"statarb-go/internal/api"
	"statarb-go/internal/config"
	"statarb-go/internal/engine"
	"statarb-go/internal/paper"
	"statarb-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config")
	flag.Parse()

	boot := util.NewLogger("info")
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := config.ApplyEnv(cfg); err != nil {
		boot.Fatal().Err(err).Msg("apply env")
	}
	log := util.NewLogger(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Logger()

	opts := engine.OptionsFromConfig(cfg)
	if cfg.Paper.JournalPath != "" {
		journal, err := paper.NewJSONLRecorder(cfg.Paper.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Paper.JournalPath).Msg("open trade journal")
		}
		defer journal.Close()
		opts.Recorder = journal
	}
	eng, err := engine.New(opts, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := api.New(eng, log).Serve(ctx, cfg.API.Addr); err != nil {
		log.Error().Err(err).Msg("api server stopped")
	}
	log.Info().Msg("shutting down")
}
