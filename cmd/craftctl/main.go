package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/cli"
	"github.com/LabMasd/craftorcrap-sub000/internal/config"
	"github.com/LabMasd/craftorcrap-sub000/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	middleware.InitLogger(cfg.LogLevel, "craftctl")
	// stdout carries command output.
	log.Logger = middleware.Logger.Output(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand(cli.PostgresOpener(cfg)).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
