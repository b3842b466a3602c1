package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/studenthealthcard/registration/internal/config"
	"github.com/studenthealthcard/registration/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("load config")
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		cfg.Logger.Fatal().Err(err).Str("store", cfg.StoreDriver).Msg("open store")
	}

	if err := app.Run(); err != nil {
		cfg.Logger.Fatal().Err(err).Msg("server stopped")
	}
}
