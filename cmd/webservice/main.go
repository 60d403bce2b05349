package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/alimikegami/digital-store/settlement-service/internal/app"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/database/migrations"
	"github.com/rs/zerolog/log"
)

func main() {
	app.InitLogger()

	conf := config.CreateNewConfig()
	if err := conf.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := app.OpenDatabase(conf)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	a := app.App{
		DB:     db,
		Config: conf,
	}
	if err := a.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up service")
	}
	if err := a.StartJobs(); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule jobs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := a.StopServer(); err != nil {
			log.Error().Err(err).Msg("Failed to stop server")
		}
	}()

	if err := a.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
