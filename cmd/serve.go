package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/riffline/riffline/internal/generator"
	"github.com/riffline/riffline/internal/repositories"
	"github.com/riffline/riffline/internal/server"
	"github.com/riffline/riffline/internal/services"
	"github.com/riffline/riffline/internal/session"
	"github.com/riffline/riffline/internal/shared"
	"github.com/riffline/riffline/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve assembles the application and runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.Server.Addr()
	}

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		r.logger.Warn("missing Spotify credentials; login and token refresh will fail until configured")
	}

	spotify := services.NewSpotifyService(config.Credentials.Spotify)
	recommender := services.NewRecommenderService(config.Recommender.BaseURL, r.httpClient)

	var users repositories.UserStore
	var tracks server.TrackCreator

	if cmd.Bool("memory") {
		r.logger.Info("using in-memory user store")
		users = repositories.NewMemoryUserStore()
	} else {
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		users = repositories.NewUserRepository(db)
		tracks = repositories.NewGeneratedTrackRepository(db)
	}

	facade := session.NewFacade(users, spotify, r.logger)
	engine := tasks.NewStatsEngine(spotify, time.Now().UnixNano())
	gen := generator.New(spotify, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewAuthHandler(spotify, facade, r.logger))
	router.Handler(server.NewAPIHandler(spotify, engine, recommender, r.logger))
	router.Handler(server.NewGenerateHandler(gen, spotify, users, tracks, r.logger))

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting server", "addr", addr)
	return server.Run(runCtx, addr, router, r.logger)
}
