/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ssandy33/ado-pulse/internal/config"
	httpapi "github.com/ssandy33/ado-pulse/internal/http"
	"github.com/ssandy33/ado-pulse/internal/jobs"
	"github.com/ssandy33/ado-pulse/internal/logger"
	"github.com/ssandy33/ado-pulse/internal/repo"
	"github.com/ssandy33/ado-pulse/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	repository := repo.NewRepository(db, log)

	// Services
	svc := services.Wire(cfg, log, repository)

	// Cron
	cron, err := jobs.NewCron(cfg, log, svc, repository)
	if err != nil {
		log.Fatal().Err(err).Msg("cron setup failed")
	}
	cron.Start()

	// HTTP server (Gin)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(cfg, log, svc, cron.Trigger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Strs("teams", cfg.ADOTeams).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	// graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cron.Stop(shutdownCtx)
}
