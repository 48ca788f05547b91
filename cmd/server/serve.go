package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeff-ai/jeff-api/internal/api"
	"github.com/jeff-ai/jeff-api/internal/auth"
	"github.com/jeff-ai/jeff-api/internal/core"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	gateway, err := core.NewGateway(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize AI gateway: %w", err)
	}
	defer gateway.Close()

	session := auth.NewSessionFlow(auth.SessionConfig{
		IssuerBaseURL: cfg.AuthIssuerBaseURL,
		ClientID:      cfg.AuthClientID,
		ClientSecret:  cfg.AuthClientSecret,
		RedirectURL:   cfg.AuthRedirectURL,
		SiteURL:       cfg.AuthSiteURL,
	})
	authenticator := &auth.Chain{
		Bearer:  auth.NewJWKSVerifier(nil, cfg.AuthIssuerBaseURL),
		Session: session,
	}

	apiHandler := api.NewAPIHandler(db, gateway, authenticator, session, log)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // completion and transcription calls are slow
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", "addr", serverAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")

		// Active connections get shutdownTimeout to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exiting gracefully")
	return nil
}
