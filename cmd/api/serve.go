package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/setting"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if cfg.InsecureSecret() {
		a.sugar.Warnw("auth.token_secret not set, signing tokens with the development secret")
	}

	tokens := session.NewTokenIssuer(cfg.TokenSecret(), cfg.Auth.TokenTTL)
	mgr := session.NewManager(a.users, a.store, tokens, session.Config{
		DefaultTarget:  cfg.Scoring.DefaultTarget,
		HistoryPeriods: cfg.Scoring.HistoryPeriods,
		HistorySeed:    cfg.Scoring.HistorySeed,
	}, a.sugar)

	handler := router.RegisterRoutes(router.Deps{
		Logger:   a.sugar,
		BasePath: cfg.Server.BasePath,
		Sessions: mgr,
		Session:  session.NewHandler(mgr, a.store, a.sugar),
		Profiles: profile.NewHandler(a.store, a.sugar),
		Settings: setting.NewHandler(setting.NewService(a.catalog.IDs(), cfg.Scoring.DefaultTarget), a.sugar),
		Users:    user.NewHandler(a.users, a.sugar),
	})
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		a.sugar.Infow("http server listening", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.sugar.Info("shutting down")
	doneCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.db != nil {
		if err := a.db.PingContext(doneCtx); err != nil {
			a.sugar.Warnf("db ping on shutdown failed: %v", err)
		}
	}
	if err := srv.Shutdown(doneCtx); err != nil {
		a.sugar.Warnf("http server shutdown failed: %v", err)
	}
	a.sugar.Info("goodbye")
	return nil
}
