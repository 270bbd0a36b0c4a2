package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notely/internal/api"
	"notely/internal/auth"
	"notely/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.UsesDevSecret() {
			a.log.Warn().Msg("using the built-in development auth secret; set AUTH_SECRET in production")
		}

		issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL, auth.NewRevocations())
		deps := api.Deps{
			Users:        a.users,
			Notes:        a.notes,
			Analytics:    a.analytics,
			Issuer:       issuer,
			Resolver:     auth.NewResolver(issuer, a.users),
			CookieSecure: cfg.Auth.CookieSecure,
		}

		if cfg.Assistant.APIKey != "" {
			analyzer, err := api.NewGeminiAnalyzer(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model, a.log)
			if err != nil {
				return err
			}
			deps.Analyzer = analyzer
			a.log.Info().Str("model", cfg.Assistant.Model).Msg("note assistant enabled")
		}
		if cfg.MCP.Enabled {
			deps.MCP = mcp.NewMCPServer(a.notes, a.users, a.analytics).Handler()
			a.log.Info().Msg("mcp endpoint enabled at /mcp")
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.NewServer(deps, a.log).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info().Str("addr", srv.Addr).Msg("server started")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		a.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
