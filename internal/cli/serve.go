package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/urnet/gameserver/internal/factory"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			slog.SetDefault(logger)

			app := factory.New(factory.Config{
				Addr:   addr,
				Logger: logger,
			})

			// Handle graceful shutdown
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh
				logger.Info("shutdown signal received")
				cancel()
			}()

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				if err := app.Shutdown(context.Background()); err != nil {
					return err
				}
			}

			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr(), "Listen address (env: URSERVER_ADDR)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	return cmd
}

func defaultAddr() string {
	if addr := os.Getenv("URSERVER_ADDR"); addr != "" {
		return addr
	}
	return ":9113"
}

// newLogger sets up JSON logging at the requested level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}
