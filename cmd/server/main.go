package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/urls-node/internal/container"
	"github.com/serroba/urls-node/internal/dbconn"
	"github.com/serroba/urls-node/internal/messaging"
	"github.com/serroba/urls-node/internal/rotation"
	"github.com/serroba/urls-node/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInjector(options *container.Options) (*do.Injector, *zap.Logger, error) {
	if err := options.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid options: %w", err)
	}

	injector := do.New()
	container.Register(injector, options)

	logger, err := do.Invoke[*zap.Logger](injector)
	if err != nil {
		return nil, nil, err
	}

	return injector, logger, nil
}

// withOptions adapts a failing command body to humacli, exiting non-zero on error.
func withOptions(run func(cmd *cobra.Command, options *container.Options) error) func(*cobra.Command, []string) {
	return humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
		if err := run(cmd, options); err != nil {
			cmd.PrintErrln(err)
			os.Exit(1)
		}
	})
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the urls table if it does not exist",
		Run: withOptions(func(cmd *cobra.Command, options *container.Options) error {
			injector, logger, err := newInjector(options)
			if err != nil {
				return err
			}
			defer func() { _ = container.Shutdown(injector) }()

			cache := do.MustInvoke[*dbconn.Cache](injector)

			lease, err := cache.Acquire(cmd.Context())
			if err != nil {
				return err
			}
			defer lease.Release(cmd.Context())

			if err := store.EnsureSchema(cmd.Context(), lease.Conn()); err != nil {
				return err
			}

			logger.Info("schema ready")

			return nil
		}),
	}
}

func notifyRotationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-rotation",
		Short: "Tell running servers that the database secret has rotated",
		Run: withOptions(func(cmd *cobra.Command, options *container.Options) error {
			if options.RedisAddr == "" {
				return errors.New("notify-rotation requires redis-addr")
			}

			injector, logger, err := newInjector(options)
			if err != nil {
				return err
			}
			defer func() { _ = container.Shutdown(injector) }()

			publish := do.MustInvoke[messaging.Publish[rotation.CredentialsRotated]](injector)

			if err := publish(cmd.Context(), &rotation.CredentialsRotated{
				SecretID:  options.SecretID,
				RotatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}

			logger.Info("rotation published", zap.String("secretId", options.SecretID))

			return nil
		}),
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		var (
			injector *do.Injector
			logger   *zap.Logger
			server   *http.Server
			cancel   context.CancelFunc = func() {}
		)

		hooks.OnStart(func() {
			var err error

			injector, logger, err = newInjector(options)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration
			_ = do.MustInvoke[huma.API](injector)

			if options.RotationEvents {
				var ctx context.Context

				ctx, cancel = context.WithCancel(context.Background())

				group := do.MustInvoke[*messaging.ConsumerGroup](injector)
				if err := group.Start(ctx); err != nil {
					logger.Fatal("failed to start rotation consumer", zap.Error(err))
				}
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("basePath", options.BasePath),
				zap.Bool("closeOnReturn", options.CloseOnReturn),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			if injector == nil {
				return
			}

			logger.Info("shutting down")

			ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
			defer stop()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			cancel()

			if err := container.Shutdown(injector); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
		})
	})

	cli.Root().AddCommand(migrateCommand(), notifyRotationCommand())

	cli.Run()
}
