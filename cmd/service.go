package cmd

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/mkfa/plannr-relay/internal/config"
	"github.com/mkfa/plannr-relay/internal/runtime"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func cmdService() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service",
		Aliases: []string{"s", "serve", "standalone", "server"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logger.With("mode", config.ModeService)
			logger.Info("Spawning...")

			rt, err := setup(cmd.Context(), logger, nil,
				runtime.WithPathPrefix(config.Service.Path),
				runtime.WithCORSOrigins(config.Service.CORSOrigins))
			if err != nil {
				return errors.Wrap(err, "failed to setup service")
			}

			logger.Debug("Creating HTTP server...")
			s := &http.Server{
				Handler:      rt.HTTPHandler(),
				Addr:         net.JoinHostPort(config.Service.Addr, config.Service.Port),
				WriteTimeout: config.Service.Timeout,
				ReadTimeout:  config.Service.Timeout,
				IdleTimeout:  config.Service.Timeout,
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			go func() {
				<-ctx.Done()
				logger.Info("Shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = s.Shutdown(shutdownCtx)
			}()

			logger.Info("Serving...", "address", s.Addr, "path", config.Service.Path, "timeout", config.Service.Timeout.String())
			if err = s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	bindEnvMap(cmd, svcEnvMapString)
	bindEnvMap(cmd, svcEnvMapDuration)
	bindEnvMap(cmd, svcEnvMapStringSlice)

	return cmd
}
