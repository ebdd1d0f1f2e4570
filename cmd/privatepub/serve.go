package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/privatepub/privatepub"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP authorization hook",
		Long: `Start an HTTP server checking the Bayeux messages received by a Faye server.

The Faye server extension posts every incoming message to /incoming and forwards
the returned message: an "error" field is set when the message must be refused.
The configuration is reloaded when the configuration file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v, cmd.Flags())
		},
	}

	fs := cmd.Flags()
	fs.StringP("addr", "a", "", "the address to listen on")
	fs.StringSlice("cors-allowed-origins", []string{}, "list of allowed CORS origins")
	fs.StringSlice("allowed-hosts", []string{}, "list of hosts allowed to reach the hook")
	fs.Duration("read-timeout", 0, "maximum duration for reading the entire request, 5s by default")
	fs.Duration("write-timeout", 0, "maximum duration before timing out writes of the response, 10s by default")
	fs.Bool("metrics-enabled", false, "expose Prometheus metrics on /metrics")

	bindFlags(fs, v)

	return cmd
}

func serve(ctx context.Context, v *viper.Viper, fs *pflag.FlagSet) error {
	logger, err := newLogger(v)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := currentConfig(v, fs)
	if err != nil {
		return err
	}

	store := privatepub.NewConfigStore()
	store.Set(c)

	options := []privatepub.Option{privatepub.WithLogger(logger)}
	if v.GetBool("debug") {
		options = append(options, privatepub.WithDebug())
	}
	if v.GetBool("metrics_enabled") {
		options = append(options, privatepub.WithMetrics(privatepub.NewPrometheusMetrics(nil)))
	}
	if o := v.GetStringSlice("cors_allowed_origins"); len(o) > 0 {
		options = append(options, privatepub.WithCORSOrigins(o))
	}
	if h := v.GetStringSlice("allowed_hosts"); len(h) > 0 {
		options = append(options, privatepub.WithAllowedHosts(h))
	}

	h, err := privatepub.NewHandler(store, options...)
	if err != nil {
		return err
	}

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			c, err := currentConfig(v, fs)
			if err != nil {
				logger.Error("Invalid configuration, keeping the previous one", zap.String("file", e.Name), zap.Error(err))

				return
			}

			store.Set(c)
			logger.Info("Configuration reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	server := &http.Server{
		Addr:         v.GetString("addr"),
		Handler:      h,
		ReadTimeout:  v.GetDuration("read_timeout"),
		WriteTimeout: v.GetDuration("write_timeout"),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Unable to shut down the server", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	logger.Info("privatepub hook started", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-idleConnsClosed
	logger.Info("privatepub hook stopped")

	return nil
}
