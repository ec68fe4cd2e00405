package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/loom/internal/config"
	"github.com/vango-dev/loom/internal/demo"
	"github.com/vango-dev/loom/pkg/metrics"
	"github.com/vango-dev/loom/pkg/server"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		appName string
		port    int
		host    string
		dev     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a demo application",
		Long: `Serve a demo application over HTTP and WebSocket.

The first request gets a server-rendered page. The thin client then
opens a WebSocket, and every interaction is rendered on the server and
sent back as patches.

Examples:
  loom serve
  loom serve --app=todo --port=8080
  loom serve --config=loom.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			app, err := demo.Lookup(appName)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := newServer(cfg, app, appName, dev, g)
			out := cmd.OutOrStdout()
			out.Write([]byte(banner))
			success(out, "Serving %s at %s", appName, cfg.URL())
			if cfg.MetricsEnabled() {
				info(out, "Metrics at %s%s", cfg.URL(), cfg.Metrics.Path)
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&appName, "app", "a", "counter", "Demo application to serve")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Disable client script caching")

	return cmd
}

// newServer wires the server from the loaded configuration.
func newServer(cfg *config.Config, app demo.App, title string, dev bool, g *globalFlags) *server.Server {
	logger := g.logger(os.Stderr)

	sc := server.DefaultConfig()
	sc.Address = cfg.Address()
	sc.Title = title
	sc.ReadTimeout = cfg.ReadTimeout()
	sc.WriteTimeout = cfg.WriteTimeout()
	sc.MaxSessions = cfg.Server.MaxSessions
	sc.MinRemaining = cfg.MinRemaining()
	sc.FrameInterval = cfg.FrameInterval()
	sc.FrameBudget = cfg.FrameBudget()
	sc.MetricsPath = cfg.Metrics.Path
	sc.DevMode = dev

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithTracer(otel.Tracer(cfg.Tracing.TracerName)),
	}
	if cfg.MetricsEnabled() {
		opts = append(opts, server.WithMetrics(metrics.New(metrics.WithNamespace(cfg.Metrics.Namespace))))
	}
	return server.New(server.App(app), sc, opts...)
}
