package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkgate/linkgate/internal/config"
	"github.com/linkgate/linkgate/pkg/middleware"
	"github.com/linkgate/linkgate/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		address    string
		hosts      []string
		noEnforce  bool
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the redirect gateway",
		Long: `Run the redirect gateway until interrupted.

Configuration is read from linkgate.json (or --config), overridden by
LINKGATE_* environment variables, overridden by flags. The allow-list may
combine inline hosts, a local file, and an S3 object; it is resolved once at
startup and never changes while the process runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configPath)
			if err != nil {
				return err
			}

			setupLogging(debug || cfg.Debug)

			if address != "" {
				cfg.Address = address
			}
			if len(hosts) > 0 {
				cfg.AllowedHosts = append(cfg.AllowedHosts, hosts...)
			}

			var getter config.ObjectGetter
			if cfg.AllowlistS3 != "" {
				getter = config.NewS3Client(cfg.S3Region)
			}
			allowed, err := cfg.ResolveAllowlist(cmd.Context(), getter)
			if err != nil {
				return err
			}

			enforce := cfg.Enforced() && !noEnforce

			srv := server.New(server.DefaultConfig().
				WithAddress(cfg.Address).
				WithAllowedHosts(allowed).
				WithEnforcement(enforce).
				WithRedirectStatus(cfg.RedirectStatus).
				WithTrustedProxies(cfg.TrustedProxies).
				WithDebug(debug || cfg.Debug))

			srv.Use(middleware.Prometheus())
			srv.Use(middleware.OpenTelemetry(
				middleware.WithFilter(func(r *http.Request) bool {
					return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
				}),
			))

			return srv.Run()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to configuration file")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides config)")
	cmd.Flags().StringSliceVar(&hosts, "allow", nil, "Additional allowed hostname (repeatable)")
	cmd.Flags().BoolVar(&noEnforce, "no-enforce", false, "Disable the allowlist check (DANGEROUS, demo only)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

// setupLogging installs the process-wide slog default.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
