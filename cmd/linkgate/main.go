package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "linkgate",
		Short: "Allow-listed redirect gateway",
		Long: `Linkgate is an HTTP redirect gateway guarded by a hostname allowlist.

It exposes a single redirect endpoint and refuses any destination whose
hostname is not an exact member of the configured allow-list, demonstrating
how to close an open-redirect vulnerability:

  • GET /redirect?url=...  redirect when allowed, generic 400 otherwise
  • GET /healthz           liveness probe
  • GET /metrics           Prometheus metrics
  • GET /audit/ws          live stream of classification events`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		checkCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		// A deny verdict from `check` already printed its result.
		if !errors.Is(err, errDenied) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}
