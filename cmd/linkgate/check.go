package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linkgate/linkgate/internal/config"
	"github.com/linkgate/linkgate/pkg/policy"
)

// errDenied makes `linkgate check` exit non-zero on a deny without printing
// a second error line.
var errDenied = errors.New("denied")

func checkCmd() *cobra.Command {
	var (
		configPath string
		hosts      []string
		explain    bool
	)

	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Classify a destination against the allow-list",
		Long: `Classify a single destination URL against the configured allow-list.

Prints ALLOW or DENY and exits 0 or 1 accordingly. With --explain, the
internal deny reason (missing, parse, host) is printed as well; the running
gateway never reveals this to callers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configPath)
			if err != nil {
				return err
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

			validator := policy.NewValidator(policy.NewAllowlist(allowed), cfg.Enforced())
			decision := validator.Classify(args[0])

			if decision.Allowed() {
				fmt.Println("ALLOW")
				return nil
			}
			if explain {
				fmt.Printf("DENY (%s)\n", decision.Reason)
			} else {
				fmt.Println("DENY")
			}
			return errDenied
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to configuration file")
	cmd.Flags().StringSliceVar(&hosts, "allow", nil, "Additional allowed hostname (repeatable)")
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the internal deny reason")

	return cmd
}
