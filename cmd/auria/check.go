package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/auria-labs/auria-agent/internal/agent"
	"github.com/auria-labs/auria-agent/internal/telemetry"
)

const probeTimeout = 5 * time.Second

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe every configured node's health endpoint",
		Long:  "Probe every configured node's health endpoint. Unhealthy nodes are reported but do not fail the command.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := telemetry.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := agent.New(cfg,
				agent.WithHTTPClient(&http.Client{Timeout: probeTimeout}),
				agent.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*probeTimeout)
			defer cancel()

			statuses, err := a.CheckNodes(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range statuses {
				if s.Healthy {
					fmt.Fprintf(out, "ok    %s\n", s.URL)
					continue
				}
				fmt.Fprintf(out, "fail  %s  %s\n", s.URL, s.Error)
			}
			return nil
		},
	}
}
