package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-signalpatch/pkg/pipeline"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full patch pipeline",
		Long: `Run merges a proposal into a network, links connections to signals,
regenerates signal programs and rebuilds the network with netconvert.

Every stage writes its own artifact into --out-dir:

  <prefix>_merged.net.xml, <prefix>_linked.net.xml, <prefix>_ensured.net.xml,
  <prefix>_rebuilt.net.xml, <prefix>_metrics.prom, <prefix>_report.json

Examples:
  signalpatch run --network city.net.xml --proposal 'outputs/**/llm_*.txt'
  signalpatch run --config run.yaml --skip-rebuild`,
		Args: cobra.NoArgs,
	}
	rf := addRunFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := rf.resolve(cmd.Flags())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := g.logger()
		opts, err := cfg.options(ctx, logger)
		if err != nil {
			return err
		}

		report, err := pipeline.Run(ctx, opts)
		if report != nil {
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
		}
		return err
	}
	return cmd
}
