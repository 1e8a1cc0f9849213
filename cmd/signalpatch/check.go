package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-signalpatch/pkg/health"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that a run's inputs and tools are usable",
		Long: `Check takes the same options as run and verifies, without writing any
artifact, that the network loads, the output directory is writable, the
compiler is on PATH and the tuning file and proposal decode.`,
		Args: cobra.NoArgs,
	}
	rf := addRunFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := rf.resolve(cmd.Flags())
		if err != nil {
			return err
		}

		hc := health.NewHealthChecker()
		hc.RegisterCheck("network", health.NetworkCheck(cfg.Network))
		hc.RegisterCheck("output", health.OutputDirCheck(cfg.OutDir))
		hc.RegisterCheck("tuning", health.TuningCheck(cfg.Tuning))
		hc.RegisterCheck("proposal", health.ProposalCheck(cfg.Proposal))
		if !cfg.SkipRebuild {
			hc.RegisterCheck("compiler", health.CompilerCheck(cfg.Netconvert))
		}

		resp := hc.Check()
		fmt.Fprintln(cmd.OutOrStdout(), renderHealth(resp))
		if !resp.Healthy() {
			return errors.New("preflight failed")
		}
		return nil
	}
	return cmd
}

func renderHealth(resp health.Response) string {
	lines := make([]string, 0, len(resp.Checks))
	for _, c := range resp.Checks {
		lines = append(lines, row(c.Name, healthText(c.Status)+"  "+c.Message))
	}
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n" + row("overall", healthText(resp.Status))
}

func healthText(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return okStyle.Render(string(s))
	case health.StatusDegraded:
		return warnStyle.Render(string(s))
	default:
		return failStyle.Render(string(s))
	}
}
