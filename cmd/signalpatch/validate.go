package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-signalpatch/pkg/link"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
	"github.com/dd0wney/cluso-signalpatch/pkg/synth"
	"github.com/dd0wney/cluso-signalpatch/pkg/tuning"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	var (
		ensure     bool
		tuningPath string
	)
	cmd := &cobra.Command{
		Use:   "validate <net.xml>",
		Short: "Link a network in memory and report signal program violations",
		Long: `Validate links connections to signals without writing anything and
reports every program whose shape does not match its movements. With
--ensure the programs are regenerated first, showing what run would
produce.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger()
			n, err := network.LoadFile(args[0])
			if err != nil {
				return err
			}

			a, rep := link.Link(n, logger)
			fmt.Fprintf(cmd.OutOrStdout(), "%d signals, %d linked connections, %d unmatched\n",
				rep.Signals, rep.Linked, rep.Unmatched)

			if ensure {
				sr := synth.New(tuning.Load(tuningPath, logger), logger).Ensure(n, a)
				fmt.Fprintf(cmd.OutOrStdout(), "%d programs regenerated\n", len(sr.Regenerated))
			}

			vs := synth.Validate(n, a)
			fmt.Fprintln(cmd.OutOrStdout(), renderViolations(vs))
			return vs.Err()
		},
	}
	cmd.Flags().BoolVar(&ensure, "ensure", false, "Regenerate programs before validating")
	cmd.Flags().StringVar(&tuningPath, "tuning", "", "Tuning policy file used with --ensure")
	return cmd
}
