package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-signalpatch/pkg/network"
)

func newInspectCmd() *cobra.Command {
	var maxEdges int
	cmd := &cobra.Command{
		Use:   "inspect <net.xml>",
		Short: "Print a JSON summary of a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := network.LoadFile(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(network.Summarize(n, maxEdges))
		},
	}
	cmd.Flags().IntVar(&maxEdges, "max-edges", 0, "Limit the edge list (0 for all)")
	return cmd
}
