// Command signalpatch patches SUMO networks with proposed traffic-signal
// logic and regenerates consistent actuated programs.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
)

// Version is set at build time.
var Version = "dev"

type globalFlags struct {
	logLevel string
	logOut   io.Writer
}

func (g *globalFlags) logger() logging.Logger {
	level := os.Getenv("LOG_LEVEL")
	if g.logLevel != "" {
		level = g.logLevel
	}
	return logging.NewJSONLogger(g.logOut, logging.ParseLevel(level))
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{logOut: os.Stderr}

	root := &cobra.Command{
		Use:           "signalpatch",
		Short:         "Patch road networks with proposed signal logic",
		Long:          `signalpatch merges a generated signal proposal into a SUMO net.xml, links turning movements to their signals, regenerates actuated phase programs and hands the result to netconvert.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")

	root.AddCommand(
		newRunCmd(g),
		newCheckCmd(),
		newWatchCmd(g),
		newValidateCmd(g),
		newInspectCmd(),
		newTuningCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
