package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-signalpatch/pkg/tuning"
	"github.com/dd0wney/cluso-signalpatch/pkg/validation"
)

type resolvedPolicy struct {
	Signal string         `json:"signal" yaml:"signal"`
	Policy *tuning.Policy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func newTuningCmd(g *globalFlags) *cobra.Command {
	var (
		path   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "tuning [signal-id...]",
		Short: "Print the resolved tuning policy per signal",
		Long: `Tuning resolves the policy for each signal id, field by field over the
defaults. Without ids it prints the defaults and every signal with an
override.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validation.NewConfigValidator("tuning").
				OneOf("format", format, []string{"json", "yaml"}).
				Validate()
			if err != nil {
				return err
			}
			cfg := tuning.Load(path, g.logger())

			ids := args
			if len(ids) == 0 {
				ids = cfg.Signals()
			}

			defaults := cfg.Defaults()
			out := struct {
				Source   string           `json:"source,omitempty" yaml:"source,omitempty"`
				Defaults tuning.Policy    `json:"defaults" yaml:"defaults"`
				Signals  []resolvedPolicy `json:"signals" yaml:"signals"`
			}{Source: cfg.Source(), Defaults: defaults}

			for _, id := range ids {
				rp := resolvedPolicy{Signal: id}
				if p, err := cfg.Lookup(id); err != nil {
					rp.Error = err.Error()
				} else {
					rp.Policy = &p
				}
				out.Signals = append(out.Signals, rp)
			}

			switch format {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(out)
			default:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "Tuning policy file (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")
	return cmd
}
