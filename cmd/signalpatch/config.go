package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-signalpatch/pkg/artifact"
	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/pipeline"
	"github.com/dd0wney/cluso-signalpatch/pkg/rebuild"
)

// runConfig carries every run option. It is read from --config and
// then overridden by any flag given explicitly.
type runConfig struct {
	Network               string             `yaml:"network"`
	Proposal              string             `yaml:"proposal"`
	Tuning                string             `yaml:"tuning"`
	OutDir                string             `yaml:"out_dir"`
	Prefix                string             `yaml:"prefix"`
	Netconvert            string             `yaml:"netconvert"`
	SkipRebuild           bool               `yaml:"skip_rebuild"`
	RebuildTimeout        time.Duration      `yaml:"rebuild_timeout"`
	ApplyAttributeUpdates bool               `yaml:"apply_attribute_updates"`
	S3                    artifact.S3Options `yaml:"s3"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		OutDir:         "output",
		Prefix:         pipeline.DefaultPrefix,
		Netconvert:     rebuild.DefaultPath,
		RebuildTimeout: 5 * time.Minute,
	}
}

// runFlags binds the run options to a command.
type runFlags struct {
	cfg        runConfig
	configPath string
}

func addRunFlags(cmd *cobra.Command) *runFlags {
	rf := &runFlags{cfg: defaultRunConfig()}
	f := cmd.Flags()
	f.StringVar(&rf.configPath, "config", "", "YAML run config; explicit flags override it")
	f.StringVar(&rf.cfg.Network, "network", rf.cfg.Network, "Input net.xml")
	f.StringVar(&rf.cfg.Proposal, "proposal", rf.cfg.Proposal, "Proposal file, glob pattern (newest match) or inline text")
	f.StringVar(&rf.cfg.Tuning, "tuning", rf.cfg.Tuning, "Tuning policy file (.json, .yaml, .yml)")
	f.StringVar(&rf.cfg.OutDir, "out-dir", rf.cfg.OutDir, "Directory for stage artifacts")
	f.StringVar(&rf.cfg.Prefix, "prefix", rf.cfg.Prefix, "Artifact name prefix")
	f.StringVar(&rf.cfg.Netconvert, "netconvert", rf.cfg.Netconvert, "Network compiler executable")
	f.BoolVar(&rf.cfg.SkipRebuild, "skip-rebuild", rf.cfg.SkipRebuild, "Do not run the network compiler")
	f.DurationVar(&rf.cfg.RebuildTimeout, "rebuild-timeout", rf.cfg.RebuildTimeout, "Limit for one compiler run (0 for none)")
	f.BoolVar(&rf.cfg.ApplyAttributeUpdates, "apply-attribute-updates", rf.cfg.ApplyAttributeUpdates, "Apply update_attribute actions from the proposal")
	f.StringVar(&rf.cfg.S3.Bucket, "s3-bucket", rf.cfg.S3.Bucket, "Mirror artifacts to this S3 bucket")
	f.StringVar(&rf.cfg.S3.Prefix, "s3-prefix", rf.cfg.S3.Prefix, "Key prefix for mirrored artifacts")
	f.StringVar(&rf.cfg.S3.Region, "s3-region", rf.cfg.S3.Region, "S3 region (default from the AWS environment)")
	f.StringVar(&rf.cfg.S3.Endpoint, "s3-endpoint", rf.cfg.S3.Endpoint, "S3-compatible endpoint URL")
	f.BoolVar(&rf.cfg.S3.Compress, "s3-compress", rf.cfg.S3.Compress, "Snappy-compress mirrored artifacts")
	return rf
}

// resolve returns the effective config: defaults, then the config file,
// then every flag that was set explicitly.
func (rf *runFlags) resolve(flags *pflag.FlagSet) (runConfig, error) {
	if rf.configPath == "" {
		return rf.cfg, nil
	}

	cfg, err := loadRunConfig(rf.configPath)
	if err != nil {
		return runConfig{}, err
	}
	flags.Visit(func(f *pflag.Flag) {
		overrideFromFlag(&cfg, &rf.cfg, f.Name)
	})
	return cfg, nil
}

func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func overrideFromFlag(dst, src *runConfig, name string) {
	switch name {
	case "network":
		dst.Network = src.Network
	case "proposal":
		dst.Proposal = src.Proposal
	case "tuning":
		dst.Tuning = src.Tuning
	case "out-dir":
		dst.OutDir = src.OutDir
	case "prefix":
		dst.Prefix = src.Prefix
	case "netconvert":
		dst.Netconvert = src.Netconvert
	case "skip-rebuild":
		dst.SkipRebuild = src.SkipRebuild
	case "rebuild-timeout":
		dst.RebuildTimeout = src.RebuildTimeout
	case "apply-attribute-updates":
		dst.ApplyAttributeUpdates = src.ApplyAttributeUpdates
	case "s3-bucket":
		dst.S3.Bucket = src.S3.Bucket
	case "s3-prefix":
		dst.S3.Prefix = src.S3.Prefix
	case "s3-region":
		dst.S3.Region = src.S3.Region
	case "s3-endpoint":
		dst.S3.Endpoint = src.S3.Endpoint
	case "s3-compress":
		dst.S3.Compress = src.S3.Compress
	}
}

// options converts the config into pipeline options, dialing S3 when a
// bucket is configured.
func (c runConfig) options(ctx context.Context, logger logging.Logger) (pipeline.Options, error) {
	opts := pipeline.Options{
		NetworkPath:           c.Network,
		Proposal:              c.Proposal,
		TuningPath:            c.Tuning,
		OutDir:                c.OutDir,
		Prefix:                c.Prefix,
		NetconvertPath:        c.Netconvert,
		SkipRebuild:           c.SkipRebuild,
		RebuildTimeout:        c.RebuildTimeout,
		ApplyAttributeUpdates: c.ApplyAttributeUpdates,
		Logger:                logger,
	}

	if c.S3.Bucket != "" {
		store, err := artifact.DialS3(ctx, c.S3)
		if err != nil {
			return opts, fmt.Errorf("s3 mirror: %w", err)
		}
		opts.Mirrors = append(opts.Mirrors, store)
		logger.Info("mirroring artifacts",
			logging.String("bucket", c.S3.Bucket),
			logging.String("prefix", c.S3.Prefix),
			logging.Bool("compress", c.S3.Compress))
	}
	return opts, nil
}
