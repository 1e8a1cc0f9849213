// Package tuning resolves per-signal timing policies from built-in
// defaults, a policy file and per-signal overrides.
package tuning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/validation"
)

// Defaults returns the built-in policy.
func Defaults() Policy {
	return Policy{
		MainShareFraction: 0.6,
		GreenMain:         Green{Min: 10, Max: 70, Dur: 35},
		GreenSide:         Green{Min: 7, Max: 40, Dur: 25},
		YellowDuration:    3,
	}
}

// Validate checks field ranges and min <= dur <= max for both greens.
func (p Policy) Validate() error {
	if err := validation.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	err := validation.NewConfigValidator("Policy").
		Ordered("GreenMain", p.GreenMain.Min, p.GreenMain.Dur, p.GreenMain.Max).
		Ordered("GreenSide", p.GreenSide.Min, p.GreenSide.Dur, p.GreenSide.Max).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	return nil
}

// Apply returns base with every field set in o replaced.
func (o Override) Apply(base Policy) Policy {
	o = o.normalized()
	out := base
	if o.MainShareFraction != nil {
		out.MainShareFraction = *o.MainShareFraction
	}
	if o.YellowDuration != nil {
		out.YellowDuration = *o.YellowDuration
	}
	out.GreenMain = o.GreenMain.apply(out.GreenMain)
	out.GreenSide = o.GreenSide.apply(out.GreenSide)
	return out
}

func (o Override) normalized() Override {
	if o.MainShareFraction == nil {
		o.MainShareFraction = o.MainShare
	}
	if o.YellowDuration == nil {
		o.YellowDuration = o.Yellow
	}
	if o.Green != nil {
		o.GreenMain = o.GreenMain.merge(o.Green.Main)
		o.GreenSide = o.GreenSide.merge(o.Green.Side)
	}
	o.MainShare, o.Yellow, o.Green = nil, nil, nil
	return o
}

func (g *GreenOverride) apply(base Green) Green {
	if g == nil {
		return base
	}
	if g.Min != nil {
		base.Min = *g.Min
	}
	if g.Max != nil {
		base.Max = *g.Max
	}
	if g.Dur != nil {
		base.Dur = *g.Dur
	}
	return base
}

// merge fills nil fields of g from fallback.
func (g *GreenOverride) merge(fallback *GreenOverride) *GreenOverride {
	if fallback == nil {
		return g
	}
	if g == nil {
		return fallback
	}
	out := *g
	if out.Min == nil {
		out.Min = fallback.Min
	}
	if out.Max == nil {
		out.Max = fallback.Max
	}
	if out.Dur == nil {
		out.Dur = fallback.Dur
	}
	return &out
}

// FormatFor picks YAML for .yaml/.yml paths and JSON otherwise.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a policy document.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s policy: %w", format, err)
	}
	return &doc, nil
}

// Config is an immutable set of defaults and per-signal overrides.
type Config struct {
	source    string
	defaults  Policy
	overrides map[string]Override
	logger    logging.Logger
}

// New builds a Config from resolved defaults and raw overrides.
func New(defaults Policy, overrides map[string]Override, logger logging.Logger) *Config {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Config{
		defaults:  defaults,
		overrides: make(map[string]Override, len(overrides)),
		logger:    logger,
	}
	for id, o := range overrides {
		c.overrides[id] = o
	}
	return c
}

// FromDocument resolves a document's defaults over the built-in policy.
// Invalid defaults are replaced by the built-in policy and reported in
// the returned error; the Config is usable either way.
func FromDocument(doc *Document, logger logging.Logger) (*Config, error) {
	overrides := make(map[string]Override, len(doc.PerSignal)+len(doc.PerTL))
	for id, o := range doc.PerTL {
		overrides[id] = o
	}
	for id, o := range doc.PerSignal {
		overrides[id] = o
	}

	defaults := Defaults()
	var err error
	if doc.Defaults != nil {
		resolved := doc.Defaults.Apply(defaults)
		if err = resolved.Validate(); err == nil {
			defaults = resolved
		}
	}
	return New(defaults, overrides, logger), err
}

// Load reads a policy file. Every failure falls back to the built-in
// defaults and is logged; Load never fails.
func Load(path string, logger logging.Logger) *Config {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("tuning"))

	if path == "" {
		logger.Debug("no tuning file, using built-in defaults")
		return New(Defaults(), nil, logger)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("tuning file not found, using built-in defaults", logging.Path(path))
		} else {
			logger.Warn("failed to read tuning file, using built-in defaults", logging.Path(path), logging.Error(err))
		}
		return New(Defaults(), nil, logger)
	}

	doc, err := Parse(data, FormatFor(path))
	if err != nil {
		logger.Warn("failed to parse tuning file, using built-in defaults", logging.Path(path), logging.Error(err))
		return New(Defaults(), nil, logger)
	}

	cfg, err := FromDocument(doc, logger)
	if err != nil {
		logger.Warn("invalid tuning defaults, using built-in defaults", logging.Path(path), logging.Error(err))
	}
	cfg.source = path
	logger.Info("loaded tuning file", logging.Path(path), logging.Count(len(cfg.overrides)))
	return cfg
}

// Source returns the file the config was loaded from, or "".
func (c *Config) Source() string {
	return c.source
}

// Defaults returns the resolved defaults.
func (c *Config) Defaults() Policy {
	return c.defaults
}

// Signals returns the ids that carry an override, sorted.
func (c *Config) Signals() []string {
	ids := make([]string, 0, len(c.overrides))
	for id := range c.overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup resolves the policy for a signal and reports an invalid override.
func (c *Config) Lookup(signalID string) (Policy, error) {
	o, ok := c.overrides[signalID]
	if !ok {
		return c.defaults, nil
	}
	p := o.Apply(c.defaults)
	if err := p.Validate(); err != nil {
		return c.defaults, fmt.Errorf("override for %s: %w", signalID, err)
	}
	return p, nil
}

// Resolve returns the policy for a signal. An override that resolves to
// an invalid policy is dropped with a warning.
func (c *Config) Resolve(signalID string) Policy {
	p, err := c.Lookup(signalID)
	if err != nil {
		c.logger.Warn("dropping invalid tuning override", logging.SignalID(signalID), logging.Error(err))
	}
	return p
}
