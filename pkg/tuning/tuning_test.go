package tuning

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func f(v float64) *float64 { return &v }

func TestDefaultsAreValid(t *testing.T) {
	p := Defaults()
	require.NoError(t, p.Validate())
	assert.Equal(t, 0.6, p.MainShareFraction)
	assert.Equal(t, Green{Min: 10, Max: 70, Dur: 35}, p.GreenMain)
	assert.Equal(t, Green{Min: 7, Max: 40, Dur: 25}, p.GreenSide)
	assert.Equal(t, 3.0, p.YellowDuration)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Policy)
	}{
		{"share above one", func(p *Policy) { p.MainShareFraction = 1.2 }},
		{"share negative", func(p *Policy) { p.MainShareFraction = -0.1 }},
		{"zero yellow", func(p *Policy) { p.YellowDuration = 0 }},
		{"negative side min", func(p *Policy) { p.GreenSide.Min = -1 }},
		{"main dur above max", func(p *Policy) { p.GreenMain.Dur = 90 }},
		{"side min above dur", func(p *Policy) { p.GreenSide.Min = 30 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPolicy), "got %v", err)
		})
	}
}

func TestOverrideApplyFieldByField(t *testing.T) {
	o := Override{
		MainShareFraction: f(0.7),
		GreenMain:         &GreenOverride{Dur: f(40)},
	}
	p := o.Apply(Defaults())

	assert.Equal(t, 0.7, p.MainShareFraction)
	assert.Equal(t, Green{Min: 10, Max: 70, Dur: 40}, p.GreenMain)
	assert.Equal(t, Defaults().GreenSide, p.GreenSide)
	assert.Equal(t, 3.0, p.YellowDuration)
}

func TestOverrideLegacyKeys(t *testing.T) {
	doc, err := Parse([]byte(`{"per_tl": {"TL_1": {
		"main_share": 0.5,
		"mainShareFraction": 0.8,
		"green": {"main": {"min": 12, "max": 80, "dur": 40}, "side": {"dur": 20}},
		"greenSide": {"max": 30},
		"yellow": 4
	}}}`), FormatJSON)
	require.NoError(t, err)

	cfg, err := FromDocument(doc, nil)
	require.NoError(t, err)

	p := cfg.Resolve("TL_1")
	assert.Equal(t, 0.8, p.MainShareFraction)
	assert.Equal(t, Green{Min: 12, Max: 80, Dur: 40}, p.GreenMain)
	assert.Equal(t, Green{Min: 7, Max: 30, Dur: 20}, p.GreenSide)
	assert.Equal(t, 4.0, p.YellowDuration)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "signal_tuning.json", `{
		"defaults": {"yellowDuration": 4},
		"per_signal": {"TL_J1": {"mainShareFraction": 1.0}},
		"per_tl": {"TL_J1": {"mainShareFraction": 0.2}, "TL_J2": {"greenSide": {"dur": 30}}}
	}`)

	cfg := Load(path, nil)
	assert.Equal(t, path, cfg.Source())
	assert.Equal(t, 4.0, cfg.Defaults().YellowDuration)
	assert.Equal(t, []string{"TL_J1", "TL_J2"}, cfg.Signals())

	// per_signal wins over the per_tl alias.
	assert.Equal(t, 1.0, cfg.Resolve("TL_J1").MainShareFraction)
	assert.Equal(t, 4.0, cfg.Resolve("TL_J1").YellowDuration)
	assert.Equal(t, 30.0, cfg.Resolve("TL_J2").GreenSide.Dur)
	assert.Equal(t, cfg.Defaults(), cfg.Resolve("TL_unknown"))
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "tuning.yaml", `
defaults:
  mainShareFraction: 0.5
  greenMain:
    min: 12
per_signal:
  TL_J3:
    yellowDuration: 5
`)

	cfg := Load(path, nil)
	assert.Equal(t, 0.5, cfg.Defaults().MainShareFraction)
	assert.Equal(t, Green{Min: 12, Max: 70, Dur: 35}, cfg.Defaults().GreenMain)
	assert.Equal(t, 5.0, cfg.Resolve("TL_J3").YellowDuration)
	assert.Equal(t, 0.5, cfg.Resolve("TL_J3").MainShareFraction)
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantLog string
	}{
		{"empty path", func(t *testing.T) string { return "" }, ""},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }, "tuning file not found"},
		{"unparsable json", func(t *testing.T) string { return writeFile(t, "bad.json", "{not json") }, "failed to parse tuning file"},
		{"unparsable yaml", func(t *testing.T) string { return writeFile(t, "bad.yml", "defaults: [") }, "failed to parse tuning file"},
		{"invalid defaults", func(t *testing.T) string {
			return writeFile(t, "inv.json", `{"defaults": {"mainShareFraction": 3}}`)
		}, "invalid tuning defaults"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

			cfg := Load(tt.path(t), logger)
			assert.Equal(t, Defaults(), cfg.Defaults())
			assert.Equal(t, Defaults(), cfg.Resolve("TL_any"))
			if tt.wantLog != "" {
				assert.Contains(t, buf.String(), tt.wantLog)
			}
		})
	}
}

func TestResolveDropsInvalidOverride(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.InfoLevel)

	cfg := New(Defaults(), map[string]Override{
		"TL_bad":  {GreenMain: &GreenOverride{Min: f(80)}},
		"TL_good": {MainShareFraction: f(0.25)},
	}, logger)

	assert.Equal(t, Defaults(), cfg.Resolve("TL_bad"))
	assert.Contains(t, buf.String(), "dropping invalid tuning override")
	assert.Contains(t, buf.String(), `"signal_id":"TL_bad"`)

	_, err := cfg.Lookup("TL_bad")
	assert.True(t, errors.Is(err, ErrInvalidPolicy))

	p, err := cfg.Lookup("TL_good")
	require.NoError(t, err)
	assert.Equal(t, 0.25, p.MainShareFraction)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a/b.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("B.YML"))
	assert.Equal(t, FormatJSON, FormatFor("tuning.json"))
	assert.Equal(t, FormatJSON, FormatFor("tuning"))
}
