package tuning

import "errors"

// ErrInvalidPolicy is returned when a resolved policy fails validation.
var ErrInvalidPolicy = errors.New("invalid tuning policy")

// Green is a green-phase timing window in seconds.
type Green struct {
	Min float64 `json:"min" yaml:"min" validate:"gte=0"`
	Max float64 `json:"max" yaml:"max" validate:"gte=0"`
	Dur float64 `json:"dur" yaml:"dur" validate:"gte=0"`
}

// Policy is the fully resolved timing policy for one signal.
type Policy struct {
	MainShareFraction float64 `json:"mainShareFraction" yaml:"mainShareFraction" validate:"gte=0,lte=1"`
	GreenMain         Green   `json:"greenMain" yaml:"greenMain"`
	GreenSide         Green   `json:"greenSide" yaml:"greenSide"`
	YellowDuration    float64 `json:"yellowDuration" yaml:"yellowDuration" validate:"gt=0"`
}

// GreenOverride is a partial Green; nil fields inherit.
type GreenOverride struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Dur *float64 `json:"dur,omitempty" yaml:"dur,omitempty"`
}

// legacyGreen is the nested "green": {"main", "side"} layout.
type legacyGreen struct {
	Main *GreenOverride `json:"main,omitempty" yaml:"main,omitempty"`
	Side *GreenOverride `json:"side,omitempty" yaml:"side,omitempty"`
}

// Override is a partial Policy; nil fields inherit from the defaults.
// The older main_share / green.main / green.side / yellow keys are
// accepted and lose to the current names when both are present.
type Override struct {
	MainShareFraction *float64       `json:"mainShareFraction,omitempty" yaml:"mainShareFraction,omitempty"`
	GreenMain         *GreenOverride `json:"greenMain,omitempty" yaml:"greenMain,omitempty"`
	GreenSide         *GreenOverride `json:"greenSide,omitempty" yaml:"greenSide,omitempty"`
	YellowDuration    *float64       `json:"yellowDuration,omitempty" yaml:"yellowDuration,omitempty"`

	MainShare *float64     `json:"main_share,omitempty" yaml:"main_share,omitempty"`
	Green     *legacyGreen `json:"green,omitempty" yaml:"green,omitempty"`
	Yellow    *float64     `json:"yellow,omitempty" yaml:"yellow,omitempty"`
}

// Document is the on-disk policy file layout.
type Document struct {
	Defaults  *Override           `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	PerSignal map[string]Override `json:"per_signal,omitempty" yaml:"per_signal,omitempty"`
	PerTL     map[string]Override `json:"per_tl,omitempty" yaml:"per_tl,omitempty"`
}

// Format selects the policy file decoder.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}
