package validation

import (
	"strings"
	"testing"
)

type greenWindow struct {
	Min float64 `validate:"gte=0"`
	Max float64 `validate:"gtefield=Dur"`
	Dur float64 `validate:"gtefield=Min"`
}

type sampleAction struct {
	Type   string `validate:"required,oneof=update_attribute create_element"`
	Target string `validate:"required,oneof=edge junction tlLogic"`
	ID     string `validate:"elementid"`
	Window greenWindow
	Yellow float64 `validate:"gt=0"`
}

func validAction() sampleAction {
	return sampleAction{
		Type:   "create_element",
		Target: "tlLogic",
		ID:     "TL_J1",
		Window: greenWindow{Min: 10, Max: 70, Dur: 35},
		Yellow: 3,
	}
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *sampleAction)
		wantErr string
	}{
		{"valid", func(a *sampleAction) {}, ""},
		{"missing type", func(a *sampleAction) { a.Type = "" }, "field is required"},
		{"unknown type", func(a *sampleAction) { a.Type = "delete_element" }, "must be one of"},
		{"bad id", func(a *sampleAction) { a.ID = "TL J1" }, "invalid element id"},
		{"negative min", func(a *sampleAction) { a.Window.Min = -1; a.Window.Dur = 0 }, "must be at least 0"},
		{"dur below min", func(a *sampleAction) { a.Window.Dur = 5 }, "must not be below Min"},
		{"zero yellow", func(a *sampleAction) { a.Yellow = 0 }, "must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAction()
			tt.mutate(&a)
			err := Struct(a)

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Struct() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestStruct_Nil(t *testing.T) {
	if err := Struct(nil); err == nil {
		t.Error("Expected error for nil value")
	}
}

func TestValidateElementID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "J1", false},
		{"prefixed", "TL_J1", false},
		{"internal", ":J1_0_0", false},
		{"cluster", "cluster_123_456", false},
		{"empty", "", true},
		{"space", "TL J1", true},
		{"quote", `J"1`, true},
		{"markup", "J<1>", true},
		{"too long", strings.Repeat("j", MaxIDLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElementID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElementID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
