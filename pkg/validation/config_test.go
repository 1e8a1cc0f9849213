package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("Name", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Required("Name", "value")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_MinDuration(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.MinDuration("Timeout", 500*time.Millisecond, time.Second)

	if !cv.HasErrors() {
		t.Error("Expected error for duration below minimum")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.MinDuration("Timeout", 2*time.Second, time.Second)

	if cv2.HasErrors() {
		t.Error("Expected no error for duration above minimum")
	}
}

func TestConfigValidator_Ordered(t *testing.T) {
	tests := []struct {
		name        string
		lo, mid, hi float64
		wantErr     bool
	}{
		{"ordered", 10, 35, 70, false},
		{"all equal", 3, 3, 3, false},
		{"dur below min", 10, 5, 70, true},
		{"dur above max", 10, 80, 70, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.Ordered("GreenMain", tt.lo, tt.mid, tt.hi)

			if cv.HasErrors() != tt.wantErr {
				t.Errorf("Ordered(%g,%g,%g) HasErrors = %v, want %v", tt.lo, tt.mid, tt.hi, cv.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	allowed := []string{"debug", "info", "warn", "error"}

	cv := NewConfigValidator("TestConfig")
	cv.OneOf("LogLevel", "trace", allowed)

	if !cv.HasErrors() {
		t.Error("Expected error for value not in allowed list")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.OneOf("LogLevel", "info", allowed)

	if cv2.HasErrors() {
		t.Error("Expected no error for value in allowed list")
	}
}

func TestConfigValidator_Custom(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Custom("Network", func() error {
		return errors.New("file does not exist")
	})

	if !cv.HasErrors() {
		t.Error("Expected error from custom validation")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Custom("Network", func() error {
		return nil
	})

	if cv2.HasErrors() {
		t.Error("Expected no error from passing custom validation")
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.When(false, func(v *ConfigValidator) {
		v.Required("Bucket", "")
	})

	if cv.HasErrors() {
		t.Error("Expected no error when condition is false")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.When(true, func(v *ConfigValidator) {
		v.Required("Bucket", "")
	})

	if !cv2.HasErrors() {
		t.Error("Expected error when condition is true")
	}
}

func TestConfigValidator_Validate(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	if err := cv.Validate(); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	cv.Required("Network", "")
	err := cv.Validate()
	if err == nil || !strings.Contains(err.Error(), "TestConfig.Network") {
		t.Errorf("Expected single field error, got %v", err)
	}

	cv.Required("OutDir", "")
	err = cv.Validate()
	if err == nil || !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("Expected combined error, got %v", err)
	}
	if len(cv.Errors()) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(cv.Errors()))
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "net"); got != "net" {
		t.Errorf("DefaultOr empty = %q, want %q", got, "net")
	}
	if got := DefaultOr("city", "net"); got != "city" {
		t.Errorf("DefaultOr set = %q, want %q", got, "city")
	}
	if got := DefaultOr(0.0, 0.6); got != 0.6 {
		t.Errorf("DefaultOr zero float = %g, want 0.6", got)
	}
}
