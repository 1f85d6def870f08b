package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trims whitespace", "  MOTOR-1  ", "MOTOR-1"},
		{"removes null bytes", "MOTOR\x00-1", "MOTOR-1"},
		{"removes control characters", "MOTOR\x07-1", "MOTOR-1"},
		{"keeps newline and tab", "line1\n\tline2", "line1\n\tline2"},
		{"empty input", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		name     string
		deviceID string
		wantErr  bool
	}{
		{"simple id", "MOTOR-1", false},
		{"underscores", "pump_station_04", false},
		{"numeric start", "7TRANSFORMER", false},
		{"empty", "", true},
		{"leading hyphen", "-MOTOR", true},
		{"spaces inside", "MOTOR 1", true},
		{"special characters", "MOTOR;DROP TABLE", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeviceID(tt.deviceID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("operator"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 51)))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ngPass", false},
		{"too short", "Ab1", true},
		{"no uppercase", "weakpass1", true},
		{"no lowercase", "WEAKPASS1", true},
		{"no number", "WeakPassword", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
