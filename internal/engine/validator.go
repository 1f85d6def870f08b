package engine

import (
	"fmt"
	"math"

	"github.com/gridsentinel/fault-diagnosis/pkg/models"
	"github.com/gridsentinel/fault-diagnosis/pkg/validation"
)

// ValidationError reports a single bad or missing input field. It is
// user-correctable and surfaced as a 4xx at the request boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

var numericFields = []string{"voltage", "current", "temperature", "vibration", "power_factor"}

// ParseReading builds a SensorReading from a decoded JSON object. It
// guards type and shape only: out-of-range physical values pass through
// for the classifiers to flag, except power_factor which is bounded by
// definition.
func ParseReading(raw map[string]interface{}) (models.SensorReading, error) {
	var reading models.SensorReading

	deviceRaw, ok := raw["device_id"]
	if !ok {
		return reading, &ValidationError{Field: "device_id", Reason: "field is required"}
	}
	deviceID, ok := deviceRaw.(string)
	if !ok {
		return reading, &ValidationError{Field: "device_id", Reason: "must be a string"}
	}
	deviceID = validation.SanitizeString(deviceID)
	if err := validation.ValidateDeviceID(deviceID); err != nil {
		return reading, &ValidationError{Field: "device_id", Reason: err.Error()}
	}
	reading.DeviceID = deviceID

	values := make(map[string]float64, len(numericFields))
	for _, field := range numericFields {
		fieldRaw, ok := raw[field]
		if !ok {
			return reading, &ValidationError{Field: field, Reason: "field is required"}
		}
		value, ok := fieldRaw.(float64)
		if !ok {
			return reading, &ValidationError{Field: field, Reason: "must be a number"}
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return reading, &ValidationError{Field: field, Reason: "must be finite"}
		}
		values[field] = value
	}

	if pf := values["power_factor"]; pf < 0 || pf > 1 {
		return reading, &ValidationError{Field: "power_factor", Reason: "must be between 0 and 1"}
	}

	reading.Voltage = values["voltage"]
	reading.Current = values["current"]
	reading.Temperature = values["temperature"]
	reading.Vibration = values["vibration"]
	reading.PowerFactor = values["power_factor"]

	return reading, nil
}
