package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridsentinel/fault-diagnosis/internal/scorer"
	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	model := scorer.Train(scorer.TrainConfig{SamplesPerLabel: 200, Seed: 42})
	assert.NoError(t, model.Validate())
	return New(model)
}

func TestEngine_Diagnose(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name             string
		payload          map[string]interface{}
		expectedFault    models.FaultType
		expectedSeverity models.Severity
	}{
		{
			name: "healthy motor",
			payload: map[string]interface{}{
				"device_id":    "MOTOR-1",
				"voltage":      230.0,
				"current":      50.0,
				"temperature":  60.0,
				"vibration":    5.0,
				"power_factor": 0.9,
			},
			expectedFault:    models.FaultNormal,
			expectedSeverity: models.SeverityNormal,
		},
		{
			name: "everything breached at once",
			payload: map[string]interface{}{
				"device_id":    "MOTOR-2",
				"voltage":      210.0,
				"current":      120.0,
				"temperature":  150.0,
				"vibration":    20.0,
				"power_factor": 0.5,
			},
			expectedFault:    models.FaultShortCircuit,
			expectedSeverity: models.SeverityCritical,
		},
		{
			name: "overvoltage only",
			payload: map[string]interface{}{
				"device_id":    "MOTOR-3",
				"voltage":      265.0,
				"current":      50.0,
				"temperature":  60.0,
				"vibration":    5.0,
				"power_factor": 0.9,
			},
			expectedFault:    models.FaultOvervoltage,
			expectedSeverity: models.SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := eng.Diagnose(tt.payload)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedFault, d.FaultType)
			assert.Equal(t, tt.expectedSeverity, d.Severity)
			assert.GreaterOrEqual(t, d.Confidence, 0.0)
			assert.LessOrEqual(t, d.Confidence, 100.0)
			assert.NotEmpty(t, d.Recommendation)
		})
	}
}

func TestEngine_Diagnose_ValidationFailure(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.Diagnose(map[string]interface{}{
		"device_id":    "MOTOR-1",
		"voltage":      "not a number",
		"current":      50.0,
		"temperature":  60.0,
		"vibration":    5.0,
		"power_factor": 0.9,
	})

	assert.Error(t, err)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "voltage", validationErr.Field)
}

func TestEngine_DiagnoseReading_Deterministic(t *testing.T) {
	eng := newTestEngine(t)
	reading := normalReading()

	first, err := eng.DiagnoseReading(reading)
	assert.NoError(t, err)

	second, err := eng.DiagnoseReading(reading)
	assert.NoError(t, err)

	assert.Equal(t, first.FaultType, second.FaultType)
	assert.Equal(t, first.Confidence, second.Confidence)
}
