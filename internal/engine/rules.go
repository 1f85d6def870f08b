package engine

import (
	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

// Threshold bounds for the electrical envelope. Voltage limits are the
// nominal 230V band +-10%.
const (
	VoltageMin     = 207.0
	VoltageMax     = 253.0
	CurrentMax     = 80.0
	TempWarning    = 70.0
	TempCritical   = 100.0
	VibrationMax   = 7.1
	PowerFactorMin = 0.8
)

// RuleResult is the threshold classifier's verdict: a single candidate
// label, the severity of the rule that fired, and the rule name for
// logging and events.
type RuleResult struct {
	Fault    models.FaultType
	Severity models.Severity
	Rule     string
}

type thresholdRule struct {
	name     string
	fault    models.FaultType
	severity models.Severity
	match    func(models.SensorReading) bool
}

// thresholdTable is evaluated in order, stopping at the first match, so
// the most severe condition always wins when several thresholds are
// breached at once.
var thresholdTable = []thresholdRule{
	{
		name:     "short_circuit_signature",
		fault:    models.FaultShortCircuit,
		severity: models.SeverityCritical,
		match: func(r models.SensorReading) bool {
			return r.Temperature > TempCritical || (r.Current > CurrentMax && r.Temperature > TempWarning)
		},
	},
	{
		name:     "overcurrent",
		fault:    models.FaultOverload,
		severity: models.SeverityCritical,
		match: func(r models.SensorReading) bool {
			return r.Current > CurrentMax
		},
	},
	{
		name:     "overtemperature",
		fault:    models.FaultOverheat,
		severity: models.SeverityWarning,
		match: func(r models.SensorReading) bool {
			return r.Temperature > TempWarning
		},
	},
	{
		name:     "undervoltage",
		fault:    models.FaultUndervoltage,
		severity: models.SeverityWarning,
		match: func(r models.SensorReading) bool {
			return r.Voltage < VoltageMin
		},
	},
	{
		name:     "overvoltage",
		fault:    models.FaultOvervoltage,
		severity: models.SeverityWarning,
		match: func(r models.SensorReading) bool {
			return r.Voltage > VoltageMax
		},
	},
	{
		name:     "excess_vibration",
		fault:    models.FaultMechanical,
		severity: models.SeverityWarning,
		match: func(r models.SensorReading) bool {
			return r.Vibration > VibrationMax
		},
	},
	{
		name:     "low_power_factor",
		fault:    models.FaultLowPowerFactor,
		severity: models.SeverityWarning,
		match: func(r models.SensorReading) bool {
			return r.PowerFactor < PowerFactorMin
		},
	},
}

// ClassifyThresholds maps a reading to its candidate fault label. Pure
// function over a valid reading; it cannot fail.
func ClassifyThresholds(reading models.SensorReading) RuleResult {
	for _, rule := range thresholdTable {
		if rule.match(reading) {
			return RuleResult{
				Fault:    rule.fault,
				Severity: rule.severity,
				Rule:     rule.name,
			}
		}
	}
	return RuleResult{
		Fault:    models.FaultNormal,
		Severity: models.SeverityNormal,
		Rule:     "within_normal_envelope",
	}
}
