package engine

import (
	"fmt"
	"math"

	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

// distributionTolerance is the allowed drift of a scorer distribution's
// total mass from 1.
const distributionTolerance = 1e-6

// EngineError reports a composition invariant violation. It is a defect,
// not user error: the request fails rather than returning a misleading
// confidence.
type EngineError struct {
	Reason string
}

func (e *EngineError) Error() string {
	return "engine invariant violated: " + e.Reason
}

// recommendations maps every fault label to its fixed operator guidance.
var recommendations = map[models.FaultType]string{
	models.FaultNormal:         "System operating normally. Continue monitoring.",
	models.FaultOvervoltage:    "Check voltage regulator and power supply settings.",
	models.FaultUndervoltage:   "Verify power supply and transformer settings.",
	models.FaultOverload:       "Reduce load immediately. Inspect circuit breaker.",
	models.FaultOverheat:       "Reduce load or improve cooling. Check ventilation.",
	models.FaultShortCircuit:   "EMERGENCY: Shut down immediately. Check for faults.",
	models.FaultMechanical:     "Inspect bearings and mountings for wear. Schedule vibration analysis.",
	models.FaultLowPowerFactor: "Install power factor correction capacitors.",
}

// RecommendationFor returns the guidance string for a label.
func RecommendationFor(fault models.FaultType) string {
	if rec, ok := recommendations[fault]; ok {
		return rec
	}
	return "Perform maintenance inspection."
}

// Compose merges the threshold verdict with the scorer distribution into
// a final diagnosis. The rules are authoritative for the label; the
// scorer contributes the confidence as 100 x its probability for that
// label, even when the two disagree. That disagreement is deliberately
// reported as-is rather than reconciled.
func Compose(reading models.SensorReading, rule RuleResult, dist map[models.FaultType]float64) (*models.Diagnosis, error) {
	var total float64
	for label, p := range dist {
		if p < 0 || p > 1 {
			return nil, &EngineError{Reason: fmt.Sprintf("probability for %s out of range: %v", label, p)}
		}
		total += p
	}
	if math.Abs(total-1) > distributionTolerance {
		return nil, &EngineError{Reason: fmt.Sprintf("scorer distribution sums to %v", total)}
	}

	probability, ok := dist[rule.Fault]
	if !ok {
		return nil, &EngineError{Reason: fmt.Sprintf("scorer distribution missing label %s", rule.Fault)}
	}

	// One decimal of display precision, kept as a float.
	confidence := math.Round(probability*1000) / 10

	return &models.Diagnosis{
		DeviceID:       reading.DeviceID,
		FaultType:      rule.Fault,
		Severity:       rule.Severity,
		Confidence:     confidence,
		Recommendation: RecommendationFor(rule.Fault),
		Readings:       reading,
	}, nil
}
