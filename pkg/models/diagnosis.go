package models

import "time"

// Diagnosis is one ledger record: the verdict for a single reading.
// Confidence is a percentage in [0,100] with one decimal of precision.
type Diagnosis struct {
	ID             int64         `json:"id"`
	DeviceID       string        `json:"device_id"`
	FaultType      FaultType     `json:"fault_type"`
	Severity       Severity      `json:"severity"`
	Confidence     float64       `json:"confidence"`
	Recommendation string        `json:"recommendation"`
	Readings       SensorReading `json:"readings"`
	CreatedAt      time.Time     `json:"created_at"`
}

func (d *Diagnosis) IsCritical() bool {
	return d.Severity == SeverityCritical
}

// StatsSummary aggregates the ledger for the stats endpoint. The average
// confidence is on the stored 0-100 scale.
type StatsSummary struct {
	TotalDiagnoses int               `json:"total_diagnoses"`
	FaultBreakdown map[FaultType]int `json:"fault_breakdown"`
	AvgConfidence  float64           `json:"avg_confidence"`
}
