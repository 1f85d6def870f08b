package models

// FaultType is a diagnosis label. The strings are display names and are
// stored verbatim in the ledger, so they must never change.
type FaultType string

const (
	FaultNormal         FaultType = "Normal Operation"
	FaultOvervoltage    FaultType = "Overvoltage"
	FaultUndervoltage   FaultType = "Undervoltage"
	FaultOverload       FaultType = "Overload"
	FaultOverheat       FaultType = "Overheat"
	FaultShortCircuit   FaultType = "Short Circuit"
	FaultMechanical     FaultType = "Mechanical Fault"
	FaultLowPowerFactor FaultType = "Low Power Factor"
)

// AllFaultTypes returns every label in a fixed order. The classifier's
// parameter rows are indexed by this order.
func AllFaultTypes() []FaultType {
	return []FaultType{
		FaultNormal,
		FaultOvervoltage,
		FaultUndervoltage,
		FaultOverload,
		FaultOverheat,
		FaultShortCircuit,
		FaultMechanical,
		FaultLowPowerFactor,
	}
}

// Severity grades how urgently a fault needs attention.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)
