package models

import "fmt"

// NumFeatures is the width of the classifier feature vector.
const NumFeatures = 5

// SensorReading is one validated measurement snapshot from a device.
type SensorReading struct {
	DeviceID    string  `json:"device_id"`
	Voltage     float64 `json:"voltage"`      // volts
	Current     float64 `json:"current"`      // amperes
	Temperature float64 `json:"temperature"`  // degrees Celsius
	Vibration   float64 `json:"vibration"`    // mm/s RMS
	PowerFactor float64 `json:"power_factor"` // dimensionless, 0 to 1
}

// Features returns the reading as a feature vector in the order the
// classifier was trained with.
func (r SensorReading) Features() []float64 {
	return []float64{r.Voltage, r.Current, r.Temperature, r.Vibration, r.PowerFactor}
}

// Summary renders the reading as a compact single line for history views.
func (r SensorReading) Summary() string {
	return fmt.Sprintf("V:%g, I:%g, T:%g, Vib:%g, PF:%g",
		r.Voltage, r.Current, r.Temperature, r.Vibration, r.PowerFactor)
}
