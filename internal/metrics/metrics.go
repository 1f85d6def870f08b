package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	diagnosesTotal   map[string]int64            // device -> count
	faultsTotal      map[string]map[string]int64 // device -> fault type -> count
	validationErrors int64
	scorerErrors     int64
	ledgerErrors     int64

	// Histograms (simplified - just track last values)
	diagnosisLatency map[string]time.Duration
}

// Snapshot is a point-in-time copy of all counters, safe to serialize.
type Snapshot struct {
	DiagnosesTotal     map[string]int64            `json:"diagnoses_total"`
	FaultsTotal        map[string]map[string]int64 `json:"faults_total"`
	ValidationErrors   int64                       `json:"validation_errors"`
	ScorerErrors       int64                       `json:"scorer_errors"`
	LedgerErrors       int64                       `json:"ledger_errors"`
	DiagnosisLatencyMs map[string]int64            `json:"diagnosis_latency_ms"`
}

var (
	instance *Metrics
	once     sync.Once
)

func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			diagnosesTotal:   make(map[string]int64),
			faultsTotal:      make(map[string]map[string]int64),
			diagnosisLatency: make(map[string]time.Duration),
		}
	})
	return instance
}

func (m *Metrics) IncDiagnoses(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnosesTotal[deviceID]++
}

func (m *Metrics) IncFault(deviceID, faultType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.faultsTotal[deviceID] == nil {
		m.faultsTotal[deviceID] = make(map[string]int64)
	}
	m.faultsTotal[deviceID][faultType]++
}

func (m *Metrics) IncValidationErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationErrors++
}

func (m *Metrics) IncScorerErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scorerErrors++
}

func (m *Metrics) IncLedgerErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgerErrors++
}

func (m *Metrics) SetDiagnosisLatency(deviceID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnosisLatency[deviceID] = d
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		DiagnosesTotal:     make(map[string]int64, len(m.diagnosesTotal)),
		FaultsTotal:        make(map[string]map[string]int64, len(m.faultsTotal)),
		ValidationErrors:   m.validationErrors,
		ScorerErrors:       m.scorerErrors,
		LedgerErrors:       m.ledgerErrors,
		DiagnosisLatencyMs: make(map[string]int64, len(m.diagnosisLatency)),
	}
	for device, count := range m.diagnosesTotal {
		snap.DiagnosesTotal[device] = count
	}
	for device, faults := range m.faultsTotal {
		inner := make(map[string]int64, len(faults))
		for fault, count := range faults {
			inner[fault] = count
		}
		snap.FaultsTotal[device] = inner
	}
	for device, latency := range m.diagnosisLatency {
		snap.DiagnosisLatencyMs[device] = latency.Milliseconds()
	}
	return snap
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for device, count := range m.diagnosesTotal {
			writeMetric(w, "faultdiag_diagnoses_total", map[string]string{"device_id": device}, float64(count))
		}

		for device, faults := range m.faultsTotal {
			for fault, count := range faults {
				writeMetric(w, "faultdiag_faults_total", map[string]string{"device_id": device, "fault_type": fault}, float64(count))
			}
		}

		writeMetric(w, "faultdiag_validation_errors_total", nil, float64(m.validationErrors))
		writeMetric(w, "faultdiag_scorer_errors_total", nil, float64(m.scorerErrors))
		writeMetric(w, "faultdiag_ledger_errors_total", nil, float64(m.ledgerErrors))

		for device, latency := range m.diagnosisLatency {
			writeMetric(w, "faultdiag_diagnosis_latency_ms", map[string]string{"device_id": device}, float64(latency.Milliseconds()))
		}
	})
}

func writeMetric(w http.ResponseWriter, name string, labels map[string]string, value float64) {
	labelStr := ""
	if len(labels) > 0 {
		labelStr = "{"
		first := true
		for k, v := range labels {
			if !first {
				labelStr += ","
			}
			labelStr += k + `="` + v + `"`
			first = false
		}
		labelStr += "}"
	}
	w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}
