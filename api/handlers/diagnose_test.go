package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsentinel/fault-diagnosis/internal/engine"
	"github.com/gridsentinel/fault-diagnosis/internal/events"
	"github.com/gridsentinel/fault-diagnosis/internal/scorer"
	"github.com/gridsentinel/fault-diagnosis/pkg/config"
	"github.com/gridsentinel/fault-diagnosis/pkg/database"
	"github.com/gridsentinel/fault-diagnosis/pkg/database/queries"
	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

type handlerFixture struct {
	router *gin.Engine
	bus    *events.EventBus
	repo   *queries.DiagnosisRepository
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db).Run(context.Background()))

	model := scorer.Train(scorer.TrainConfig{SamplesPerLabel: 200, Seed: 42})
	require.NoError(t, model.Validate())

	bus := events.NewEventBus(16)
	repo := queries.NewDiagnosisRepository(db.DB)

	diagnoseHandler := NewDiagnoseHandler(engine.New(model), repo, events.NewPublisher(bus))
	historyHandler := NewHistoryHandler(repo, &config.APIConfig{HistoryLimit: 20})

	router := gin.New()
	router.POST("/api/diagnose", diagnoseHandler.Diagnose)
	router.GET("/api/history", historyHandler.History)
	router.GET("/api/stats", historyHandler.Stats)

	return &handlerFixture{router: router, bus: bus, repo: repo}
}

func (f *handlerFixture) post(t *testing.T, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func validReading() map[string]interface{} {
	return map[string]interface{}{
		"device_id":    "MOTOR-1",
		"voltage":      230.0,
		"current":      50.0,
		"temperature":  60.0,
		"vibration":    5.0,
		"power_factor": 0.9,
	}
}

func TestDiagnose_Success(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post(t, "/api/diagnose", validReading())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "MOTOR-1", resp["device_id"])
	assert.Equal(t, string(models.FaultNormal), resp["fault_type"])
	assert.Equal(t, string(models.SeverityNormal), resp["severity"])
	assert.NotEmpty(t, resp["recommendation"])

	confidence, ok := resp["confidence"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 100.0)
}

func TestDiagnose_CriticalFaultPublishesEvent(t *testing.T) {
	f := newHandlerFixture(t)
	criticalCh := f.bus.Subscribe(models.EventTypeCriticalFault)

	payload := validReading()
	payload["temperature"] = 150.0
	payload["current"] = 120.0

	w := f.post(t, "/api/diagnose", payload)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(models.FaultShortCircuit), resp["fault_type"])

	select {
	case event := <-criticalCh:
		assert.Equal(t, models.EventTypeCriticalFault, event.Type)
		assert.Equal(t, "MOTOR-1", event.DeviceID)
	default:
		t.Fatal("expected a critical fault event")
	}
}

func TestDiagnose_ValidationError(t *testing.T) {
	f := newHandlerFixture(t)

	payload := validReading()
	payload["voltage"] = "not a number"

	w := f.post(t, "/api/diagnose", payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Contains(t, resp["message"], "voltage")

	// Nothing may reach the ledger on a rejected request
	summary, err := f.repo.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalDiagnoses)
}

func TestDiagnose_NonObjectBody(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/diagnose", bytes.NewReader([]byte("[1,2,3]")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory_ConfidenceScaledToUnitInterval(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post(t, "/api/diagnose", validReading())
	require.Equal(t, http.StatusOK, w.Code)

	var diagResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &diagResp))
	percent := diagResp["confidence"].(float64)

	hw := f.get(t, "/api/history")
	assert.Equal(t, http.StatusOK, hw.Code)

	var histResp struct {
		Status    string `json:"status"`
		Count     int    `json:"count"`
		Diagnoses []struct {
			ID             int64   `json:"id"`
			DeviceID       string  `json:"device_id"`
			FaultType      string  `json:"fault_type"`
			Confidence     float64 `json:"confidence"`
			SensorReadings string  `json:"sensor_readings"`
			Timestamp      string  `json:"timestamp"`
		} `json:"diagnoses"`
	}
	require.NoError(t, json.Unmarshal(hw.Body.Bytes(), &histResp))
	require.Equal(t, 1, histResp.Count)

	entry := histResp.Diagnoses[0]
	assert.Greater(t, entry.ID, int64(0))
	assert.Equal(t, "MOTOR-1", entry.DeviceID)
	assert.InDelta(t, percent/100, entry.Confidence, 1e-9)
	assert.Contains(t, entry.SensorReadings, "V:230")
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, entry.Timestamp)
}

func TestStats_AggregatesLedger(t *testing.T) {
	f := newHandlerFixture(t)

	require.Equal(t, http.StatusOK, f.post(t, "/api/diagnose", validReading()).Code)

	overheat := validReading()
	overheat["temperature"] = 85.0
	require.Equal(t, http.StatusOK, f.post(t, "/api/diagnose", overheat).Code)

	w := f.get(t, "/api/stats")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status         string         `json:"status"`
		TotalDiagnoses int            `json:"total_diagnoses"`
		FaultBreakdown map[string]int `json:"fault_breakdown"`
		AvgConfidence  float64        `json:"avg_confidence"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.TotalDiagnoses)
	assert.Equal(t, 1, resp.FaultBreakdown[string(models.FaultNormal)])
	assert.Equal(t, 1, resp.FaultBreakdown[string(models.FaultOverheat)])
	assert.GreaterOrEqual(t, resp.AvgConfidence, 0.0)
	assert.LessOrEqual(t, resp.AvgConfidence, 100.0)
}

func TestStats_EmptyLedger(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get(t, "/api/stats")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalDiagnoses int     `json:"total_diagnoses"`
		AvgConfidence  float64 `json:"avg_confidence"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.TotalDiagnoses)
	assert.Equal(t, 0.0, resp.AvgConfidence)
}
