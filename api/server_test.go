package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsentinel/fault-diagnosis/internal/scorer"
	"github.com/gridsentinel/fault-diagnosis/pkg/config"
	"github.com/gridsentinel/fault-diagnosis/pkg/database"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	db, err := database.New(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db).Run(context.Background()))

	model := scorer.Train(scorer.TrainConfig{SamplesPerLabel: 200, Seed: 42})
	require.NoError(t, model.Validate())

	s := NewServer(cfg, db, model)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func (s *Server) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

// The user endpoint is registered regardless of api.auth_enabled; without a
// token it answers 401, never 404.
func TestUserEndpoint_RegisteredWithAuthDisabled(t *testing.T) {
	s := newTestServer(t)
	require.False(t, s.config.API.AuthEnabled)

	w := s.do(t, http.MethodGet, "/api/user", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserEndpoint_ReturnsProfileWithToken(t *testing.T) {
	s := newTestServer(t)

	creds := map[string]string{"username": "operator1", "password": "Str0ng!Pass"}
	w := s.do(t, http.MethodPost, "/auth/register", creds, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	w = s.do(t, http.MethodGet, "/api/user", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "operator1")
}

// With auth disabled the diagnosis routes stay open.
func TestDiagnoseEndpoint_OpenWithAuthDisabled(t *testing.T) {
	s := newTestServer(t)

	reading := map[string]interface{}{
		"device_id":    "MOTOR-1",
		"voltage":      230.0,
		"current":      10.0,
		"temperature":  45.0,
		"vibration":    1.0,
		"power_factor": 0.95,
	}
	w := s.do(t, http.MethodPost, "/api/diagnose", reading, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
