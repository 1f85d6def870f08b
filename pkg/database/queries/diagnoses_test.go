package queries

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsentinel/fault-diagnosis/pkg/database"
	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

func newTestLedger(t *testing.T) *DiagnosisRepository {
	t.Helper()

	db, err := database.New(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db).Run(context.Background()))

	return NewDiagnosisRepository(db.DB)
}

func sampleDiagnosis(deviceID string, fault models.FaultType, confidence float64) *models.Diagnosis {
	return &models.Diagnosis{
		DeviceID:       deviceID,
		FaultType:      fault,
		Severity:       models.SeverityWarning,
		Confidence:     confidence,
		Recommendation: "Check voltage regulator and power supply settings.",
		Readings: models.SensorReading{
			DeviceID:    deviceID,
			Voltage:     265,
			Current:     50,
			Temperature: 60,
			Vibration:   5,
			PowerFactor: 0.9,
		},
	}
}

func TestDiagnosisRepository_AppendAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	stored, err := repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultOvervoltage, 87.5))

	require.NoError(t, err)
	assert.Greater(t, stored.ID, int64(0))
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestDiagnosisRepository_IDsStrictlyIncreasing(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 5; i++ {
		stored, err := repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultNormal, 90))
		require.NoError(t, err)
		assert.Greater(t, stored.ID, lastID)
		lastID = stored.ID
	}
}

func TestDiagnosisRepository_RecentRoundTrip(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	first, err := repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultOvervoltage, 87.5))
	require.NoError(t, err)
	second, err := repo.Append(ctx, sampleDiagnosis("MOTOR-2", models.FaultShortCircuit, 94.2))
	require.NoError(t, err)

	diagnoses, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, diagnoses, 2)

	// Newest first
	assert.Equal(t, second.ID, diagnoses[0].ID)
	assert.Equal(t, first.ID, diagnoses[1].ID)

	got := diagnoses[1]
	assert.Equal(t, "MOTOR-1", got.DeviceID)
	assert.Equal(t, models.FaultOvervoltage, got.FaultType)
	assert.Equal(t, models.SeverityWarning, got.Severity)
	assert.Equal(t, 87.5, got.Confidence)
	assert.Equal(t, "MOTOR-1", got.Readings.DeviceID)
	assert.Equal(t, 265.0, got.Readings.Voltage)
	assert.Equal(t, 0.9, got.Readings.PowerFactor)
}

func TestDiagnosisRepository_RecentHonorsLimit(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultNormal, 90))
		require.NoError(t, err)
	}

	diagnoses, err := repo.Recent(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, diagnoses, 20)

	// Non-positive limit falls back to the default of 20
	diagnoses, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, diagnoses, 20)
}

func TestDiagnosisRepository_SummarizeEmpty(t *testing.T) {
	repo := newTestLedger(t)

	summary, err := repo.Summarize(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalDiagnoses)
	assert.Equal(t, 0.0, summary.AvgConfidence)
	assert.Empty(t, summary.FaultBreakdown)
}

func TestDiagnosisRepository_Summarize(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultNormal, 80))
	require.NoError(t, err)
	_, err = repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultNormal, 90))
	require.NoError(t, err)
	_, err = repo.Append(ctx, sampleDiagnosis("MOTOR-2", models.FaultShortCircuit, 70))
	require.NoError(t, err)

	summary, err := repo.Summarize(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalDiagnoses)
	assert.InDelta(t, 80.0, summary.AvgConfidence, 1e-9)
	assert.Equal(t, 2, summary.FaultBreakdown[models.FaultNormal])
	assert.Equal(t, 1, summary.FaultBreakdown[models.FaultShortCircuit])

	// Breakdown counts must account for every record
	total := 0
	for _, count := range summary.FaultBreakdown {
		total += count
	}
	assert.Equal(t, summary.TotalDiagnoses, total)
}

func TestDiagnosisRepository_CountByDevice(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultNormal, 90))
	require.NoError(t, err)
	_, err = repo.Append(ctx, sampleDiagnosis("MOTOR-1", models.FaultOverheat, 85))
	require.NoError(t, err)

	count, err := repo.CountByDevice(ctx, "MOTOR-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountByDevice(ctx, "MOTOR-9")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
