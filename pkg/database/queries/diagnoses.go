package queries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

// PersistenceError wraps a ledger storage failure. Callers treat it as a
// server-side fault; a diagnosis that could not be durably recorded is
// never returned to the user.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DiagnosisRepository is the append-only diagnosis ledger. Records are
// never updated or deleted; ids are assigned by the store and strictly
// increasing.
type DiagnosisRepository struct {
	db *sql.DB
}

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

// Append persists a diagnosis, assigning its id and creation timestamp.
// The insert is a single statement, so it is atomic: either the full
// record exists afterwards or nothing does.
func (r *DiagnosisRepository) Append(ctx context.Context, d *models.Diagnosis) (*models.Diagnosis, error) {
	stored := *d
	stored.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO diagnoses
			(device_id, fault_type, severity, confidence, recommendation,
			 voltage, current, temperature, vibration, power_factor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		stored.DeviceID,
		string(stored.FaultType),
		string(stored.Severity),
		stored.Confidence,
		stored.Recommendation,
		stored.Readings.Voltage,
		stored.Readings.Current,
		stored.Readings.Temperature,
		stored.Readings.Vibration,
		stored.Readings.PowerFactor,
		stored.CreatedAt,
	).Scan(&stored.ID)

	if err != nil {
		return nil, &PersistenceError{Op: "append", Err: err}
	}

	return &stored, nil
}

// Recent returns the newest diagnoses, most recent first.
func (r *DiagnosisRepository) Recent(ctx context.Context, limit int) ([]models.Diagnosis, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, device_id, fault_type, severity, confidence, recommendation,
			   voltage, current, temperature, vibration, power_factor, created_at
		FROM diagnoses
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "recent", Err: err}
	}
	defer rows.Close()

	var diagnoses []models.Diagnosis
	for rows.Next() {
		var d models.Diagnosis
		err := rows.Scan(
			&d.ID, &d.DeviceID, &d.FaultType, &d.Severity, &d.Confidence, &d.Recommendation,
			&d.Readings.Voltage, &d.Readings.Current, &d.Readings.Temperature,
			&d.Readings.Vibration, &d.Readings.PowerFactor, &d.CreatedAt,
		)
		if err != nil {
			return nil, &PersistenceError{Op: "recent", Err: err}
		}
		d.Readings.DeviceID = d.DeviceID
		diagnoses = append(diagnoses, d)
	}

	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "recent", Err: err}
	}

	return diagnoses, nil
}

// Summarize recomputes the aggregate view from current ledger content.
// An empty ledger yields zero totals and an empty breakdown.
func (r *DiagnosisRepository) Summarize(ctx context.Context) (*models.StatsSummary, error) {
	summary := &models.StatsSummary{
		FaultBreakdown: make(map[models.FaultType]int),
	}

	// COALESCE guards the average on an empty table.
	totalsQuery := `SELECT COUNT(*), COALESCE(AVG(confidence), 0) FROM diagnoses`
	err := r.db.QueryRowContext(ctx, totalsQuery).Scan(&summary.TotalDiagnoses, &summary.AvgConfidence)
	if err != nil {
		return nil, &PersistenceError{Op: "summarize", Err: err}
	}

	breakdownQuery := `SELECT fault_type, COUNT(*) FROM diagnoses GROUP BY fault_type`
	rows, err := r.db.QueryContext(ctx, breakdownQuery)
	if err != nil {
		return nil, &PersistenceError{Op: "summarize", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var faultType string
		var count int
		if err := rows.Scan(&faultType, &count); err != nil {
			return nil, &PersistenceError{Op: "summarize", Err: err}
		}
		summary.FaultBreakdown[models.FaultType(faultType)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "summarize", Err: err}
	}

	return summary, nil
}

// CountByDevice reports how many diagnoses exist for one device.
func (r *DiagnosisRepository) CountByDevice(ctx context.Context, deviceID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM diagnoses WHERE device_id = $1`
	if err := r.db.QueryRowContext(ctx, query, deviceID).Scan(&count); err != nil {
		return 0, &PersistenceError{Op: "count_by_device", Err: err}
	}
	return count, nil
}
