package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pantrywatch/pantry-api/internal/models"
)

const defaultHealthKey = "default"

// HealthRepository handles health metrics, uploaded reports, and the
// cached AI analysis. The household has a single metrics record, keyed
// the same way as the other singleton config rows.
type HealthRepository struct {
	db *DB
}

// NewHealthRepository creates a new health repository
func NewHealthRepository(db *DB) *HealthRepository {
	return &HealthRepository{db: db}
}

// GetMetrics retrieves the household health metrics, or nil if never set.
func (r *HealthRepository) GetMetrics(ctx context.Context) (*models.HealthMetrics, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT sugar_level, cholesterol, blood_pressure_systolic, blood_pressure_diastolic, weight, height, updated_at
		FROM health_metrics WHERE config_key = $1
	`, defaultHealthKey)

	m := &models.HealthMetrics{}
	err := row.Scan(
		&m.SugarLevel,
		&m.Cholesterol,
		&m.BloodPressureSystolic,
		&m.BloodPressureDiastolic,
		&m.Weight,
		&m.Height,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get health metrics: %w", err)
	}
	return m, nil
}

// SetMetrics upserts the household health metrics. Nil fields clear the
// stored value.
func (r *HealthRepository) SetMetrics(ctx context.Context, m *models.HealthMetrics) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO health_metrics (config_key, sugar_level, cholesterol, blood_pressure_systolic, blood_pressure_diastolic, weight, height, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (config_key) DO UPDATE SET
			sugar_level = EXCLUDED.sugar_level,
			cholesterol = EXCLUDED.cholesterol,
			blood_pressure_systolic = EXCLUDED.blood_pressure_systolic,
			blood_pressure_diastolic = EXCLUDED.blood_pressure_diastolic,
			weight = EXCLUDED.weight,
			height = EXCLUDED.height,
			updated_at = EXCLUDED.updated_at
	`, defaultHealthKey, m.SugarLevel, m.Cholesterol, m.BloodPressureSystolic, m.BloodPressureDiastolic, m.Weight, m.Height, now)
	if err != nil {
		return fmt.Errorf("set health metrics: %w", err)
	}
	m.UpdatedAt = now
	return nil
}

// AddReport records an uploaded health report.
func (r *HealthRepository) AddReport(ctx context.Context, report *models.HealthReport) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO health_reports (id, original_name, uploaded_at)
		VALUES ($1, $2, $3)
	`, report.ID, report.OriginalName, report.UploadedAt)
	if err != nil {
		return fmt.Errorf("add health report: %w", err)
	}
	return nil
}

// ListReports returns uploaded reports, newest first.
func (r *HealthRepository) ListReports(ctx context.Context) ([]*models.HealthReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, original_name, uploaded_at
		FROM health_reports
		ORDER BY uploaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list health reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.HealthReport
	for rows.Next() {
		report := &models.HealthReport{}
		if err := rows.Scan(&report.ID, &report.OriginalName, &report.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan health report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating health reports: %w", err)
	}

	return reports, nil
}

// DeleteReport removes an uploaded report by ID.
func (r *HealthRepository) DeleteReport(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM health_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete health report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetAnalysis retrieves the cached health analysis, or nil when no
// analysis has been generated yet.
func (r *HealthRepository) GetAnalysis(ctx context.Context, out any) (generatedAt time.Time, err error) {
	var raw []byte
	row := r.db.QueryRowContext(ctx, `
		SELECT analysis, generated_at
		FROM health_analysis_cache WHERE config_key = $1
	`, defaultHealthKey)
	if err := row.Scan(&raw, &generatedAt); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("get health analysis: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return time.Time{}, fmt.Errorf("unmarshal cached analysis: %w", err)
	}
	return generatedAt, nil
}

// SaveAnalysis upserts the cached health analysis.
func (r *HealthRepository) SaveAnalysis(ctx context.Context, analysis any) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO health_analysis_cache (config_key, analysis, generated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (config_key) DO UPDATE SET
			analysis = EXCLUDED.analysis,
			generated_at = EXCLUDED.generated_at
	`, defaultHealthKey, raw, time.Now())
	if err != nil {
		return fmt.Errorf("save health analysis: %w", err)
	}
	return nil
}
