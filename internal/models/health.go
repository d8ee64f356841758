package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthMetrics holds the household's latest self-reported health metrics.
// Every field is optional; nil means the metric has never been recorded.
type HealthMetrics struct {
	SugarLevel             *float64  `json:"sugarLevel"`             // mg/dL
	Cholesterol            *float64  `json:"cholesterol"`            // mg/dL
	BloodPressureSystolic  *float64  `json:"bloodPressureSystolic"`  // mmHg
	BloodPressureDiastolic *float64  `json:"bloodPressureDiastolic"` // mmHg
	Weight                 *float64  `json:"weight"`                 // lbs
	Height                 *float64  `json:"height"`                 // inches
	UpdatedAt              time.Time `json:"updatedAt"`
}

// HealthReport records an uploaded health report whose text was submitted
// for metric extraction.
type HealthReport struct {
	ID           uuid.UUID `json:"id"`
	OriginalName string    `json:"originalName"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
