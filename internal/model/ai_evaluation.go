package model

import (
	"time"

	"gorm.io/datatypes"
)

// Metrics holds the five 0-100 reading sub-scores returned by the language model.
type Metrics struct {
	Accuracy      float64 `json:"accuracy"`
	Fluency       float64 `json:"fluency"`
	Pronunciation float64 `json:"pronunciation"`
	Speed         float64 `json:"speed"`
	Comprehension float64 `json:"comprehension"`
}

// MetricDetails maps a metric name to the observations the model made about it.
type MetricDetails map[string][]string

type AIEvaluation struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	RecordingID     uint           `json:"recording_id" gorm:"not null;uniqueIndex"`
	Metrics         Metrics        `json:"metrics" gorm:"embedded"`
	Details         datatypes.JSON `json:"details,omitempty"`
	MissingMetrics  string         `json:"missing_metrics,omitempty"` // comma separated, empty on a clean parse
	LUSScore        int            `json:"lus_score" gorm:"not null"`
	ConfidenceScore float64        `json:"confidence_score"`
	ModelName       string         `json:"model_name,omitempty"`
	RawResponse     string         `json:"-" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
