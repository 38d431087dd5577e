package dto

import "time"

// Statuses reported by the automated evaluation path.
const (
	StatusScheduledTranscription = "scheduled_transcription"
	StatusScheduledEvaluation    = "scheduled_evaluation"
	StatusComplete               = "complete"
	StatusError                  = "error"
)

type ProcessResultDTO struct {
	RecordingID     uint     `json:"recording_id"`
	Status          string   `json:"status"`
	LUSScore        *int     `json:"lus_score,omitempty"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	Error           string   `json:"error,omitempty"`
	Retryable       bool     `json:"retryable,omitempty"`
}

type MetricsDTO struct {
	Accuracy      float64 `json:"accuracy"`
	Fluency       float64 `json:"fluency"`
	Pronunciation float64 `json:"pronunciation"`
	Speed         float64 `json:"speed"`
	Comprehension float64 `json:"comprehension"`
}

type AIEvaluationDTO struct {
	ID              uint                `json:"id"`
	RecordingID     uint                `json:"recording_id"`
	Metrics         MetricsDTO          `json:"metrics"`
	Details         map[string][]string `json:"details,omitempty"`
	MissingMetrics  []string            `json:"missing_metrics,omitempty"`
	LUSScore        int                 `json:"lus_score"`
	ConfidenceScore float64             `json:"confidence_score"`
	ModelName       string              `json:"model_name,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// EvaluationStateDTO shows where a recording is on the automated path and
// on the manual grading path.
type EvaluationStateDTO struct {
	RecordingID      uint             `json:"recording_id"`
	AutomatedState   string           `json:"automated_state"`
	ManualState      string           `json:"manual_state"`
	HasTranscription bool             `json:"has_transcription"`
	Transcription    *string          `json:"transcription,omitempty"`
	ManualScore      *int             `json:"manual_score,omitempty"`
	Evaluation       *AIEvaluationDTO `json:"evaluation,omitempty"`
}

type ManualScoreRequestDTO struct {
	Score int `json:"score" binding:"required,min=1,max=20"`
}

type ReevaluateRequestDTO struct {
	Retranscribe bool `json:"retranscribe"`
}

type StatisticsDTO struct {
	EvaluatedRecordings    int64   `json:"evaluated_recordings"`
	AverageLUSScore        float64 `json:"average_lus_score"`
	AverageConfidence      float64 `json:"average_confidence"`
	Assessments            int64   `json:"assessments"`
	AverageNormalizedScore float64 `json:"average_normalized_score"`
}
