package model

import "time"

type Assessment struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	RecordingID     uint       `json:"recording_id" gorm:"not null;index"`
	TotalScore      float64    `json:"total_score"`
	TotalWeight     float64    `json:"total_weight"`
	NormalizedScore float64    `json:"normalized_score"`
	CorrectCount    int        `json:"correct_count"`
	TotalQuestions  int        `json:"total_questions"`
	CompletedAt     time.Time  `json:"completed_at" gorm:"not null;index"`
	Responses       []Response `json:"responses,omitempty" gorm:"foreignKey:AssessmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt       time.Time  `json:"created_at"`
}
