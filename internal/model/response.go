package model

import "time"

// Response rows are written once per answered question and never updated.
type Response struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	AssessmentID uint      `json:"assessment_id" gorm:"not null;index"`
	RecordingID  uint      `json:"recording_id" gorm:"not null;index"`
	QuestionID   uint      `json:"question_id" gorm:"not null;index"`
	Question     Question  `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	UserAnswer   string    `json:"user_answer" gorm:"type:text;not null"`
	IsCorrect    bool      `json:"is_correct"`
	Score        float64   `json:"score"`
	Similarity   float64   `json:"similarity"`
	CreatedAt    time.Time `json:"created_at"`
}
