package model

import (
	"time"

	"gorm.io/gorm"
)

type Recording struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	PassageID       uint           `json:"passage_id" gorm:"not null;index"`
	Passage         Passage        `json:"passage,omitempty" gorm:"foreignKey:PassageID"`
	UserID          uint           `json:"user_id" gorm:"not null;index"`
	AudioHandle     string         `json:"audio_handle" gorm:"not null"`
	DurationSeconds float64        `json:"duration_seconds"`
	Transcription   *string        `json:"transcription,omitempty" gorm:"type:text"`
	TranscribedAt   *time.Time     `json:"transcribed_at,omitempty"`
	ManualScore     *int           `json:"manual_score,omitempty"` // 1-20, set by a grader
	ManualScoredAt  *time.Time     `json:"manual_scored_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Recording) HasTranscription() bool {
	return r.Transcription != nil
}

func (r *Recording) HasManualScore() bool {
	return r.ManualScore != nil
}
