package dto

import "time"

// RecordingCreateDTO holds the form fields sent along with the audio file.
type RecordingCreateDTO struct {
	UserID          uint    `form:"user_id" binding:"required"`
	DurationSeconds float64 `form:"duration_seconds" binding:"gte=0"`
}

type RecordingDTO struct {
	ID              uint      `json:"id"`
	PassageID       uint      `json:"passage_id"`
	UserID          uint      `json:"user_id"`
	AudioHandle     string    `json:"audio_handle"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}
