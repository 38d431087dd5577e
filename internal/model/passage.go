package model

import (
	"time"

	"gorm.io/gorm"
)

type Passage struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Title     string         `json:"title" gorm:"not null"`
	Text      string         `json:"text" gorm:"type:text;not null"`
	Language  string         `json:"language,omitempty"` // BCP-47 hint for transcription, e.g. "sv-SE"
	Questions []Question     `json:"questions,omitempty" gorm:"foreignKey:PassageID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
