package model

import (
	"time"

	"gorm.io/gorm"
)

type Question struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	PassageID      uint           `json:"passage_id" gorm:"not null;index"`
	QuestionText   string         `json:"question_text" gorm:"type:text;not null"`
	CorrectAnswer  string         `json:"correct_answer" gorm:"type:text;not null"`
	Weight         float64        `json:"weight" gorm:"not null;default:1"`
	OrderInPassage int            `json:"order_in_passage"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
