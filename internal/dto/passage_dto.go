package dto

import "time"

type QuestionCreateDTO struct {
	QuestionText   string  `json:"question_text" binding:"required"`
	CorrectAnswer  string  `json:"correct_answer" binding:"required"`
	Weight         float64 `json:"weight" binding:"required,gt=0"`
	OrderInPassage int     `json:"order_in_passage" binding:"required,min=1"`
}

// PassageCreateDTO is the admin payload for a passage and its comprehension questions.
type PassageCreateDTO struct {
	Title     string              `json:"title" binding:"required"`
	Text      string              `json:"text" binding:"required"`
	Language  string              `json:"language"`
	Questions []QuestionCreateDTO `json:"questions" binding:"dive"`
}

// QuestionDTO never carries the correct answer.
type QuestionDTO struct {
	ID             uint    `json:"id"`
	QuestionText   string  `json:"question_text"`
	Weight         float64 `json:"weight"`
	OrderInPassage int     `json:"order_in_passage"`
}

type PassageDTO struct {
	ID        uint          `json:"id"`
	Title     string        `json:"title"`
	Text      string        `json:"text"`
	Language  string        `json:"language,omitempty"`
	Questions []QuestionDTO `json:"questions"`
	CreatedAt time.Time     `json:"created_at"`
}

type PassageSummaryDTO struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Language      string    `json:"language,omitempty"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}
