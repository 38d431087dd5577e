package dto

import "time"

// AnswerDTO is one answer to a comprehension question.
type AnswerDTO struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	UserAnswer string `json:"user_answer"`
}

// AssessmentSubmitDTO is the request body for scoring a set of answers.
type AssessmentSubmitDTO struct {
	Answers []AnswerDTO `json:"answers" binding:"required,min=1,dive"`
}

type AssessmentResultDTO struct {
	AssessmentID    uint      `json:"assessment_id"`
	RecordingID     uint      `json:"recording_id"`
	RawScore        float64   `json:"raw_score"`
	TotalWeight     float64   `json:"total_weight"`
	NormalizedScore float64   `json:"normalized_score"`
	CorrectCount    int       `json:"correct_count"`
	TotalQuestions  int       `json:"total_questions"`
	CompletedAt     time.Time `json:"completed_at"`
}

type ResponseDTO struct {
	ID           uint    `json:"id"`
	QuestionID   uint    `json:"question_id"`
	QuestionText string  `json:"question_text,omitempty"`
	UserAnswer   string  `json:"user_answer"`
	IsCorrect    bool    `json:"is_correct"`
	Score        float64 `json:"score"`
	Similarity   float64 `json:"similarity"`
}

type AssessmentDetailDTO struct {
	ID              uint          `json:"id"`
	RecordingID     uint          `json:"recording_id"`
	TotalScore      float64       `json:"total_score"`
	TotalWeight     float64       `json:"total_weight"`
	NormalizedScore float64       `json:"normalized_score"`
	CorrectCount    int           `json:"correct_count"`
	TotalQuestions  int           `json:"total_questions"`
	CompletedAt     time.Time     `json:"completed_at"`
	Responses       []ResponseDTO `json:"responses"`
}
