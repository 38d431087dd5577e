package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const evaluationInstruction = `You are an experienced reading teacher assessing a student who read a passage aloud.
You receive the passage the student was asked to read and an automatic transcription of what they actually said.
Judge the reading on five criteria, each scored as an integer from 0 to 100:
- accuracy: words read correctly compared with the passage (omissions, substitutions, insertions).
- fluency: smoothness and phrasing, absence of hesitations and restarts.
- pronunciation: how clearly and correctly words are pronounced, as far as the transcription reveals.
- speed: whether the reading pace is appropriate for the text.
- comprehension: whether the reading suggests the student understood the text (intonation at punctuation, sensible phrasing).
Also give your confidence in this assessment as an integer from 0 to 100.

Answer strictly in this format, one item per line:
accuracy: <0-100>
fluency: <0-100>
pronunciation: <0-100>
speed: <0-100>
comprehension: <0-100>
confidence: <0-100>
accuracy_details: <observation>; <observation>
fluency_details: <observation>; <observation>
pronunciation_details: <observation>; <observation>
speed_details: <observation>; <observation>
comprehension_details: <observation>; <observation>`

// AIEvaluation is the outcome of one language-model assessment.
type AIEvaluation struct {
	Rubric
	ModelName   string
	RawResponse string
}

// AIEvaluationService compares a transcription against the expected text
// using a language model.
type AIEvaluationService interface {
	Evaluate(ctx context.Context, transcription, expectedText string) (*AIEvaluation, error)
}

type aiEvaluationService struct {
	llm     LanguageModel
	timeout time.Duration
}

func NewAIEvaluationService(llm LanguageModel, timeout time.Duration) AIEvaluationService {
	return &aiEvaluationService{llm: llm, timeout: timeout}
}

func buildEvaluationPrompt(transcription, expectedText string) string {
	var b strings.Builder
	b.WriteString("Passage the student was asked to read:\n---\n")
	b.WriteString(strings.TrimSpace(expectedText))
	b.WriteString("\n---\n\n")
	b.WriteString("Transcription of the student's reading:\n---\n")
	b.WriteString(strings.TrimSpace(transcription))
	b.WriteString("\n---\n")
	return b.String()
}

func (s *aiEvaluationService) Evaluate(ctx context.Context, transcription, expectedText string) (*AIEvaluation, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.llm.Generate(ctx, evaluationInstruction, buildEvaluationPrompt(transcription, expectedText))
	if err != nil {
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			return nil, err
		}
		return nil, &EvaluationError{Transient: true, Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &EvaluationError{Transient: true, Err: errors.New("empty response from language model")}
	}

	rubric := ParseRubric(raw)
	if rubric.Warning.Partial() {
		log.Warn().
			Str("model", s.llm.Name()).
			Strs("missingMetrics", rubric.Warning.Missing).
			Msg("AI evaluation response was only partially parsed, missing values default to 0")
	}

	return &AIEvaluation{Rubric: rubric, ModelName: s.llm.Name(), RawResponse: raw}, nil
}

