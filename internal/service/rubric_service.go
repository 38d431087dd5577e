package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/metrics"
	"github.com/lshigami/fluency/internal/model"
	"github.com/lshigami/fluency/internal/repository"
	"github.com/rs/zerolog/log"
)

// RubricService scores comprehension answers against a passage's questions.
type RubricService interface {
	// EvaluateAnswers creates a new assessment on every call; submissions are
	// never deduplicated.
	EvaluateAnswers(ctx context.Context, recordingID uint, answers map[uint]string) (*dto.AssessmentResultDTO, error)
	LatestAssessment(ctx context.Context, recordingID uint) (*dto.AssessmentDetailDTO, error)
}

type rubricService struct {
	recordingRepo  repository.RecordingRepository
	questionRepo   repository.QuestionRepository
	assessmentRepo repository.AssessmentRepository
	threshold      float64
}

func NewRubricService(
	recordingRepo repository.RecordingRepository,
	questionRepo repository.QuestionRepository,
	assessmentRepo repository.AssessmentRepository,
	threshold float64,
) RubricService {
	return &rubricService{
		recordingRepo:  recordingRepo,
		questionRepo:   questionRepo,
		assessmentRepo: assessmentRepo,
		threshold:      threshold,
	}
}

// AnswersFromDTO turns the request list into the map the aggregator works
// on. A question answered twice is rejected.
func AnswersFromDTO(req dto.AssessmentSubmitDTO) (map[uint]string, error) {
	answers := make(map[uint]string, len(req.Answers))
	for _, a := range req.Answers {
		if _, dup := answers[a.QuestionID]; dup {
			return nil, &ValidationError{Field: "answers", Reason: fmt.Sprintf("question %d answered more than once", a.QuestionID)}
		}
		answers[a.QuestionID] = a.UserAnswer
	}
	return answers, nil
}

func (s *rubricService) EvaluateAnswers(ctx context.Context, recordingID uint, answers map[uint]string) (*dto.AssessmentResultDTO, error) {
	if len(answers) == 0 {
		return nil, &ValidationError{Field: "answers", Reason: "at least one answer is required"}
	}

	recording, err := s.recordingRepo.FindByID(ctx, recordingID)
	if err != nil {
		log.Error().Err(err).Uint("recordingID", recordingID).Msg("EvaluateAnswers: Recording not found")
		return nil, fmt.Errorf("recording %d: %w", recordingID, err)
	}

	questions, err := s.questionRepo.FindByPassageID(ctx, recording.PassageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for passage %d: %w", recording.PassageID, err)
	}
	questionMap := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		questionMap[q.ID] = q
	}

	assessment := model.Assessment{
		RecordingID:    recordingID,
		TotalQuestions: len(questions),
	}

	// walk questions in passage order so responses are stored deterministically
	for _, question := range questions {
		userAnswer, answered := answers[question.ID]
		if !answered {
			continue
		}
		similarity := Similarity(question.CorrectAnswer, userAnswer)
		correct := IsCorrect(similarity, s.threshold)
		score := 0.0
		if correct {
			score = question.Weight
			assessment.CorrectCount++
		}
		assessment.TotalScore += score
		assessment.TotalWeight += question.Weight
		assessment.Responses = append(assessment.Responses, model.Response{
			RecordingID: recordingID,
			QuestionID:  question.ID,
			UserAnswer:  userAnswer,
			IsCorrect:   correct,
			Score:       score,
			Similarity:  similarity,
		})
	}
	for questionID := range answers {
		if _, exists := questionMap[questionID]; !exists {
			log.Warn().Uint("questionID", questionID).Uint("recordingID", recordingID).Msg("EvaluateAnswers: Answer for a question not part of this passage, skipping.")
		}
	}

	if len(assessment.Responses) == 0 {
		return nil, &ValidationError{Field: "answers", Reason: fmt.Sprintf("no answers match the questions of passage %d", recording.PassageID)}
	}

	if assessment.TotalWeight > 0 {
		assessment.NormalizedScore = assessment.TotalScore / assessment.TotalWeight * 100
	}
	assessment.CompletedAt = time.Now()

	if err := s.assessmentRepo.Create(ctx, &assessment); err != nil {
		log.Error().Err(err).Uint("recordingID", recordingID).Msg("EvaluateAnswers: Failed to persist assessment")
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	metrics.ObserveAssessment(assessment.NormalizedScore)

	log.Info().
		Uint("recordingID", recordingID).
		Uint("assessmentID", assessment.ID).
		Float64("normalizedScore", assessment.NormalizedScore).
		Int("correct", assessment.CorrectCount).
		Msg("Assessment completed")

	return &dto.AssessmentResultDTO{
		AssessmentID:    assessment.ID,
		RecordingID:     recordingID,
		RawScore:        assessment.TotalScore,
		TotalWeight:     assessment.TotalWeight,
		NormalizedScore: assessment.NormalizedScore,
		CorrectCount:    assessment.CorrectCount,
		TotalQuestions:  assessment.TotalQuestions,
		CompletedAt:     assessment.CompletedAt,
	}, nil
}

func (s *rubricService) LatestAssessment(ctx context.Context, recordingID uint) (*dto.AssessmentDetailDTO, error) {
	assessment, err := s.assessmentRepo.FindLatestByRecordingID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("latest assessment for recording %d: %w", recordingID, err)
	}

	var resp dto.AssessmentDetailDTO
	if err := copier.Copy(&resp, assessment); err != nil {
		log.Error().Err(err).Msg("LatestAssessment: Error copying assessment to DTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	resp.Responses = make([]dto.ResponseDTO, len(assessment.Responses))
	for i, r := range assessment.Responses {
		if err := copier.Copy(&resp.Responses[i], &r); err != nil {
			log.Error().Err(err).Uint("responseID", r.ID).Msg("LatestAssessment: Error copying response to DTO")
			return nil, fmt.Errorf("error preparing response data: %w", err)
		}
		resp.Responses[i].QuestionText = r.Question.QuestionText
	}
	return &resp, nil
}
