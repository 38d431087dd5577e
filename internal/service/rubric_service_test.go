package service

import (
	"context"
	"testing"

	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/model"
	"github.com/lshigami/fluency/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRubricService(db *gorm.DB) RubricService {
	return NewRubricService(
		repository.NewRecordingRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewAssessmentRepository(db),
		DefaultCorrectnessThreshold,
	)
}

func TestRubricService_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	passage := createPassage(t, db, "Hunden och katten.",
		model.Question{CorrectAnswer: "hund", Weight: 1},
		model.Question{CorrectAnswer: "katt", Weight: 2},
	)
	rec := createRecording(t, db, passage.ID)
	svc := newRubricService(db)

	got, err := svc.EvaluateAnswers(context.Background(), rec.ID, map[uint]string{
		passage.Questions[0].ID: "hund",
		passage.Questions[1].ID: "katt",
	})
	require.NoError(t, err)

	assert.Equal(t, 3.0, got.RawScore)
	assert.Equal(t, 3.0, got.TotalWeight)
	assert.Equal(t, 100.0, got.NormalizedScore)
	assert.Equal(t, 2, got.CorrectCount)
	assert.Equal(t, 2, got.TotalQuestions)
	assert.NotZero(t, got.AssessmentID)

	var responses []model.Response
	require.NoError(t, db.Where("assessment_id = ?", got.AssessmentID).Find(&responses).Error)
	require.Len(t, responses, 2)
	for _, r := range responses {
		assert.True(t, r.IsCorrect)
		assert.Equal(t, 100.0, r.Similarity)
	}
}

func TestRubricService_DenominatorUsesAnsweredWeightsOnly(t *testing.T) {
	db := newTestDB(t)
	passage := createPassage(t, db, "text",
		model.Question{CorrectAnswer: "ett", Weight: 1},
		model.Question{CorrectAnswer: "två", Weight: 2},
		model.Question{CorrectAnswer: "tre", Weight: 3},
	)
	rec := createRecording(t, db, passage.ID)

	got, err := newRubricService(db).EvaluateAnswers(context.Background(), rec.ID, map[uint]string{
		passage.Questions[1].ID: "två",
		passage.Questions[2].ID: "tre",
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, got.RawScore)
	assert.Equal(t, 5.0, got.TotalWeight)
	assert.Equal(t, 100.0, got.NormalizedScore)
	assert.Equal(t, 3, got.TotalQuestions)
}

func TestRubricService_NearMissScoresZero(t *testing.T) {
	db := newTestDB(t)
	passage := createPassage(t, db, "text",
		model.Question{CorrectAnswer: "elefanten", Weight: 4},
		model.Question{CorrectAnswer: "abcdefghij", Weight: 1},
	)
	rec := createRecording(t, db, passage.ID)

	got, err := newRubricService(db).EvaluateAnswers(context.Background(), rec.ID, map[uint]string{
		passage.Questions[0].ID: "elefant",    // 7/9 similar
		passage.Questions[1].ID: "abcdefghiX", // exactly 90
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, got.RawScore)
	assert.Equal(t, 5.0, got.TotalWeight)
	assert.InDelta(t, 20.0, got.NormalizedScore, 1e-9)
	assert.Equal(t, 1, got.CorrectCount)

	var miss model.Response
	require.NoError(t, db.Where("question_id = ?", passage.Questions[0].ID).First(&miss).Error)
	assert.False(t, miss.IsCorrect)
	assert.Zero(t, miss.Score)
	assert.InDelta(t, (1-2.0/9.0)*100, miss.Similarity, 1e-9)
}

func TestRubricService_EverySubmissionCreatesAnAssessment(t *testing.T) {
	db := newTestDB(t)
	passage := createPassage(t, db, "text", model.Question{CorrectAnswer: "hund", Weight: 1})
	rec := createRecording(t, db, passage.ID)
	svc := newRubricService(db)
	answers := map[uint]string{passage.Questions[0].ID: "hund"}

	first, err := svc.EvaluateAnswers(context.Background(), rec.ID, answers)
	require.NoError(t, err)
	second, err := svc.EvaluateAnswers(context.Background(), rec.ID, answers)
	require.NoError(t, err)

	assert.NotEqual(t, first.AssessmentID, second.AssessmentID)
	var count int64
	require.NoError(t, db.Model(&model.Assessment{}).Where("recording_id = ?", rec.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	latest, err := svc.LatestAssessment(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, second.AssessmentID, latest.ID)
	require.Len(t, latest.Responses, 1)
	assert.Equal(t, "Question 1", latest.Responses[0].QuestionText)
	assert.Equal(t, passage.Questions[0].ID, latest.Responses[0].QuestionID)
	assert.Equal(t, "hund", latest.Responses[0].UserAnswer)
	assert.True(t, latest.Responses[0].IsCorrect)
	assert.Equal(t, 100.0, latest.Responses[0].Similarity)
}

func TestRubricService_Validation(t *testing.T) {
	db := newTestDB(t)
	passage := createPassage(t, db, "text", model.Question{CorrectAnswer: "hund", Weight: 1})
	rec := createRecording(t, db, passage.ID)
	svc := newRubricService(db)

	_, err := svc.EvaluateAnswers(context.Background(), rec.ID, nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.EvaluateAnswers(context.Background(), rec.ID, map[uint]string{9999: "hund"})
	assert.ErrorAs(t, err, &ve)

	var count int64
	require.NoError(t, db.Model(&model.Assessment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRubricService_UnknownRecording(t *testing.T) {
	db := newTestDB(t)

	_, err := newRubricService(db).EvaluateAnswers(context.Background(), 42, map[uint]string{1: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnswersFromDTO(t *testing.T) {
	answers, err := AnswersFromDTO(dto.AssessmentSubmitDTO{Answers: []dto.AnswerDTO{
		{QuestionID: 1, UserAnswer: "hund"},
		{QuestionID: 2, UserAnswer: "katt"},
	}})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{1: "hund", 2: "katt"}, answers)

	_, err = AnswersFromDTO(dto.AssessmentSubmitDTO{Answers: []dto.AnswerDTO{
		{QuestionID: 1, UserAnswer: "hund"},
		{QuestionID: 1, UserAnswer: "katt"},
	}})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
