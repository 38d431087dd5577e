package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/metrics"
	"github.com/lshigami/fluency/internal/model"
	"github.com/lshigami/fluency/internal/repository"
	"github.com/lshigami/fluency/internal/worker"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// Automated-path and manual-path states of a recording.
const (
	StateNeedsTranscription = "NEEDS_TRANSCRIPTION"
	StateNeedsAIEvaluation  = "NEEDS_AI_EVALUATION"
	StateHasAIEvaluation    = "HAS_AI_EVALUATION"
	StateNeedsManualScore   = "NEEDS_MANUAL_SCORE"
	StateHasManualScore     = "HAS_MANUAL_SCORE"
)

// TaskQueue accepts evaluation tasks for asynchronous processing.
type TaskQueue interface {
	Enqueue(ctx context.Context, task worker.Task) bool
}

// EvaluationService drives a recording through transcription, AI
// evaluation and LUS normalisation. All coordination between concurrent
// callers goes through the database: the transcription is written only
// if absent and the evaluation row is inserted only if absent.
type EvaluationService interface {
	// ProcessRecording runs whatever steps are still missing, synchronously.
	// External failures come back as an "error" status, not as an error;
	// the returned error is reserved for an unknown recording.
	ProcessRecording(ctx context.Context, recordingID uint) (*dto.ProcessResultDTO, error)
	// Schedule queues the recording for the worker pool unless it is
	// already evaluated.
	Schedule(ctx context.Context, recordingID uint) (*dto.ProcessResultDTO, error)
	// Reevaluate re-runs the language model and overwrites the stored row.
	Reevaluate(ctx context.Context, recordingID uint, retranscribe bool) (*dto.ProcessResultDTO, error)
	State(ctx context.Context, recordingID uint) (*dto.EvaluationStateDTO, error)
	RecordManualScore(ctx context.Context, recordingID uint, score int) (*dto.EvaluationStateDTO, error)
	HandleTask(ctx context.Context, task worker.Task)
}

type evaluationService struct {
	recordingRepo    repository.RecordingRepository
	passageRepo      repository.PassageRepository
	aiEvaluationRepo repository.AIEvaluationRepository
	transcription    TranscriptionService
	aiEvaluation     AIEvaluationService
	lusConverter     LUSConverterService
	queue            TaskQueue
	defaultLanguage  string
}

func NewEvaluationService(
	recordingRepo repository.RecordingRepository,
	passageRepo repository.PassageRepository,
	aiEvaluationRepo repository.AIEvaluationRepository,
	transcription TranscriptionService,
	aiEvaluation AIEvaluationService,
	lusConverter LUSConverterService,
	queue TaskQueue,
	defaultLanguage string,
) EvaluationService {
	return &evaluationService{
		recordingRepo:    recordingRepo,
		passageRepo:      passageRepo,
		aiEvaluationRepo: aiEvaluationRepo,
		transcription:    transcription,
		aiEvaluation:     aiEvaluation,
		lusConverter:     lusConverter,
		queue:            queue,
		defaultLanguage:  defaultLanguage,
	}
}

func (s *evaluationService) ProcessRecording(ctx context.Context, recordingID uint) (*dto.ProcessResultDTO, error) {
	recording, err := s.recordingRepo.FindByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("recording %d: %w", recordingID, err)
		}
		return failed(recordingID, err, true), nil
	}

	existing, err := s.aiEvaluationRepo.FindByRecordingID(ctx, recordingID)
	if err == nil {
		log.Debug().Uint("recordingID", recordingID).Msg("Recording already evaluated, returning stored result")
		return completed(existing), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return failed(recordingID, err, true), nil
	}

	passage, err := s.passageRepo.FindByID(ctx, recording.PassageID)
	if err != nil {
		log.Error().Err(err).Uint("recordingID", recordingID).Uint("passageID", recording.PassageID).Msg("ProcessRecording: Passage lookup failed")
		return failed(recordingID, err, !errors.Is(err, ErrNotFound)), nil
	}

	transcription, err := s.ensureTranscription(ctx, recording, passage, false)
	if err != nil {
		return failed(recordingID, err, IsTransient(err) || !isTyped(err)), nil
	}

	evaluation, err := s.evaluate(ctx, recordingID, transcription, passage.Text)
	if err != nil {
		return failed(recordingID, err, IsTransient(err) || !isTyped(err)), nil
	}

	stored, created, err := s.aiEvaluationRepo.InsertIfAbsent(ctx, evaluation)
	if err != nil {
		log.Error().Err(err).Uint("recordingID", recordingID).Msg("ProcessRecording: Failed to persist AI evaluation")
		return failed(recordingID, err, true), nil
	}
	if !created {
		// a concurrent run got there first; its row is the result
		log.Info().Uint("recordingID", recordingID).Msg("AI evaluation already written by a concurrent run, discarding duplicate")
		metrics.RecordEvaluation("duplicate")
		return completed(stored), nil
	}

	metrics.RecordEvaluation("complete")
	metrics.ObserveLUS(stored.LUSScore)
	log.Info().
		Uint("recordingID", recordingID).
		Int("lusScore", stored.LUSScore).
		Float64("confidence", stored.ConfidenceScore).
		Msg("Recording evaluated")
	return completed(stored), nil
}

func (s *evaluationService) Schedule(ctx context.Context, recordingID uint) (*dto.ProcessResultDTO, error) {
	recording, err := s.recordingRepo.FindByID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("recording %d: %w", recordingID, err)
	}

	existing, err := s.aiEvaluationRepo.FindByRecordingID(ctx, recordingID)
	if err == nil {
		return completed(existing), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return failed(recordingID, err, true), nil
	}

	task := worker.NewTask(recordingID)
	if !s.queue.Enqueue(ctx, task) {
		log.Warn().Uint("recordingID", recordingID).Msg("Evaluation queue rejected task")
		return failed(recordingID, errors.New("evaluation queue is full"), true), nil
	}
	log.Info().Uint("recordingID", recordingID).Str("taskID", task.ID).Msg("Evaluation scheduled")

	status := dto.StatusScheduledTranscription
	if recording.HasTranscription() {
		status = dto.StatusScheduledEvaluation
	}
	return &dto.ProcessResultDTO{RecordingID: recordingID, Status: status}, nil
}

func (s *evaluationService) HandleTask(ctx context.Context, task worker.Task) {
	result, err := s.ProcessRecording(ctx, task.RecordingID)
	if err != nil {
		log.Error().Err(err).Str("taskID", task.ID).Uint("recordingID", task.RecordingID).Msg("Evaluation task dropped")
		return
	}
	if result.Status == dto.StatusError {
		log.Warn().
			Str("taskID", task.ID).
			Uint("recordingID", task.RecordingID).
			Bool("retryable", result.Retryable).
			Str("error", result.Error).
			Msg("Evaluation task failed, waiting for re-trigger")
	}
}

func (s *evaluationService) Reevaluate(ctx context.Context, recordingID uint, retranscribe bool) (*dto.ProcessResultDTO, error) {
	recording, err := s.recordingRepo.FindByID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("recording %d: %w", recordingID, err)
	}
	passage, err := s.passageRepo.FindByID(ctx, recording.PassageID)
	if err != nil {
		return failed(recordingID, err, !errors.Is(err, ErrNotFound)), nil
	}

	transcription, err := s.ensureTranscription(ctx, recording, passage, retranscribe)
	if err != nil {
		return failed(recordingID, err, IsTransient(err) || !isTyped(err)), nil
	}

	evaluation, err := s.evaluate(ctx, recordingID, transcription, passage.Text)
	if err != nil {
		return failed(recordingID, err, IsTransient(err) || !isTyped(err)), nil
	}

	stored, err := s.aiEvaluationRepo.Overwrite(ctx, evaluation)
	if err != nil {
		log.Error().Err(err).Uint("recordingID", recordingID).Msg("Reevaluate: Failed to overwrite AI evaluation")
		return failed(recordingID, err, true), nil
	}
	metrics.RecordEvaluation("reevaluated")
	metrics.ObserveLUS(stored.LUSScore)
	log.Info().Uint("recordingID", recordingID).Int("lusScore", stored.LUSScore).Bool("retranscribed", retranscribe).Msg("Recording re-evaluated")
	return completed(stored), nil
}

func (s *evaluationService) State(ctx context.Context, recordingID uint) (*dto.EvaluationStateDTO, error) {
	recording, err := s.recordingRepo.FindByID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("recording %d: %w", recordingID, err)
	}

	state := &dto.EvaluationStateDTO{
		RecordingID:      recordingID,
		AutomatedState:   StateNeedsTranscription,
		ManualState:      StateNeedsManualScore,
		HasTranscription: recording.HasTranscription(),
		Transcription:    recording.Transcription,
		ManualScore:      recording.ManualScore,
	}
	if recording.HasManualScore() {
		state.ManualState = StateHasManualScore
	}
	if recording.HasTranscription() {
		state.AutomatedState = StateNeedsAIEvaluation
	}

	evaluation, err := s.aiEvaluationRepo.FindByRecordingID(ctx, recordingID)
	switch {
	case err == nil:
		state.AutomatedState = StateHasAIEvaluation
		state.Evaluation = toEvaluationDTO(evaluation)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("failed to load evaluation for recording %d: %w", recordingID, err)
	}
	return state, nil
}

func (s *evaluationService) RecordManualScore(ctx context.Context, recordingID uint, score int) (*dto.EvaluationStateDTO, error) {
	if score < MinLUSScore || score > MaxLUSScore {
		return nil, &ValidationError{Field: "score", Reason: fmt.Sprintf("must be between %d and %d, got %d", MinLUSScore, MaxLUSScore, score)}
	}
	if err := s.recordingRepo.SetManualScore(ctx, recordingID, score); err != nil {
		return nil, fmt.Errorf("recording %d: %w", recordingID, err)
	}
	log.Info().Uint("recordingID", recordingID).Int("score", score).Msg("Manual score recorded")
	return s.State(ctx, recordingID)
}

// ensureTranscription returns the durable transcription of the recording,
// calling the speech service only when there is none or force is set.
func (s *evaluationService) ensureTranscription(ctx context.Context, recording *model.Recording, passage *model.Passage, force bool) (string, error) {
	if recording.HasTranscription() && !force {
		return *recording.Transcription, nil
	}

	language := passage.Language
	if language == "" {
		language = s.defaultLanguage
	}

	start := time.Now()
	text, err := s.transcription.Transcribe(ctx, recording.AudioHandle, language)
	metrics.ObserveExternalCall("transcription", start, err)
	if err != nil {
		log.Error().Err(err).Uint("recordingID", recording.ID).Str("audioHandle", recording.AudioHandle).Msg("Transcription failed")
		return "", err
	}

	if force {
		if err := s.recordingRepo.ReplaceTranscription(ctx, recording.ID, text); err != nil {
			return "", fmt.Errorf("failed to store transcription: %w", err)
		}
		return text, nil
	}

	written, err := s.recordingRepo.SetTranscription(ctx, recording.ID, text)
	if err != nil {
		return "", fmt.Errorf("failed to store transcription: %w", err)
	}
	if written {
		return text, nil
	}

	// another run stored a transcription meanwhile; evaluate against that one
	current, err := s.recordingRepo.FindByID(ctx, recording.ID)
	if err != nil {
		return "", err
	}
	if !current.HasTranscription() {
		return "", fmt.Errorf("transcription of recording %d vanished", recording.ID)
	}
	return *current.Transcription, nil
}

func (s *evaluationService) evaluate(ctx context.Context, recordingID uint, transcription, expectedText string) (*model.AIEvaluation, error) {
	start := time.Now()
	result, err := s.aiEvaluation.Evaluate(ctx, transcription, expectedText)
	metrics.ObserveExternalCall("ai_evaluation", start, err)
	if err != nil {
		log.Error().Err(err).Uint("recordingID", recordingID).Msg("AI evaluation failed")
		return nil, err
	}
	if result.Warning.Partial() {
		metrics.RecordPartialParse()
	}

	evaluation := &model.AIEvaluation{
		RecordingID:     recordingID,
		Metrics:         result.Metrics,
		MissingMetrics:  result.Warning.String(),
		LUSScore:        s.lusConverter.Normalize(result.Metrics),
		ConfidenceScore: result.Confidence,
		ModelName:       result.ModelName,
		RawResponse:     result.RawResponse,
	}
	if len(result.Details) > 0 {
		details, err := json.Marshal(result.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metric details: %w", err)
		}
		evaluation.Details = datatypes.JSON(details)
	}
	return evaluation, nil
}

func isTyped(err error) bool {
	var te *TranscriptionError
	var ee *EvaluationError
	return errors.As(err, &te) || errors.As(err, &ee)
}

func completed(e *model.AIEvaluation) *dto.ProcessResultDTO {
	lus := e.LUSScore
	confidence := e.ConfidenceScore
	return &dto.ProcessResultDTO{
		RecordingID:     e.RecordingID,
		Status:          dto.StatusComplete,
		LUSScore:        &lus,
		ConfidenceScore: &confidence,
	}
}

func failed(recordingID uint, err error, retryable bool) *dto.ProcessResultDTO {
	metrics.RecordEvaluation("error")
	return &dto.ProcessResultDTO{
		RecordingID: recordingID,
		Status:      dto.StatusError,
		Error:       err.Error(),
		Retryable:   retryable,
	}
}

func toEvaluationDTO(e *model.AIEvaluation) *dto.AIEvaluationDTO {
	out := dto.AIEvaluationDTO{
		ID:              e.ID,
		RecordingID:     e.RecordingID,
		LUSScore:        e.LUSScore,
		ConfidenceScore: e.ConfidenceScore,
		ModelName:       e.ModelName,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
		Metrics: dto.MetricsDTO{
			Accuracy:      e.Metrics.Accuracy,
			Fluency:       e.Metrics.Fluency,
			Pronunciation: e.Metrics.Pronunciation,
			Speed:         e.Metrics.Speed,
			Comprehension: e.Metrics.Comprehension,
		},
	}
	if len(e.Details) > 0 {
		var details model.MetricDetails
		if err := json.Unmarshal(e.Details, &details); err != nil {
			log.Warn().Err(err).Uint("recordingID", e.RecordingID).Msg("Stored metric details are not valid JSON")
		} else {
			out.Details = details
		}
	}
	if e.MissingMetrics != "" {
		out.MissingMetrics = strings.Split(e.MissingMetrics, ",")
	}
	return &out
}
