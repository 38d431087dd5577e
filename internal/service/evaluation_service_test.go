package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/fluency/config"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/model"
	"github.com/lshigami/fluency/internal/repository"
	"github.com/lshigami/fluency/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	// every metric at 80 gives a weighted score of 80 and LUS 18
	rubricAt80 = "accuracy: 80\nfluency: 80\npronunciation: 80\nspeed: 80\ncomprehension: 80\nconfidence: 85\naccuracy_details: skipped \"och\""
	// every metric at 20 gives LUS 9
	rubricAt20 = "accuracy: 20\nfluency: 20\npronunciation: 20\nspeed: 20\ncomprehension: 20\nconfidence: 60"
)

type evaluationFixture struct {
	db          *gorm.DB
	svc         EvaluationService
	transcriber *fakeTranscriber
	llm         *fakeLLM
	queue       *fakeQueue
	recording   *model.Recording
}

func newEvaluationFixture(t *testing.T) *evaluationFixture {
	t.Helper()
	db := newTestDB(t)
	passage := createPassage(t, db, "Hunden och katten leker i trädgården.")
	rec := createRecording(t, db, passage.ID)

	f := &evaluationFixture{
		db:          db,
		transcriber: &fakeTranscriber{text: "hunden katten leker i trädgården"},
		llm:         &fakeLLM{responses: []string{rubricAt80}},
		queue:       &fakeQueue{},
		recording:   rec,
	}
	blobs := &fakeBlobStore{objects: map[string][]byte{rec.AudioHandle: []byte("RIFF....WAVE")}}
	f.svc = NewEvaluationService(
		repository.NewRecordingRepository(db),
		repository.NewPassageRepository(db),
		repository.NewAIEvaluationRepository(db),
		NewTranscriptionService(blobs, f.transcriber, time.Second),
		NewAIEvaluationService(f.llm, time.Second),
		NewLUSConverterService(config.DefaultLUSWeights()),
		f.queue,
		"en-US",
	)
	return f
}

func (f *evaluationFixture) evaluationCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.AIEvaluation{}).Where("recording_id = ?", f.recording.ID).Count(&count).Error)
	return count
}

func (f *evaluationFixture) reloadRecording(t *testing.T) *model.Recording {
	t.Helper()
	var rec model.Recording
	require.NoError(t, f.db.First(&rec, f.recording.ID).Error)
	return &rec
}

func TestEvaluationService_ProcessRecording(t *testing.T) {
	f := newEvaluationFixture(t)

	result, err := f.svc.ProcessRecording(context.Background(), f.recording.ID)
	require.NoError(t, err)

	require.Equal(t, dto.StatusComplete, result.Status)
	require.NotNil(t, result.LUSScore)
	assert.Equal(t, 18, *result.LUSScore)
	assert.Equal(t, 85.0, *result.ConfidenceScore)
	assert.Contains(t, f.llm.lastPrompt, "Hunden och katten leker i trädgården.")
	assert.Contains(t, f.llm.lastPrompt, "hunden katten leker i trädgården")

	rec := f.reloadRecording(t)
	require.True(t, rec.HasTranscription())
	assert.Equal(t, "hunden katten leker i trädgården", *rec.Transcription)

	var stored model.AIEvaluation
	require.NoError(t, f.db.Where("recording_id = ?", f.recording.ID).First(&stored).Error)
	assert.Equal(t, 18, stored.LUSScore)
	assert.Equal(t, "fake-model", stored.ModelName)
	assert.Empty(t, stored.MissingMetrics)
	assert.JSONEq(t, `{"accuracy":["skipped \"och\""]}`, string(stored.Details))
}

func TestEvaluationService_ProcessRecordingIsIdempotent(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()

	first, err := f.svc.ProcessRecording(ctx, f.recording.ID)
	require.NoError(t, err)
	second, err := f.svc.ProcessRecording(ctx, f.recording.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, f.transcriber.calls.Load())
	assert.EqualValues(t, 1, f.llm.calls.Load())
	assert.EqualValues(t, 1, f.evaluationCount(t))
}

func TestEvaluationService_TranscriptionFailureLeavesStateUnchanged(t *testing.T) {
	f := newEvaluationFixture(t)
	f.transcriber.err = errors.New("connection reset")

	result, err := f.svc.ProcessRecording(context.Background(), f.recording.ID)
	require.NoError(t, err)

	assert.Equal(t, dto.StatusError, result.Status)
	assert.True(t, result.Retryable)
	assert.Nil(t, result.LUSScore)
	assert.NotEmpty(t, result.Error)
	assert.False(t, f.reloadRecording(t).HasTranscription())
	assert.Zero(t, f.llm.calls.Load())
	assert.Zero(t, f.evaluationCount(t))
}

func TestEvaluationService_MissingAudioIsNotRetryable(t *testing.T) {
	f := newEvaluationFixture(t)
	require.NoError(t, f.db.Model(&model.Recording{}).Where("id = ?", f.recording.ID).
		Update("audio_handle", "audio/gone.wav").Error)

	result, err := f.svc.ProcessRecording(context.Background(), f.recording.ID)
	require.NoError(t, err)

	assert.Equal(t, dto.StatusError, result.Status)
	assert.False(t, result.Retryable)
	assert.Zero(t, f.transcriber.calls.Load())
}

func TestEvaluationService_EvaluationFailureKeepsTranscription(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()
	f.llm.err = &EvaluationError{Transient: true, Err: errors.New("503 from model")}

	result, err := f.svc.ProcessRecording(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusError, result.Status)
	assert.True(t, result.Retryable)
	assert.True(t, f.reloadRecording(t).HasTranscription())
	assert.Zero(t, f.evaluationCount(t))

	f.llm.err = nil
	result, err = f.svc.ProcessRecording(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusComplete, result.Status)
	assert.EqualValues(t, 1, f.transcriber.calls.Load(), "stored transcription must be reused")
	assert.EqualValues(t, 1, f.evaluationCount(t))
}

func TestEvaluationService_PartialResponseIsStillComplete(t *testing.T) {
	f := newEvaluationFixture(t)
	f.llm.responses = []string{"accuracy: 100\nfluency: 100"}

	result, err := f.svc.ProcessRecording(context.Background(), f.recording.ID)
	require.NoError(t, err)
	require.Equal(t, dto.StatusComplete, result.Status)

	// accuracy and fluency carry 60% of the weight
	assert.Equal(t, 16, *result.LUSScore)
	var stored model.AIEvaluation
	require.NoError(t, f.db.Where("recording_id = ?", f.recording.ID).First(&stored).Error)
	assert.Equal(t, "pronunciation,speed,comprehension,confidence", stored.MissingMetrics)
}

func TestEvaluationService_ConcurrentRunsStoreOneEvaluation(t *testing.T) {
	f := newEvaluationFixture(t)

	// hold both runs inside the model call so they race on the insert
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.llm.before = func(context.Context) {
		arrived.Done()
		arrived.Wait()
	}

	results := make([]*dto.ProcessResultDTO, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.ProcessRecording(context.Background(), f.recording.ID)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		require.Equal(t, dto.StatusComplete, res.Status)
	}
	assert.Equal(t, *results[0].LUSScore, *results[1].LUSScore)
	assert.EqualValues(t, 2, f.llm.calls.Load())
	assert.EqualValues(t, 1, f.evaluationCount(t))
}

func TestEvaluationService_Reevaluate(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()
	f.llm.responses = []string{rubricAt80, rubricAt20, rubricAt20}

	_, err := f.svc.ProcessRecording(ctx, f.recording.ID)
	require.NoError(t, err)

	result, err := f.svc.Reevaluate(ctx, f.recording.ID, false)
	require.NoError(t, err)
	require.Equal(t, dto.StatusComplete, result.Status)
	assert.Equal(t, 9, *result.LUSScore)
	assert.EqualValues(t, 1, f.evaluationCount(t))
	assert.EqualValues(t, 1, f.transcriber.calls.Load())

	f.transcriber.text = "hunden och katten leker"
	_, err = f.svc.Reevaluate(ctx, f.recording.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.transcriber.calls.Load())
	assert.Equal(t, "hunden och katten leker", *f.reloadRecording(t).Transcription)
	assert.EqualValues(t, 1, f.evaluationCount(t))

	state, err := f.svc.State(ctx, f.recording.ID)
	require.NoError(t, err)
	require.NotNil(t, state.Evaluation)
	assert.Equal(t, 9, state.Evaluation.LUSScore)
}

func TestEvaluationService_Schedule(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()

	result, err := f.svc.Schedule(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusScheduledTranscription, result.Status)
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, f.recording.ID, f.queue.tasks[0].RecordingID)

	_, err = repository.NewRecordingRepository(f.db).SetTranscription(ctx, f.recording.ID, "hunden")
	require.NoError(t, err)
	result, err = f.svc.Schedule(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusScheduledEvaluation, result.Status)

	f.queue.reject = true
	result, err = f.svc.Schedule(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusError, result.Status)
	assert.True(t, result.Retryable)

	f.queue.reject = false
	f.svc.HandleTask(ctx, f.queue.tasks[0])
	result, err = f.svc.Schedule(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusComplete, result.Status)
	assert.Len(t, f.queue.tasks, 2)
	assert.Zero(t, f.transcriber.calls.Load())
}

func TestEvaluationService_State(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()

	state, err := f.svc.State(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, StateNeedsTranscription, state.AutomatedState)
	assert.Equal(t, StateNeedsManualScore, state.ManualState)
	assert.Nil(t, state.Evaluation)

	f.llm.err = errors.New("model down")
	_, err = f.svc.ProcessRecording(ctx, f.recording.ID)
	require.NoError(t, err)
	state, err = f.svc.State(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, StateNeedsAIEvaluation, state.AutomatedState)
	assert.True(t, state.HasTranscription)

	f.llm.err = nil
	_, err = f.svc.ProcessRecording(ctx, f.recording.ID)
	require.NoError(t, err)
	state, err = f.svc.State(ctx, f.recording.ID)
	require.NoError(t, err)
	assert.Equal(t, StateHasAIEvaluation, state.AutomatedState)
	require.NotNil(t, state.Evaluation)
	assert.Equal(t, 80.0, state.Evaluation.Metrics.Accuracy)
	assert.Equal(t, []string{`skipped "och"`}, state.Evaluation.Details["accuracy"])
}

func TestEvaluationService_RecordManualScore(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()

	for _, score := range []int{0, 21, -3} {
		_, err := f.svc.RecordManualScore(ctx, f.recording.ID, score)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, "score %d", score)
	}
	assert.False(t, f.reloadRecording(t).HasManualScore())

	state, err := f.svc.RecordManualScore(ctx, f.recording.ID, 14)
	require.NoError(t, err)
	assert.Equal(t, StateHasManualScore, state.ManualState)
	require.NotNil(t, state.ManualScore)
	assert.Equal(t, 14, *state.ManualScore)
	// the manual path does not touch the automated one
	assert.Equal(t, StateNeedsTranscription, state.AutomatedState)
}

func TestEvaluationService_UnknownRecording(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProcessRecording(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Schedule(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Reevaluate(ctx, 999, false)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.State(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.RecordManualScore(ctx, 999, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	f.svc.HandleTask(ctx, worker.NewTask(999))
	assert.Zero(t, f.transcriber.calls.Load())
}

func TestToEvaluationDTO(t *testing.T) {
	stored := &model.AIEvaluation{
		ID:              3,
		RecordingID:     11,
		Metrics:         model.Metrics{Accuracy: 81, Fluency: 72, Pronunciation: 63, Speed: 54, Comprehension: 45},
		Details:         []byte(`{"speed":["slow start"]}`),
		MissingMetrics:  "confidence",
		LUSScore:        15,
		ConfidenceScore: 0,
		ModelName:       "fake-model",
	}

	got := toEvaluationDTO(stored)

	assert.Equal(t, dto.MetricsDTO{Accuracy: 81, Fluency: 72, Pronunciation: 63, Speed: 54, Comprehension: 45}, got.Metrics)
	assert.Equal(t, []string{"slow start"}, got.Details["speed"])
	assert.Equal(t, []string{"confidence"}, got.MissingMetrics)
	assert.Equal(t, uint(11), got.RecordingID)
	assert.Equal(t, 15, got.LUSScore)
}
