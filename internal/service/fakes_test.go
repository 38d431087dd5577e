package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lshigami/fluency/config"
	"github.com/lshigami/fluency/internal/model"
	"github.com/lshigami/fluency/internal/objectstore"
	"github.com/lshigami/fluency/internal/worker"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (f *fakeBlobStore) Put(_ context.Context, data []byte, _, extension string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	handle := fmt.Sprintf("audio/%d%s", len(f.objects)+1, extension)
	f.objects[handle] = data
	return handle, nil
}

func (f *fakeBlobStore) Get(_ context.Context, handle string) ([]byte, error) {
	f.mu.Lock()
	data, ok := f.objects[handle]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrObjectNotFound, handle)
	}
	return data, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     atomic.Int32
	// before runs at the start of every Generate call when set
	before func(ctx context.Context)

	lastSystem string
	lastPrompt string
}

func (f *fakeLLM) Name() string { return "fake-model" }

func (f *fakeLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	n := int(f.calls.Add(1))
	if f.before != nil {
		f.before(ctx)
	}
	f.mu.Lock()
	f.lastSystem, f.lastPrompt = system, prompt
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	if n > len(f.responses) {
		n = len(f.responses)
	}
	return f.responses[n-1], nil
}

type fakeQueue struct {
	mu     sync.Mutex
	reject bool
	tasks  []worker.Task
}

func (f *fakeQueue) Enqueue(_ context.Context, task worker.Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false
	}
	f.tasks = append(f.tasks, task)
	return true
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Passage{},
		&model.Question{},
		&model.Recording{},
		&model.Assessment{},
		&model.Response{},
		&model.AIEvaluation{},
	))
	return db
}

func createPassage(t *testing.T, db *gorm.DB, text string, questions ...model.Question) *model.Passage {
	t.Helper()
	for i := range questions {
		questions[i].OrderInPassage = i + 1
		if questions[i].QuestionText == "" {
			questions[i].QuestionText = fmt.Sprintf("Question %d", i+1)
		}
	}
	passage := &model.Passage{Title: "Passage", Text: text, Language: "sv-SE", Questions: questions}
	require.NoError(t, db.Create(passage).Error)
	return passage
}

func createRecording(t *testing.T, db *gorm.DB, passageID uint) *model.Recording {
	t.Helper()
	rec := &model.Recording{PassageID: passageID, UserID: 1, AudioHandle: "audio/reading.wav", DurationSeconds: 20}
	require.NoError(t, db.Create(rec).Error)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{
		Gemini: config.Gemini{Model: "gemini-1.5-flash"},
		Speech: config.Speech{Provider: "http", Model: "whisper-1"},
		Evaluation: config.Evaluation{
			TranscriptionTimeout: 60 * time.Second,
			EvaluationTimeout:    30 * time.Second,
			DefaultLanguage:      "en-US",
			CorrectnessThreshold: DefaultCorrectnessThreshold,
			Weights:              config.DefaultLUSWeights(),
		},
	}
}
