package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lshigami/fluency/internal/objectstore"
	"github.com/rs/zerolog/log"
)

// Transcriber is a speech-to-text backend.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error)
}

// TranscriptionService turns a stored audio handle into text. It performs a
// single bounded attempt; retrying is left to whoever triggered it.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audioHandle, languageCode string) (string, error)
}

type transcriptionService struct {
	blobs       objectstore.BlobStore
	transcriber Transcriber
	timeout     time.Duration
}

func NewTranscriptionService(blobs objectstore.BlobStore, transcriber Transcriber, timeout time.Duration) TranscriptionService {
	return &transcriptionService{blobs: blobs, transcriber: transcriber, timeout: timeout}
}

func (s *transcriptionService) Transcribe(ctx context.Context, audioHandle, languageCode string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	audio, err := s.blobs.Get(ctx, audioHandle)
	if err != nil {
		return "", &TranscriptionError{Transient: !errors.Is(err, objectstore.ErrObjectNotFound), Err: err}
	}
	if len(audio) == 0 {
		return "", &TranscriptionError{Err: errors.New("audio blob is empty")}
	}

	start := time.Now()
	text, err := s.transcriber.Transcribe(ctx, audio, languageCode)
	if err != nil {
		var te *TranscriptionError
		if errors.As(err, &te) {
			return "", err
		}
		return "", &TranscriptionError{Transient: true, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &TranscriptionError{Err: errors.New("no speech recognised in audio")}
	}

	log.Debug().
		Str("audioHandle", audioHandle).
		Str("language", languageCode).
		Dur("latency", time.Since(start)).
		Int("chars", len(text)).
		Msg("Audio transcribed")
	return text, nil
}
