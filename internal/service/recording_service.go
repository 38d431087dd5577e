package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jinzhu/copier"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/model"
	"github.com/lshigami/fluency/internal/objectstore"
	"github.com/lshigami/fluency/internal/repository"
	"github.com/rs/zerolog/log"
)

// RecordingService stores uploaded readings. The audio goes to the blob
// store and the row keeps only the handle.
type RecordingService interface {
	CreateRecording(ctx context.Context, passageID uint, req dto.RecordingCreateDTO, audio []byte, filename, contentType string) (*dto.RecordingDTO, error)
	DeleteRecording(ctx context.Context, recordingID uint) error
}

type recordingService struct {
	passageRepo   repository.PassageRepository
	recordingRepo repository.RecordingRepository
	blobs         objectstore.BlobStore
}

func NewRecordingService(passageRepo repository.PassageRepository, recordingRepo repository.RecordingRepository, blobs objectstore.BlobStore) RecordingService {
	return &recordingService{passageRepo: passageRepo, recordingRepo: recordingRepo, blobs: blobs}
}

func (s *recordingService) CreateRecording(ctx context.Context, passageID uint, req dto.RecordingCreateDTO, audio []byte, filename, contentType string) (*dto.RecordingDTO, error) {
	if len(audio) == 0 {
		return nil, &ValidationError{Field: "audio", Reason: "audio file is empty"}
	}
	if _, err := s.passageRepo.FindByID(ctx, passageID); err != nil {
		return nil, fmt.Errorf("passage %d: %w", passageID, err)
	}

	handle, err := s.blobs.Put(ctx, audio, contentType, filepath.Ext(filename))
	if err != nil {
		log.Error().Err(err).Uint("passageID", passageID).Msg("CreateRecording: Audio upload failed")
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	recording := model.Recording{
		PassageID:       passageID,
		UserID:          req.UserID,
		AudioHandle:     handle,
		DurationSeconds: req.DurationSeconds,
	}
	if err := s.recordingRepo.Create(ctx, &recording); err != nil {
		// the uploaded object is left behind; it is unreachable without a row
		log.Error().Err(err).Str("audioHandle", handle).Msg("CreateRecording: Failed to persist recording")
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	log.Info().Uint("recordingID", recording.ID).Uint("passageID", passageID).Uint("userID", req.UserID).Msg("Recording stored")

	var resp dto.RecordingDTO
	copier.Copy(&resp, &recording)
	return &resp, nil
}

func (s *recordingService) DeleteRecording(ctx context.Context, recordingID uint) error {
	if err := s.recordingRepo.Delete(ctx, recordingID); err != nil {
		return fmt.Errorf("recording %d: %w", recordingID, err)
	}
	log.Info().Uint("recordingID", recordingID).Msg("Recording deleted")
	return nil
}
