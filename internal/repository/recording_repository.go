package repository

import (
	"context"
	"time"

	"github.com/lshigami/fluency/internal/model"
	"gorm.io/gorm"
)

type RecordingRepository interface {
	Create(ctx context.Context, recording *model.Recording) error
	// Delete soft-deletes the recording; its assessments and evaluation
	// stay in place but drop out of statistics.
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Recording, error)
	// SetTranscription stores text only if the recording has none yet.
	// It reports whether this call was the one that wrote it.
	SetTranscription(ctx context.Context, id uint, text string) (bool, error)
	ReplaceTranscription(ctx context.Context, id uint, text string) error
	SetManualScore(ctx context.Context, id uint, score int) error
}

type recordingRepository struct {
	db *gorm.DB
}

func NewRecordingRepository(db *gorm.DB) RecordingRepository {
	return &recordingRepository{db: db}
}

func (r *recordingRepository) Create(ctx context.Context, recording *model.Recording) error {
	return r.db.WithContext(ctx).Create(recording).Error
}

func (r *recordingRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Recording{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordingRepository) FindByID(ctx context.Context, id uint) (*model.Recording, error) {
	var recording model.Recording
	if err := r.db.WithContext(ctx).First(&recording, id).Error; err != nil {
		return nil, translate(err)
	}
	return &recording, nil
}

func (r *recordingRepository) SetTranscription(ctx context.Context, id uint, text string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Recording{}).
		Where("id = ? AND transcription IS NULL", id).
		Updates(map[string]any{"transcription": text, "transcribed_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *recordingRepository) ReplaceTranscription(ctx context.Context, id uint, text string) error {
	return r.update(ctx, id, map[string]any{"transcription": text, "transcribed_at": time.Now()})
}

func (r *recordingRepository) SetManualScore(ctx context.Context, id uint, score int) error {
	return r.update(ctx, id, map[string]any{"manual_score": score, "manual_scored_at": time.Now()})
}

func (r *recordingRepository) update(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.Recording{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
