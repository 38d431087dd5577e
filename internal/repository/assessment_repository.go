package repository

import (
	"context"

	"github.com/lshigami/fluency/internal/model"
	"gorm.io/gorm"
)

type AssessmentStats struct {
	Count                  int64   `json:"count"`
	AverageNormalizedScore float64 `json:"average_normalized_score"`
}

type AssessmentRepository interface {
	// Create inserts the assessment and its responses in one transaction.
	Create(ctx context.Context, assessment *model.Assessment) error
	FindLatestByRecordingID(ctx context.Context, recordingID uint) (*model.Assessment, error)
	Stats(ctx context.Context) (AssessmentStats, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) Create(ctx context.Context, assessment *model.Assessment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(assessment).Error
	})
}

func (r *assessmentRepository) FindLatestByRecordingID(ctx context.Context, recordingID uint) (*model.Assessment, error) {
	var assessment model.Assessment
	err := r.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("responses.id ASC")
		}).
		Preload("Responses.Question").
		Where("recording_id = ?", recordingID).
		Order("completed_at DESC, id DESC").
		First(&assessment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &assessment, nil
}

// Stats ignores assessments whose recording has been deleted.
func (r *assessmentRepository) Stats(ctx context.Context) (AssessmentStats, error) {
	var stats AssessmentStats
	err := r.db.WithContext(ctx).Model(&model.Assessment{}).
		Select("COUNT(assessments.id) AS count, COALESCE(AVG(assessments.normalized_score), 0) AS average_normalized_score").
		Joins("JOIN recordings ON recordings.id = assessments.recording_id AND recordings.deleted_at IS NULL").
		Scan(&stats).Error
	return stats, err
}
