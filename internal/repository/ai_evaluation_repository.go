package repository

import (
	"context"
	"errors"

	"github.com/lshigami/fluency/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EvaluationStats struct {
	Count             int64   `json:"count"`
	AverageLUSScore   float64 `json:"average_lus_score"`
	AverageConfidence float64 `json:"average_confidence"`
}

type AIEvaluationRepository interface {
	FindByRecordingID(ctx context.Context, recordingID uint) (*model.AIEvaluation, error)
	// InsertIfAbsent relies on the unique recording_id index. When another
	// row already exists it returns that row and created=false.
	InsertIfAbsent(ctx context.Context, evaluation *model.AIEvaluation) (stored *model.AIEvaluation, created bool, err error)
	// Overwrite updates the existing row in place under a row lock, or
	// inserts it if the recording has never been evaluated.
	Overwrite(ctx context.Context, evaluation *model.AIEvaluation) (*model.AIEvaluation, error)
	Stats(ctx context.Context) (EvaluationStats, error)
}

type aiEvaluationRepository struct {
	db *gorm.DB
}

func NewAIEvaluationRepository(db *gorm.DB) AIEvaluationRepository {
	return &aiEvaluationRepository{db: db}
}

func (r *aiEvaluationRepository) FindByRecordingID(ctx context.Context, recordingID uint) (*model.AIEvaluation, error) {
	var evaluation model.AIEvaluation
	if err := r.db.WithContext(ctx).Where("recording_id = ?", recordingID).First(&evaluation).Error; err != nil {
		return nil, translate(err)
	}
	return &evaluation, nil
}

func (r *aiEvaluationRepository) InsertIfAbsent(ctx context.Context, evaluation *model.AIEvaluation) (*model.AIEvaluation, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "recording_id"}}, DoNothing: true}).
		Create(evaluation)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return evaluation, true, nil
	}
	existing, err := r.FindByRecordingID(ctx, evaluation.RecordingID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *aiEvaluationRepository) Overwrite(ctx context.Context, evaluation *model.AIEvaluation) (*model.AIEvaluation, error) {
	var stored model.AIEvaluation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.AIEvaluation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("recording_id = ?", evaluation.RecordingID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// a concurrent first evaluation may land between the select and
			// the insert, so the insert doubles as an update on conflict
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "recording_id"}},
				UpdateAll: true,
			}).Create(evaluation).Error
		case err != nil:
			return err
		default:
			evaluation.ID = existing.ID
			evaluation.CreatedAt = existing.CreatedAt
			err = tx.Save(evaluation).Error
		}
		if err != nil {
			return err
		}
		return tx.Where("recording_id = ?", evaluation.RecordingID).First(&stored).Error
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Stats ignores evaluations whose recording has been deleted.
func (r *aiEvaluationRepository) Stats(ctx context.Context) (EvaluationStats, error) {
	var stats EvaluationStats
	err := r.db.WithContext(ctx).Model(&model.AIEvaluation{}).
		Select("COUNT(ai_evaluations.id) AS count, " +
			"COALESCE(AVG(ai_evaluations.lus_score), 0) AS average_lus_score, " +
			"COALESCE(AVG(ai_evaluations.confidence_score), 0) AS average_confidence").
		Joins("JOIN recordings ON recordings.id = ai_evaluations.recording_id AND recordings.deleted_at IS NULL").
		Scan(&stats).Error
	return stats, err
}
