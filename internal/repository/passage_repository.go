package repository

import (
	"context"

	"github.com/lshigami/fluency/internal/model"
	"gorm.io/gorm"
)

type PassageRepository interface {
	Create(ctx context.Context, passage *model.Passage) error
	FindByID(ctx context.Context, id uint) (*model.Passage, error)
	FindByIDWithQuestions(ctx context.Context, id uint) (*model.Passage, error)
	FindAllWithQuestionCount(ctx context.Context) ([]PassageWithQuestionCount, error)
}

type PassageWithQuestionCount struct {
	model.Passage
	QuestionCount int
}

type passageRepository struct {
	db *gorm.DB
}

func NewPassageRepository(db *gorm.DB) PassageRepository {
	return &passageRepository{db: db}
}

// Create stores the passage together with its questions.
func (r *passageRepository) Create(ctx context.Context, passage *model.Passage) error {
	return r.db.WithContext(ctx).Create(passage).Error
}

func (r *passageRepository) FindByID(ctx context.Context, id uint) (*model.Passage, error) {
	var passage model.Passage
	if err := r.db.WithContext(ctx).First(&passage, id).Error; err != nil {
		return nil, translate(err)
	}
	return &passage, nil
}

func (r *passageRepository) FindByIDWithQuestions(ctx context.Context, id uint) (*model.Passage, error) {
	var passage model.Passage
	err := r.db.WithContext(ctx).Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.order_in_passage ASC")
	}).First(&passage, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &passage, nil
}

func (r *passageRepository) FindAllWithQuestionCount(ctx context.Context) ([]PassageWithQuestionCount, error) {
	var rows []PassageWithQuestionCount
	err := r.db.WithContext(ctx).Model(&model.Passage{}).
		Select("passages.*, COUNT(questions.id) AS question_count").
		Joins("LEFT JOIN questions ON questions.passage_id = passages.id AND questions.deleted_at IS NULL").
		Group("passages.id").
		Order("passages.created_at DESC").
		Scan(&rows).Error
	return rows, err
}
