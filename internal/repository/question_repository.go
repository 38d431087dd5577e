package repository

import (
	"context"

	"github.com/lshigami/fluency/internal/model"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	FindByPassageID(ctx context.Context, passageID uint) ([]model.Question, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) FindByPassageID(ctx context.Context, passageID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.WithContext(ctx).
		Where("passage_id = ?", passageID).
		Order("order_in_passage ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}
