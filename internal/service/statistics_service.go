package service

import (
	"context"
	"fmt"

	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/repository"
)

// StatisticsService aggregates scores over recordings that still exist.
type StatisticsService interface {
	Summary(ctx context.Context) (*dto.StatisticsDTO, error)
}

type statisticsService struct {
	aiEvaluationRepo repository.AIEvaluationRepository
	assessmentRepo   repository.AssessmentRepository
}

func NewStatisticsService(aiEvaluationRepo repository.AIEvaluationRepository, assessmentRepo repository.AssessmentRepository) StatisticsService {
	return &statisticsService{aiEvaluationRepo: aiEvaluationRepo, assessmentRepo: assessmentRepo}
}

func (s *statisticsService) Summary(ctx context.Context) (*dto.StatisticsDTO, error) {
	evaluations, err := s.aiEvaluationRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ai evaluations: %w", err)
	}
	assessments, err := s.assessmentRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate assessments: %w", err)
	}
	return &dto.StatisticsDTO{
		EvaluatedRecordings:    evaluations.Count,
		AverageLUSScore:        evaluations.AverageLUSScore,
		AverageConfidence:      evaluations.AverageConfidence,
		Assessments:            assessments.Count,
		AverageNormalizedScore: assessments.AverageNormalizedScore,
	}, nil
}
