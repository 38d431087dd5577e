package service

import (
	"math"

	"github.com/lshigami/fluency/config"
	"github.com/lshigami/fluency/internal/model"
)

const (
	MinLUSScore = 1
	MaxLUSScore = 20
)

// LUSConverterService folds the five AI sub-metrics into a 1-20 grade.
type LUSConverterService interface {
	WeightedScore(metrics model.Metrics) float64
	Normalize(metrics model.Metrics) int
}

type lusConverterService struct {
	weights config.LUSWeights
}

func NewLUSConverterService(weights config.LUSWeights) LUSConverterService {
	return &lusConverterService{weights: weights}
}

func (s *lusConverterService) WeightedScore(m model.Metrics) float64 {
	w := s.weights
	return m.Accuracy*w.Accuracy +
		m.Fluency*w.Fluency +
		m.Pronunciation*w.Pronunciation +
		m.Speed*w.Speed +
		m.Comprehension*w.Comprehension
}

// Normalize maps the 0-100 weighted score onto 1-20 with log10 compression:
// round(log10(ws/100*9 + 1) * 20), so 0 lands on 0 (clamped to 1) and 100 on 20.
func (s *lusConverterService) Normalize(m model.Metrics) int {
	ws := s.WeightedScore(m)
	// keep the log argument >= 1 for out-of-range metrics
	ws = min(max(ws, 0), 100)

	lus := int(math.Round(math.Log10(ws/100*9+1) * 20))
	return min(max(lus, MinLUSScore), MaxLUSScore)
}
