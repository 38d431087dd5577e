package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/model"
	"github.com/lshigami/fluency/internal/repository"
	"github.com/rs/zerolog/log"
)

// PassageService manages the texts students read aloud and their
// comprehension questions.
type PassageService interface {
	CreatePassage(ctx context.Context, req dto.PassageCreateDTO) (*dto.PassageDTO, error)
	GetPassage(ctx context.Context, passageID uint) (*dto.PassageDTO, error)
	ListPassages(ctx context.Context) ([]dto.PassageSummaryDTO, error)
}

type passageService struct {
	passageRepo repository.PassageRepository
}

func NewPassageService(passageRepo repository.PassageRepository) PassageService {
	return &passageService{passageRepo: passageRepo}
}

func (s *passageService) CreatePassage(ctx context.Context, req dto.PassageCreateDTO) (*dto.PassageDTO, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &ValidationError{Field: "text", Reason: "passage text must not be blank"}
	}

	orderMap := make(map[int]bool, len(req.Questions))
	questions := make([]model.Question, 0, len(req.Questions))
	for _, qDto := range req.Questions {
		if orderMap[qDto.OrderInPassage] {
			return nil, &ValidationError{Field: "questions", Reason: fmt.Sprintf("duplicate order_in_passage %d", qDto.OrderInPassage)}
		}
		orderMap[qDto.OrderInPassage] = true

		if qDto.Weight <= 0 {
			return nil, &ValidationError{Field: "questions", Reason: fmt.Sprintf("question %d must have a positive weight", qDto.OrderInPassage)}
		}
		if strings.TrimSpace(qDto.CorrectAnswer) == "" {
			return nil, &ValidationError{Field: "questions", Reason: fmt.Sprintf("question %d has a blank correct answer", qDto.OrderInPassage)}
		}

		var question model.Question
		copier.Copy(&question, &qDto)
		questions = append(questions, question)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].OrderInPassage < questions[j].OrderInPassage })

	passage := model.Passage{
		Title:     req.Title,
		Text:      req.Text,
		Language:  req.Language,
		Questions: questions,
	}
	if err := s.passageRepo.Create(ctx, &passage); err != nil {
		log.Error().Err(err).Msg("Failed to create passage in database")
		return nil, fmt.Errorf("database error creating passage: %w", err)
	}
	log.Info().Uint("passageID", passage.ID).Int("questions", len(questions)).Msg("Passage created")

	return toPassageDTO(&passage), nil
}

func (s *passageService) GetPassage(ctx context.Context, passageID uint) (*dto.PassageDTO, error) {
	passage, err := s.passageRepo.FindByIDWithQuestions(ctx, passageID)
	if err != nil {
		return nil, fmt.Errorf("passage %d: %w", passageID, err)
	}
	return toPassageDTO(passage), nil
}

func (s *passageService) ListPassages(ctx context.Context) ([]dto.PassageSummaryDTO, error) {
	rows, err := s.passageRepo.FindAllWithQuestionCount(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list passages with question count")
		return nil, fmt.Errorf("error fetching passages: %w", err)
	}

	dtos := make([]dto.PassageSummaryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, dto.PassageSummaryDTO{
			ID:            row.ID,
			Title:         row.Title,
			Language:      row.Language,
			QuestionCount: row.QuestionCount,
			CreatedAt:     row.CreatedAt,
		})
	}
	return dtos, nil
}

func toPassageDTO(p *model.Passage) *dto.PassageDTO {
	out := &dto.PassageDTO{
		ID:        p.ID,
		Title:     p.Title,
		Text:      p.Text,
		Language:  p.Language,
		CreatedAt: p.CreatedAt,
		Questions: make([]dto.QuestionDTO, len(p.Questions)),
	}
	// QuestionDTO has no CorrectAnswer field, so copier drops it
	for i := range p.Questions {
		copier.Copy(&out.Questions[i], &p.Questions[i])
	}
	return out
}
