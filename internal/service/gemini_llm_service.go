package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/fluency/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// LanguageModel is the external language-evaluation service: a system
// instruction plus a user prompt in, free-form text out.
type LanguageModel interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
	Name() string
}

type geminiLLMService struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLMService(cfg *config.Config) (LanguageModel, error) {
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. AI evaluation will be non-functional.")
		return &geminiLLMService{modelName: cfg.Gemini.Model}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &geminiLLMService{client: client, modelName: cfg.Gemini.Model}, nil
}

func (s *geminiLLMService) Name() string { return s.modelName }

func (s *geminiLLMService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *geminiLLMService) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	if s.client == nil {
		return "", &EvaluationError{Err: fmt.Errorf("gemini client not initialized: %w", ErrServiceUnavailable)}
	}

	// GenerativeModel is a lightweight handle; a fresh one per call keeps
	// the system instruction out of shared state.
	m := s.client.GenerativeModel(s.modelName)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	m.SetTemperature(0)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Str("model", s.modelName).Msg("Gemini API error during evaluation")
		return "", &EvaluationError{Transient: transientAPIError(ctx, err), Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Warn().Str("model", s.modelName).Msg("Gemini returned no candidates or parts in response.")
		return "", &EvaluationError{Transient: true, Err: errors.New("gemini returned no content")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", &EvaluationError{Transient: true, Err: errors.New("gemini returned no text content")}
	}
	return text.String(), nil
}

// transientAPIError reports whether re-triggering later could succeed:
// timeouts, throttling and server-side failures.
func transientAPIError(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.Code)
	}
	return true
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
