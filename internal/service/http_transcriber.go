package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lshigami/fluency/config"
)

// httpTranscriber talks to a Whisper-compatible /audio/transcriptions endpoint.
type httpTranscriber struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPTranscriber(cfg *config.Config) Transcriber {
	return &httpTranscriber{
		endpoint: cfg.Speech.Endpoint,
		apiKey:   cfg.Speech.APIKey,
		model:    cfg.Speech.Model,
		client:   &http.Client{},
	}
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (t *httpTranscriber) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	if t.endpoint == "" {
		return "", &TranscriptionError{Err: fmt.Errorf("speech endpoint not configured: %w", ErrServiceUnavailable)}
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "recording.wav")
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return "", &TranscriptionError{Err: err}
	}
	_ = form.WriteField("model", t.model)
	_ = form.WriteField("response_format", "json")
	if lang := baseLanguage(languageCode); lang != "" {
		_ = form.WriteField("language", lang)
	}
	if err := form.Close(); err != nil {
		return "", &TranscriptionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return "", &TranscriptionError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &TranscriptionError{Transient: true, Err: fmt.Errorf("speech request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TranscriptionError{Transient: true, Err: fmt.Errorf("failed to read speech response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &TranscriptionError{
			Transient: transientStatus(resp.StatusCode),
			Err:       fmt.Errorf("speech service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &TranscriptionError{Err: fmt.Errorf("failed to decode speech response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &TranscriptionError{Err: fmt.Errorf("speech service error: %s", parsed.Error.Message)}
	}
	return parsed.Text, nil
}

// baseLanguage reduces a BCP-47 tag such as "sv-SE" to "sv".
func baseLanguage(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}
