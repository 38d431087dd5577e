package service

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/lshigami/fluency/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GoogleSpeechTranscriber uses Cloud Speech-to-Text synchronous recognition.
type GoogleSpeechTranscriber struct {
	client *speech.Client
}

func NewGoogleSpeechTranscriber(ctx context.Context, cfg *config.Config) (*GoogleSpeechTranscriber, error) {
	var opts []option.ClientOption
	if cfg.Speech.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Speech.CredentialsFile))
	} else {
		log.Info().Msg("GOOGLE_CREDENTIALS_FILE not set, using application default credentials for Speech-to-Text")
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Speech client: %w", err)
	}
	return &GoogleSpeechTranscriber{client: client}, nil
}

func (t *GoogleSpeechTranscriber) Close() error {
	return t.client.Close()
}

func (t *GoogleSpeechTranscriber) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            16000,
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := t.client.Recognize(ctx, req)
	if err != nil {
		return "", &TranscriptionError{Transient: transientGRPC(err), Err: fmt.Errorf("google speech recognition failed: %w", err)}
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			transcript.WriteString(result.Alternatives[0].Transcript)
			transcript.WriteString(" ")
		}
	}
	return strings.TrimSpace(transcript.String()), nil
}

func transientGRPC(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return true
	}
	return false
}
