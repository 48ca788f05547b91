package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/jeff-ai/jeff-api/internal/logger"
)

// GoogleSpeechTranscriber runs synchronous recognition on Cloud Speech-to-Text.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS or the ambient environment.
type GoogleSpeechTranscriber struct {
	client *speech.Client
	log    *logger.Logger
}

func NewGoogleSpeechTranscriber(ctx context.Context, log *logger.Logger) (*GoogleSpeechTranscriber, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleSpeechTranscriber{client: c, log: log.With("client", "google_speech")}, nil
}

func (g *GoogleSpeechTranscriber) Close() error {
	return g.client.Close()
}

func (g *GoogleSpeechTranscriber) Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (string, error) {
	req := &speechpb.RecognizeRequest{
		Config: recognitionConfig(opts),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
				parts = append(parts, text)
			}
		}
	}
	if len(parts) == 0 {
		return "", ErrNoTranscript
	}
	return strings.Join(parts, " "), nil
}

func recognitionConfig(opts TranscribeOptions) *speechpb.RecognitionConfig {
	lang := opts.Language
	if lang == "" {
		lang = "en-US"
	}
	return &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		EnableAutomaticPunctuation: true,
		Encoding:                   inferSpeechEncoding(opts.MimeType),
	}
}

func inferSpeechEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3"), strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
