package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeff-ai/jeff-api/internal/logger"
)

const deepgramBaseURL = "https://api.deepgram.com"

// DeepgramTranscriber uses the prerecorded listen endpoint with the nova-2 model.
type DeepgramTranscriber struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewDeepgramTranscriber(apiKey, baseURL string, log *logger.Logger) *DeepgramTranscriber {
	if baseURL == "" {
		baseURL = deepgramBaseURL
	}
	return &DeepgramTranscriber{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        log.With("client", "deepgram"),
	}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (string, error) {
	q := url.Values{}
	q.Set("model", "nova-2")
	q.Set("smart_format", "true")
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/listen?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	contentType := opts.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("deepgram http %d: %s", resp.StatusCode, string(body))
	}

	var out deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("deepgram decode error: %w", err)
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return "", ErrNoTranscript
	}
	transcript := out.Results.Channels[0].Alternatives[0].Transcript
	if strings.TrimSpace(transcript) == "" {
		return "", ErrNoTranscript
	}
	d.log.Debug("Deepgram transcript received", "bytes", len(audio), "chars", len(transcript))
	return transcript, nil
}
