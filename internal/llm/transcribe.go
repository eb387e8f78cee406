package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/parrotlabs/parrot/internal/config"
)

// Transcriber converts a speech utterance into text via an
// OpenAI-compatible transcription endpoint.
type Transcriber struct {
	url        string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewTranscriber creates a transcriber from configuration.
func NewTranscriber(cfg *config.Config) *Transcriber {
	return &Transcriber{
		url:        cfg.TranscribeURL,
		model:      cfg.TranscribeModel,
		apiKey:     cfg.TranscribeKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Transcribe uploads WAV audio and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("copy audio: %w", err)
	}
	if err := mw.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription error %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return result.Text, nil
}
