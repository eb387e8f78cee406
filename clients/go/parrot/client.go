// Package parrot provides a client for the Parrot assistant API: chat
// submission with incremental SSE streaming and autocomplete suggestions.
package parrot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation. Thinking and Latency are set
// only on assistant messages.
type Message struct {
	Role     string        `json:"role"`
	Content  string        `json:"content"`
	Thinking string        `json:"thinking,omitempty"`
	Latency  time.Duration `json:"latency,omitempty"`
}

// ErrRateLimited is returned when the server responds with 429.
var ErrRateLimited = errors.New("rate limited, try again later")

// APIError is a non-2xx server response other than a rate limit.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("server error %d", e.Status)
}

// Client is a Parrot API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient creates a new Parrot client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		Logger:     zerolog.New(os.Stderr).Level(zerolog.Disabled),
	}
}

// Turn is the result of one chat submission.
type Turn struct {
	// Transcript is the user input as understood by the server: the text
	// that was sent, or the transcription of submitted audio.
	Transcript string
	// Message is the completed assistant message, or nil when the stream
	// produced no visible content.
	Message *Message
}

// SubmitText submits a text input together with prior conversation
// history and streams the assistant response. onUpdate, if non-nil, is
// called with the full visible content so far on every content event.
func (c *Client) SubmitText(ctx context.Context, input string, history []Message, onUpdate func(string)) (*Turn, error) {
	return c.submit(ctx, strings.NewReader(input), "", history, onUpdate)
}

// SubmitAudio submits a WAV-encoded audio utterance. The server
// transcribes it and returns the transcript in the X-Transcript header.
func (c *Client) SubmitAudio(ctx context.Context, audio io.Reader, history []Message, onUpdate func(string)) (*Turn, error) {
	return c.submit(ctx, audio, "audio.wav", history, onUpdate)
}

func (c *Client) submit(ctx context.Context, input io.Reader, filename string, history []Message, onUpdate func(string)) (*Turn, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	var part io.Writer
	var err error
	if filename != "" {
		part, err = mw.CreateFormFile("input", filename)
	} else {
		part, err = mw.CreateFormField("input")
	}
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, input); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	// History travels as repeated "message" fields, one JSON-encoded
	// {role, content} pair per prior turn, in order.
	for _, m := range history {
		encoded, err := json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{m.Role, m.Content})
		if err != nil {
			return nil, fmt.Errorf("encode history: %w", err)
		}
		if err := mw.WriteField("message", string(encoded)); err != nil {
			return nil, fmt.Errorf("write history: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	submittedAt := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	transcript, err := url.QueryUnescape(resp.Header.Get("X-Transcript"))
	if err != nil {
		transcript = resp.Header.Get("X-Transcript")
	}

	turn := &Turn{Transcript: transcript}

	d := newDemux(onUpdate, c.Logger)
	var readErr error
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			d.Feed(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = err
			break
		}
	}

	// Finalization always runs, so a mid-stream read failure still
	// yields whatever partial message was accumulated.
	turn.Message = d.Finalize(submittedAt)
	if readErr != nil {
		return turn, fmt.Errorf("read stream: %w", readErr)
	}
	return turn, nil
}

// SuggestRequest is the request body for the suggestions endpoint.
type SuggestRequest struct {
	Query string `json:"query"`
}

// SuggestResponse is the response from the suggestions endpoint.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Suggest fetches completion suggestions for a partial query.
func (c *Client) Suggest(ctx context.Context, query string) ([]string, error) {
	reqBody, err := json.Marshal(SuggestRequest{Query: query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/suggestions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var sr SuggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return sr.Suggestions, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var hr HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, err
	}
	return &hr, nil
}
