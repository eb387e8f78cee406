package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/parrotlabs/parrot/internal/metrics"
	"github.com/parrotlabs/parrot/internal/models"
	"github.com/parrotlabs/parrot/internal/sse"
)

// maxChatForm bounds in-memory multipart parsing; larger audio parts
// spill to disk.
const maxChatForm = 1 << 20

// Chat handles a chat turn: multipart input (text or WAV audio) plus
// prior history, answered with an SSE content stream and the transcript
// in the X-Transcript header.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	requestID := ulid.Make().String()
	w.Header().Set("X-Request-ID", requestID)
	logger := h.logger.With().Str("request_id", requestID).Logger()

	if err := r.ParseMultipartForm(maxChatForm); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	transcript, inputType, ok := h.resolveInput(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(transcript) == "" {
		http.Error(w, "empty input", http.StatusBadRequest)
		return
	}

	history, err := parseHistory(r.MultipartForm.Value["message"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metrics.ChatTurnsTotal.WithLabelValues(inputType).Inc()
	logger.Info().
		Str("input_type", inputType).
		Int("history_len", len(history)).
		Msg("chat turn started")

	sw, err := sse.NewWriter(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sw.PrepareHeaders()
	w.Header().Set("X-Transcript", url.QueryEscape(transcript))

	// The status line goes out with the first chunk, so a model that
	// fails before producing anything can still get a clean error
	// response.
	start := time.Now()
	wrote := false
	streamErr := h.model.StreamChat(r.Context(), history, transcript, func(chunk string) error {
		wrote = true
		return sw.Content(chunk)
	})
	metrics.ChatStreamDuration.Observe(time.Since(start).Seconds())

	if streamErr != nil {
		if !wrote {
			http.Error(w, "model unavailable", http.StatusBadGateway)
			return
		}
		// Mid-stream failure: the body is already underway, all we can
		// do is cut it short and log.
		logger.Error().Err(streamErr).Msg("chat stream aborted")
		return
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("chat turn completed")
}

// resolveInput extracts the user input from the form: a text field, or
// an audio file part that gets transcribed. Reports ok=false after
// writing an error response.
func (h *Handler) resolveInput(w http.ResponseWriter, r *http.Request) (transcript, inputType string, ok bool) {
	file, header, err := r.FormFile("input")
	switch {
	case err == nil:
		defer file.Close()
		if h.transcriber == nil {
			http.Error(w, "audio input not supported", http.StatusNotImplemented)
			return "", "", false
		}
		transcript, err = h.transcriber.Transcribe(r.Context(), file, header.Filename)
		if err != nil {
			h.logger.Error().Err(err).Msg("transcription failed")
			http.Error(w, "transcription failed", http.StatusBadGateway)
			return "", "", false
		}
		return transcript, "audio", true

	case errors.Is(err, http.ErrMissingFile):
		return r.FormValue("input"), "text", true

	default:
		http.Error(w, "invalid input field", http.StatusBadRequest)
		return "", "", false
	}
}

// parseHistory decodes the repeated "message" fields into prior turns.
func parseHistory(raw []string) ([]models.Message, error) {
	history := make([]models.Message, 0, len(raw))
	for _, field := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(field), &msg); err != nil {
			return nil, errors.New("malformed message field")
		}
		if !msg.Valid() {
			return nil, errors.New("message field missing role or content")
		}
		history = append(history, msg)
	}
	return history, nil
}
