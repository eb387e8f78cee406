package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/parrotlabs/parrot/internal/models"
	"github.com/parrotlabs/parrot/internal/store"
)

// ChatModel generates streamed chat replies and query completions.
// Implemented by llm.Model.
type ChatModel interface {
	StreamChat(ctx context.Context, history []models.Message, input string, onChunk func(string) error) error
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Transcriber converts uploaded audio into text. Implemented by
// llm.Transcriber.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db          store.DataStore
	redis       *store.RedisStore
	model       ChatModel
	transcriber Transcriber
	logger      zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(db store.DataStore, redis *store.RedisStore, model ChatModel, transcriber Transcriber, logger zerolog.Logger) *Handler {
	return &Handler{
		db:          db,
		redis:       redis,
		model:       model,
		transcriber: transcriber,
		logger:      logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Root serves JSON API info, including the synchronized user count.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "parrot",
		"version": version,
		"endpoints": []string{
			"POST /api",
			"POST /api/suggestions",
			"POST /api/webhooks/clerk",
			"GET /health",
			"GET /metrics",
		},
	}

	if h.db != nil {
		if count, err := h.db.CountUsers(r.Context()); err == nil {
			info["users"] = count
		} else {
			h.logger.Warn().Err(err).Msg("user count unavailable")
		}
	}

	h.JSON(w, http.StatusOK, info)
}
