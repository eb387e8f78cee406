package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/parrotlabs/parrot/internal/metrics"
)

// SuggestRequest is the request body for the suggestions endpoint.
type SuggestRequest struct {
	Query string `json:"query"`
}

// SuggestResponse is the suggestions response.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Suggestions completes a partially typed query, serving from the Redis
// cache when possible.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		h.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	if h.redis != nil {
		if cached, ok := h.redis.GetSuggestions(r.Context(), query); ok {
			metrics.SuggestionRequests.WithLabelValues("hit").Inc()
			h.JSON(w, http.StatusOK, SuggestResponse{Suggestions: cached})
			return
		}
	}

	suggestions, err := h.model.Suggest(r.Context(), query)
	if err != nil {
		metrics.SuggestionRequests.WithLabelValues("error").Inc()
		h.logger.Error().Err(err).Str("query", query).Msg("suggestion generation failed")
		h.Error(w, http.StatusBadGateway, "suggestion backend unavailable")
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	if h.redis != nil {
		if err := h.redis.SetSuggestions(r.Context(), query, suggestions); err != nil {
			h.logger.Warn().Err(err).Msg("failed to cache suggestions")
		}
	}

	metrics.SuggestionRequests.WithLabelValues("miss").Inc()
	h.JSON(w, http.StatusOK, SuggestResponse{Suggestions: suggestions})
}
