package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/parrotlabs/parrot/internal/metrics"
	"github.com/parrotlabs/parrot/internal/store"
)

// clerkEnvelope is the identity-provider webhook payload.
type clerkEnvelope struct {
	Data struct {
		ID             string `json:"id"`
		EventType      string `json:"event_type"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
		FirstName string  `json:"first_name"`
		LastName  string  `json:"last_name"`
		ImageURL  *string `json:"image_url"`
	} `json:"data"`
}

// ClerkWebhook synchronizes user records from the identity provider.
// Only "user.updated" events are handled; the upsert is keyed by the
// provider's user id.
func (h *Handler) ClerkWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope clerkEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	data := envelope.Data
	if data.EventType != "user.updated" {
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		h.Error(w, http.StatusBadRequest, "event type not handled")
		return
	}
	if data.ID == "" {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		h.Error(w, http.StatusBadRequest, "missing user id")
		return
	}

	var email string
	if len(data.EmailAddresses) > 0 {
		email = data.EmailAddresses[0].EmailAddress
	}

	update := store.UserUpdate{
		ClerkID:  data.ID,
		Email:    email,
		Name:     strings.TrimSpace(data.FirstName + " " + data.LastName),
		ImageURL: data.ImageURL,
	}

	user, err := h.db.UpsertUser(r.Context(), update)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		h.logger.Error().Err(err).Str("clerk_id", data.ID).Msg("user upsert failed")
		h.Error(w, http.StatusInternalServerError, "error processing webhook")
		return
	}

	metrics.WebhookEvents.WithLabelValues("handled").Inc()
	h.logger.Info().
		Str("clerk_id", user.ClerkID).
		Str("user_id", user.ID.String()).
		Msg("user synchronized")
	h.JSON(w, http.StatusOK, map[string]string{"status": "user updated"})
}
