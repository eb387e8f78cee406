package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func webhookRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/clerk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestClerkWebhookUserUpdated(t *testing.T) {
	h, db := newTestHandler(&fakeModel{}, nil)

	body := `{"data":{"id":"user_2abc","event_type":"user.updated",` +
		`"email_addresses":[{"email_address":"jo@example.com"}],` +
		`"first_name":"Jo","last_name":"Doe","image_url":"https://img.example/jo.png"}}`

	rec := httptest.NewRecorder()
	h.ClerkWebhook(rec, webhookRequest(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "user updated" {
		t.Errorf("status field = %q", resp["status"])
	}

	update := db.lastUpsert
	if update.ClerkID != "user_2abc" {
		t.Errorf("clerk id = %q", update.ClerkID)
	}
	if update.Email != "jo@example.com" {
		t.Errorf("email = %q", update.Email)
	}
	if update.Name != "Jo Doe" {
		t.Errorf("name = %q", update.Name)
	}
	if update.ImageURL == nil || *update.ImageURL != "https://img.example/jo.png" {
		t.Errorf("image url = %v", update.ImageURL)
	}
}

func TestClerkWebhookUpsertIsIdempotent(t *testing.T) {
	h, db := newTestHandler(&fakeModel{}, nil)

	body := `{"data":{"id":"user_2abc","event_type":"user.updated","first_name":"Jo"}}`

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ClerkWebhook(rec, webhookRequest(t, body))
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d", i, rec.Code)
		}
	}
	if len(db.users) != 1 {
		t.Errorf("user count = %d, want 1", len(db.users))
	}
}

func TestClerkWebhookIgnoresOtherEvents(t *testing.T) {
	h, db := newTestHandler(&fakeModel{}, nil)

	body := `{"data":{"id":"user_2abc","event_type":"user.created"}}`
	rec := httptest.NewRecorder()
	h.ClerkWebhook(rec, webhookRequest(t, body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(db.users) != 0 {
		t.Error("unexpected user write")
	}
}

func TestClerkWebhookMissingUserID(t *testing.T) {
	h, _ := newTestHandler(&fakeModel{}, nil)

	body := `{"data":{"event_type":"user.updated","first_name":"Jo"}}`
	rec := httptest.NewRecorder()
	h.ClerkWebhook(rec, webhookRequest(t, body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClerkWebhookInvalidJSON(t *testing.T) {
	h, _ := newTestHandler(&fakeModel{}, nil)

	rec := httptest.NewRecorder()
	h.ClerkWebhook(rec, webhookRequest(t, `{broken`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClerkWebhookStoreFailure(t *testing.T) {
	h, db := newTestHandler(&fakeModel{}, nil)
	db.upsertErr = errors.New("connection reset")

	body := `{"data":{"id":"user_2abc","event_type":"user.updated"}}`
	rec := httptest.NewRecorder()
	h.ClerkWebhook(rec, webhookRequest(t, body))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
