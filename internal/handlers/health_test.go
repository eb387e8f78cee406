package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parrotlabs/parrot/internal/models"
)

func TestHealthReportsStoreStatus(t *testing.T) {
	h, _ := newTestHandler(&fakeModel{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Checks["database"].Status != "pass" {
		t.Errorf("database check = %+v", resp.Checks["database"])
	}
	// Redis is optional; without it the service still reports healthy.
	if resp.Checks["redis"].Status != "fail" {
		t.Errorf("redis check = %+v", resp.Checks["redis"])
	}
}

func TestRootReportsUserCount(t *testing.T) {
	h, db := newTestHandler(&fakeModel{}, nil)
	db.users["user_1"] = &models.User{ClerkID: "user_1"}
	db.users["user_2"] = &models.User{ClerkID: "user_2"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Root(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info["name"] != "parrot" {
		t.Errorf("name = %v", info["name"])
	}
	if info["users"] != float64(2) {
		t.Errorf("users = %v, want 2", info["users"])
	}
}
