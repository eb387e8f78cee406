package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func logThrough(t *testing.T, handler http.HandlerFunc) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	Logger(logger)(handler).ServeHTTP(rec, req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output not JSON: %v (%s)", err, buf.String())
	}
	return entry
}

func TestLoggerRecordsRequestFields(t *testing.T) {
	entry := logThrough(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})

	if entry["method"] != "GET" || entry["path"] != "/health" {
		t.Errorf("method/path = %v/%v", entry["method"], entry["path"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["bytes"] != float64(len("short and stout")) {
		t.Errorf("bytes = %v", entry["bytes"])
	}
}

func TestLoggerPrefersResponseRequestID(t *testing.T) {
	entry := logThrough(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "01HSTREAMID")
		w.WriteHeader(http.StatusOK)
	})

	if entry["request_id"] != "01HSTREAMID" {
		t.Errorf("request_id = %v, want handler-stamped id", entry["request_id"])
	}
}
