package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testSecret = "whsec_dGVzdC1zaWduaW5nLWtleQ==" // "test-signing-key"

func signedRequest(t *testing.T, secret, msgID, body string, ts int64) *http.Request {
	t.Helper()

	key := []byte(secret)
	if trimmed, ok := strings.CutPrefix(secret, "whsec_"); ok {
		decoded, err := base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			t.Fatal(err)
		}
		key = decoded
	}

	timestamp := strconv.FormatInt(ts, 10)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "." + body))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/clerk", strings.NewReader(body))
	req.Header.Set("svix-id", msgID)
	req.Header.Set("svix-timestamp", timestamp)
	req.Header.Set("svix-signature", "v1,"+sig)
	return req
}

func verifyThrough(v *WebhookVerifier, req *http.Request) (*httptest.ResponseRecorder, *string) {
	var seenBody string
	handler := v.Verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		seenBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, &seenBody
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := NewWebhookVerifier(testSecret, nil)
	body := `{"data":{"id":"user_1"}}`

	req := signedRequest(t, testSecret, "msg_1", body, time.Now().Unix())
	rec, seenBody := verifyThrough(v, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if *seenBody != body {
		t.Errorf("handler body = %q, want original body restored", *seenBody)
	}
}

func TestVerifyRejectsWrongSignature(t *testing.T) {
	v := NewWebhookVerifier(testSecret, nil)

	req := signedRequest(t, "whsec_d3Jvbmcta2V5", "msg_1", `{}`, time.Now().Unix())
	rec, _ := verifyThrough(v, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	v := NewWebhookVerifier(testSecret, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/clerk", strings.NewReader(`{}`))
	rec, _ := verifyThrough(v, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	v := NewWebhookVerifier(testSecret, nil)

	stale := time.Now().Add(-10 * time.Minute).Unix()
	req := signedRequest(t, testSecret, "msg_1", `{}`, stale)
	rec, _ := verifyThrough(v, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerifyAcceptsExtraSignatureCandidates(t *testing.T) {
	v := NewWebhookVerifier(testSecret, nil)
	body := `{}`

	req := signedRequest(t, testSecret, "msg_1", body, time.Now().Unix())
	valid := req.Header.Get("svix-signature")
	req.Header.Set("svix-signature", "v1,Zm9yZ2VkCg== "+valid)

	rec, _ := verifyThrough(v, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when any candidate matches", rec.Code)
	}
}

func TestVerifyPassesThroughWithoutSecret(t *testing.T) {
	v := NewWebhookVerifier("", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/clerk", strings.NewReader(`{}`))
	rec, _ := verifyThrough(v, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 pass-through", rec.Code)
	}
}
