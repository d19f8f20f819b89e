package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestContentQueue_SubmitAndListReady(t *testing.T) {
	app, _ := setupTestApp(t)

	payload := map[string]any{
		"fingerprint":  "fp-1",
		"account_id":   "acct-1",
		"platform":     "instagram",
		"caption_text": "Morning drop",
	}
	b, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/queue/items", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected submit status %d", resp.StatusCode)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/queue/acct-1/instagram/ready", nil)
	listResp, err := app.Test(listReq)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected list status %d", listResp.StatusCode)
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(listResp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if envelope.Results["ready_count"] != float64(1) {
		t.Fatalf("expected ready_count 1, got %v", envelope.Results["ready_count"])
	}
	items, ok := envelope.Results["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 ready item, got %v", envelope.Results["items"])
	}
}

func TestContentQueue_DuplicateFingerprintRejected(t *testing.T) {
	app, _ := setupTestApp(t)

	payload := map[string]any{
		"fingerprint":  "fp-dup",
		"account_id":   "acct-1",
		"platform":     "instagram",
		"caption_text": "Same content twice",
	}
	b, _ := json.Marshal(payload)

	first := httptest.NewRequest(http.MethodPost, "/api/queue/items", bytes.NewReader(b))
	first.Header.Set("Content-Type", "application/json")
	firstResp, err := app.Test(first)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	firstResp.Body.Close()
	if firstResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected first status %d", firstResp.StatusCode)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/queue/items", bytes.NewReader(b))
	second.Header.Set("Content-Type", "application/json")
	secondResp, err := app.Test(second)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer secondResp.Body.Close()

	if secondResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected duplicate status %d", secondResp.StatusCode)
	}
}

func TestContentQueue_SubmitRejectsBlankCaption(t *testing.T) {
	app, _ := setupTestApp(t)

	payload := map[string]any{
		"fingerprint":  "fp-blank",
		"account_id":   "acct-1",
		"platform":     "instagram",
		"caption_text": "   ",
	}
	b, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/queue/items", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if envelope.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected code %q", envelope.Code)
	}
}
