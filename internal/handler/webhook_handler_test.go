package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fanlore/backend/internal/model"
	"github.com/fanlore/backend/internal/service"
)

// ---------------------------------------------------------------------------
// Mock WebhookService
// ---------------------------------------------------------------------------

type mockWebhookService struct {
	processFunc func(ctx context.Context, payload []byte) (*service.IngestResult, error)
}

func (m *mockWebhookService) ProcessKofiWebhook(ctx context.Context, payload []byte) (*service.IngestResult, error) {
	if m.processFunc != nil {
		return m.processFunc(ctx, payload)
	}
	return &service.IngestResult{Donation: &model.Donation{ID: "d1"}}, nil
}

func postKofi(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/kofi", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Kofi(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// POST /api/webhooks/kofi tests
// ---------------------------------------------------------------------------

func TestWebhookHandler_Kofi_Success(t *testing.T) {
	mock := &mockWebhookService{
		processFunc: func(ctx context.Context, payload []byte) (*service.IngestResult, error) {
			return &service.IngestResult{Donation: &model.Donation{ID: "d1"}, EntitlementsRun: true}, nil
		},
	}
	h := NewWebhookHandler(mock)

	rec := postKofi(h, `{"type":"Donation"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Received   bool   `json:"received"`
		Duplicate  bool   `json:"duplicate"`
		DonationID string `json:"donation_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Received || resp.Duplicate || resp.DonationID != "d1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestWebhookHandler_Kofi_DuplicateIsStill200(t *testing.T) {
	mock := &mockWebhookService{
		processFunc: func(ctx context.Context, payload []byte) (*service.IngestResult, error) {
			return &service.IngestResult{Donation: &model.Donation{ID: "d-prior"}, Duplicate: true}, nil
		},
	}
	h := NewWebhookHandler(mock)

	rec := postKofi(h, `{"type":"Donation"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Duplicate  bool   `json:"duplicate"`
		DonationID string `json:"donation_id"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.Duplicate || resp.DonationID != "d-prior" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestWebhookHandler_Kofi_BadTokenIs401(t *testing.T) {
	mock := &mockWebhookService{
		processFunc: func(ctx context.Context, payload []byte) (*service.IngestResult, error) {
			return nil, service.ErrBadToken
		},
	}
	h := NewWebhookHandler(mock)

	rec := postKofi(h, `{"verification_token":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "invalid_token" {
		t.Errorf("expected invalid_token, got %q", resp["error"])
	}
}

func TestWebhookHandler_Kofi_ValidationErrorsAre400(t *testing.T) {
	for _, svcErr := range []error{
		service.ErrInvalidPayload,
		service.ErrMissingField,
		service.ErrAmountOutOfRange,
		service.ErrStaleEvent,
		service.ErrUnknownEventType,
	} {
		mock := &mockWebhookService{
			processFunc: func(ctx context.Context, payload []byte) (*service.IngestResult, error) {
				return nil, svcErr
			},
		}
		h := NewWebhookHandler(mock)

		rec := postKofi(h, `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%v: expected 400, got %d", svcErr, rec.Code)
		}
		var resp map[string]string
		_ = json.NewDecoder(rec.Body).Decode(&resp)
		if resp["error"] != "invalid_payload" {
			t.Errorf("%v: expected invalid_payload, got %q", svcErr, resp["error"])
		}
	}
}

func TestWebhookHandler_Kofi_InternalErrorIs500(t *testing.T) {
	mock := &mockWebhookService{
		processFunc: func(ctx context.Context, payload []byte) (*service.IngestResult, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewWebhookHandler(mock)

	rec := postKofi(h, `{"type":"Donation"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
