package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/reimagine/reimagine/internal/model"
	"github.com/reimagine/reimagine/internal/service"
	"github.com/reimagine/reimagine/internal/webhook"
)

const (
	identitySecret = "identity-hook-secret"
	checkoutSecret = "checkout-hook-secret"
)

func newHookHandler(store *memoryAccounts) *HookHandler {
	svc := service.NewAccountService(store, nil, discardLogger(), 10)
	return NewHookHandler(svc, identitySecret, checkoutSecret, discardLogger())
}

func signedHookRequest(t *testing.T, target, secret string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	ts := time.Now().Unix()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set(webhook.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(webhook.HeaderSignature, webhook.GenerateSignature(secret, ts, body))
	return req
}

func TestHookHandler_Identity_ProvisionsUser(t *testing.T) {
	store := &memoryAccounts{users: map[string]*model.User{}}
	h := newHookHandler(store)

	req := signedHookRequest(t, "/webhooks/identity", identitySecret, map[string]string{
		"type":    "user.created",
		"user_id": "user-1",
		"email":   "a@example.test",
	})
	rec := httptest.NewRecorder()

	h.Identity(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	user, ok := store.users["user-1"]
	if !ok {
		t.Fatal("user not provisioned")
	}
	if user.Credits != 10 {
		t.Errorf("starting credits = %d, want 10", user.Credits)
	}
}

func TestHookHandler_Identity_ReplayKeepsBalance(t *testing.T) {
	store := &memoryAccounts{users: map[string]*model.User{
		"user-1": {ID: "user-1", Email: "a@example.test", Credits: 2},
	}}
	h := newHookHandler(store)

	req := signedHookRequest(t, "/webhooks/identity", identitySecret, map[string]string{
		"type":    "user.created",
		"user_id": "user-1",
		"email":   "a@example.test",
	})
	rec := httptest.NewRecorder()

	h.Identity(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.users["user-1"].Credits != 2 {
		t.Errorf("credits = %d, want 2 (replay must not reset)", store.users["user-1"].Credits)
	}
}

func TestHookHandler_Identity_UnknownEventIgnored(t *testing.T) {
	store := &memoryAccounts{users: map[string]*model.User{}}
	h := newHookHandler(store)

	req := signedHookRequest(t, "/webhooks/identity", identitySecret, map[string]string{
		"type": "user.deleted",
	})
	rec := httptest.NewRecorder()

	h.Identity(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", resp["status"])
	}
}

func TestHookHandler_Identity_RejectsBadSignature(t *testing.T) {
	store := &memoryAccounts{users: map[string]*model.User{}}
	h := newHookHandler(store)

	tests := []struct {
		name    string
		request func() *http.Request
	}{
		{
			name: "wrong secret",
			request: func() *http.Request {
				return signedHookRequest(t, "/webhooks/identity", "wrong-secret", map[string]string{
					"type": "user.created", "user_id": "user-1", "email": "a@example.test",
				})
			},
		},
		{
			name: "missing headers",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/webhooks/identity",
					bytes.NewBufferString(`{"type":"user.created","user_id":"user-1","email":"a@example.test"}`))
			},
		},
		{
			name: "malformed timestamp",
			request: func() *http.Request {
				req := signedHookRequest(t, "/webhooks/identity", identitySecret, map[string]string{
					"type": "user.created", "user_id": "user-1", "email": "a@example.test",
				})
				req.Header.Set(webhook.HeaderTimestamp, "yesterday")
				return req
			},
		},
		{
			name: "stale timestamp",
			request: func() *http.Request {
				body := []byte(`{"type":"user.created","user_id":"user-1","email":"a@example.test"}`)
				ts := time.Now().Add(-time.Hour).Unix()
				req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewReader(body))
				req.Header.Set(webhook.HeaderTimestamp, strconv.FormatInt(ts, 10))
				req.Header.Set(webhook.HeaderSignature, webhook.GenerateSignature(identitySecret, ts, body))
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Identity(rec, tt.request())

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != "INVALID_SIGNATURE" {
				t.Errorf("code = %q, want INVALID_SIGNATURE", code)
			}
			if len(store.users) != 0 {
				t.Error("unsigned hook provisioned a user")
			}
		})
	}
}

func TestHookHandler_Checkout_AddsCredits(t *testing.T) {
	store := &memoryAccounts{users: map[string]*model.User{
		"user-1": {ID: "user-1", Credits: 1},
	}}
	h := newHookHandler(store)

	req := signedHookRequest(t, "/webhooks/checkout", checkoutSecret, map[string]string{
		"type":    "checkout.completed",
		"user_id": "user-1",
		"pack_id": "pack_standard",
	})
	rec := httptest.NewRecorder()

	h.Checkout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	pack, _ := model.PackByID("pack_standard")
	if got := store.users["user-1"].Credits; got != 1+pack.Credits {
		t.Errorf("credits = %d, want %d", got, 1+pack.Credits)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := int64(resp["credits_added"].(float64)); got != pack.Credits {
		t.Errorf("credits_added = %d, want %d", got, pack.Credits)
	}
}

func TestHookHandler_Checkout_Errors(t *testing.T) {
	tests := []struct {
		name       string
		payload    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown pack",
			payload:    map[string]string{"type": "checkout.completed", "user_id": "user-1", "pack_id": "pack_bogus"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNKNOWN_PACK",
		},
		{
			name:       "unknown user",
			payload:    map[string]string{"type": "checkout.completed", "user_id": "ghost", "pack_id": "pack_starter"},
			wantStatus: http.StatusNotFound,
			wantCode:   "PROFILE_MISSING",
		},
		{
			name:       "missing fields",
			payload:    map[string]string{"type": "checkout.completed"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PAYLOAD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryAccounts{users: map[string]*model.User{
				"user-1": {ID: "user-1", Credits: 1},
			}}
			h := newHookHandler(store)

			req := signedHookRequest(t, "/webhooks/checkout", checkoutSecret, tt.payload)
			rec := httptest.NewRecorder()

			h.Checkout(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if code := decodeErrorCode(t, rec); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}
