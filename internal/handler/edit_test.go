package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/reimagine/reimagine/internal/auth"
	"github.com/reimagine/reimagine/internal/handler/dto"
	"github.com/reimagine/reimagine/internal/model"
	"github.com/reimagine/reimagine/internal/repository"
	"github.com/reimagine/reimagine/internal/service"
)

// memoryLedger backs handler tests with an in-memory balance store.
type memoryLedger struct {
	mu      sync.Mutex
	credits map[string]int64
}

func newMemoryLedger(balances map[string]int64) *memoryLedger {
	credits := make(map[string]int64, len(balances))
	for k, v := range balances {
		credits[k] = v
	}
	return &memoryLedger{credits: credits}
}

func (m *memoryLedger) TryDecrementCredits(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.credits[userID]
	if !ok {
		return false, repository.ErrUserNotFound
	}
	if balance < 1 {
		return false, nil
	}
	m.credits[userID] = balance - 1
	return true, nil
}

func (m *memoryLedger) AddCredits(ctx context.Context, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credits[userID]; !ok {
		return repository.ErrUserNotFound
	}
	m.credits[userID] += amount
	return nil
}

func (m *memoryLedger) balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credits[userID]
}

// stubEditor returns a fixed result or error.
type stubEditor struct {
	err error
}

func (s *stubEditor) Edit(ctx context.Context, image []byte, mediaType, instruction string) (*model.EditResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.EditResult{Image: []byte("edited-bytes"), MediaType: model.MediaTypePNG}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEditHandler(ledger service.Ledger, editor *stubEditor) *EditHandler {
	svc := service.NewEditService(service.EditServiceConfig{
		Ledger:          ledger,
		Editor:          editor,
		Logger:          discardLogger(),
		ProviderTimeout: 5 * time.Second,
	})
	return NewEditHandler(svc, discardLogger())
}

func editRequestBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(dto.EditRequest{
		Image:       base64.StdEncoding.EncodeToString([]byte("raw-image")),
		MediaType:   model.MediaTypePNG,
		Instruction: "remove the background",
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func authedRequest(method, target string, body io.Reader, userID string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := auth.ContextWithAuth(req.Context(), &model.AuthContext{UserID: userID, Email: userID + "@example.test"})
	return req.WithContext(ctx)
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestEditHandler_Create(t *testing.T) {
	ledger := newMemoryLedger(map[string]int64{"user-1": 5})
	h := newEditHandler(ledger, &stubEditor{})

	req := authedRequest(http.MethodPost, "/api/v1/edits", editRequestBody(t), "user-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp dto.EditResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EditID == "" {
		t.Error("edit_id is empty")
	}
	decoded, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		t.Fatalf("response image is not base64: %v", err)
	}
	if string(decoded) != "edited-bytes" {
		t.Errorf("image = %q, want edited-bytes", decoded)
	}
	if ledger.balance("user-1") != 4 {
		t.Errorf("balance = %d, want 4", ledger.balance("user-1"))
	}
}

func TestEditHandler_Create_Unauthenticated(t *testing.T) {
	ledger := newMemoryLedger(map[string]int64{"user-1": 5})
	h := newEditHandler(ledger, &stubEditor{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edits", editRequestBody(t))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", code)
	}
	if ledger.balance("user-1") != 5 {
		t.Errorf("balance = %d, want 5 (no spend without identity)", ledger.balance("user-1"))
	}
}

func TestEditHandler_Create_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "malformed json",
			body:     `{"image": `,
			wantCode: "INVALID_JSON",
		},
		{
			name:     "image not base64",
			body:     `{"image":"***","media_type":"image/png","instruction":"crop"}`,
			wantCode: "INVALID_PAYLOAD",
		},
		{
			name:     "unsupported media type",
			body:     `{"image":"aGVsbG8=","media_type":"image/tiff","instruction":"crop"}`,
			wantCode: "INVALID_PAYLOAD",
		},
		{
			name:     "blank instruction",
			body:     `{"image":"aGVsbG8=","media_type":"image/png","instruction":"  "}`,
			wantCode: "INVALID_PAYLOAD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newMemoryLedger(map[string]int64{"user-1": 5})
			h := newEditHandler(ledger, &stubEditor{})

			req := authedRequest(http.MethodPost, "/api/v1/edits", bytes.NewBufferString(tt.body), "user-1")
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if ledger.balance("user-1") != 5 {
				t.Errorf("balance = %d, want 5", ledger.balance("user-1"))
			}
		})
	}
}

func TestEditHandler_Create_NoCredit(t *testing.T) {
	ledger := newMemoryLedger(map[string]int64{"user-1": 0})
	h := newEditHandler(ledger, &stubEditor{})

	req := authedRequest(http.MethodPost, "/api/v1/edits", editRequestBody(t), "user-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "NO_CREDIT" {
		t.Errorf("code = %q, want NO_CREDIT", code)
	}
}

func TestEditHandler_Create_ProfileMissing(t *testing.T) {
	ledger := newMemoryLedger(nil)
	h := newEditHandler(ledger, &stubEditor{})

	req := authedRequest(http.MethodPost, "/api/v1/edits", editRequestBody(t), "ghost")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "PROFILE_MISSING" {
		t.Errorf("code = %q, want PROFILE_MISSING", code)
	}
}

func TestEditHandler_Create_ProviderFailureRefunds(t *testing.T) {
	ledger := newMemoryLedger(map[string]int64{"user-1": 3})
	h := newEditHandler(ledger, &stubEditor{err: errors.New("model overloaded")})

	req := authedRequest(http.MethodPost, "/api/v1/edits", editRequestBody(t), "user-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "PROVIDER_FAILURE" {
		t.Errorf("code = %q, want PROVIDER_FAILURE", code)
	}
	if ledger.balance("user-1") != 3 {
		t.Errorf("balance = %d, want 3 (refunded)", ledger.balance("user-1"))
	}
}
