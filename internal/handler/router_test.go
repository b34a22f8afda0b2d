package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	chatService "github.com/zhouzirui/mannmitra/backend/internal/service/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/service/response"
	"github.com/zhouzirui/mannmitra/backend/internal/storage"
)

func newTestRouter(t *testing.T) http.Handler {
	r, _ := newTestRouterWithStore(t)
	return r
}

func newTestRouterWithStore(t *testing.T) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(storage.Config{Type: storage.TypeSQLite, DSN: "file:" + t.Name() + "?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("storage.Open err: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := chatService.NewService(chatService.Options{}, clock.NewMock(), response.NewGenerator(), nil, nil)
	return NewRouter(store, svc, time.Second), store
}

func TestRouterMountsAPI(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodOptions, "/api/sessions", "", http.StatusNoContent},
		{http.MethodPost, "/api/sessions", `{"userId":"u1"}`, http.StatusCreated},
		{http.MethodGet, "/api/mood/u1", "", http.StatusOK},
		{http.MethodGet, "/api/recommendations/sad", "", http.StatusOK},
		{http.MethodGet, "/api/stream/missing", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
}

func TestHealthReportsStoreFailure(t *testing.T) {
	r, store := newTestRouterWithStore(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with a live store, got %d", resp.Code)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 once the store is closed, got %d", resp.Code)
	}
}
