package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const checkoutPattern = "/api/v1/checkout"

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestIdempotencyPolicyCoversCheckoutOnly(t *testing.T) {
	policy := NewIdempotencyPolicy(0, false)
	if policy.TTL != defaultIdempotencyTTL {
		t.Fatalf("expected default ttl, got %v", policy.TTL)
	}

	tests := []struct {
		method  string
		pattern string
		want    bool
	}{
		{http.MethodPost, checkoutPattern, true},
		{http.MethodGet, checkoutPattern, false},
		{http.MethodPost, "/api/v1/checkout/acknowledge", false},
		{http.MethodPost, "/api/v1/cart/items", false},
	}
	for _, tt := range tests {
		if got := policy.covers(tt.method, tt.pattern); got != tt.want {
			t.Fatalf("%s %s: expected %v got %v", tt.method, tt.pattern, tt.want, got)
		}
	}
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	mw := Idempotency(newFakeStore(), NewIdempotencyPolicy(time.Hour, false), nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, checkoutPattern, checkoutPattern, strings.NewReader(`{}`))
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
}

func TestIdempotencyRequiresHeaderWhenConfigured(t *testing.T) {
	mw := Idempotency(newFakeStore(), NewIdempotencyPolicy(time.Hour, true), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := requestWithPattern(http.MethodPost, checkoutPattern, checkoutPattern, strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), NewIdempotencyPolicy(time.Hour, false), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"state":"success_shown"}}`))
	})

	req := requestWithPattern(http.MethodPost, checkoutPattern, checkoutPattern, strings.NewReader(`{"notes":"x"}`))
	req.Header.Set("Idempotency-Key", "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := requestWithPattern(http.MethodPost, checkoutPattern, checkoutPattern, strings.NewReader(`{"notes":"x"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected replay status 200 got %d", rec.Code)
	}
	if rec.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected replay header")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"state":"success_shown"}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), NewIdempotencyPolicy(time.Hour, false), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, checkoutPattern, checkoutPattern, strings.NewReader(`{"notes":"a"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	changed := requestWithPattern(http.MethodPost, checkoutPattern, checkoutPattern, strings.NewReader(`{"notes":"b"}`))
	changed.Header.Set("Idempotency-Key", "xyz")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, changed)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestIdempotencyStoresOnlySuccess(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, NewIdempotencyPolicy(time.Hour, false), nil)
	statuses := []int{
		http.StatusBadGateway,
		http.StatusUnprocessableEntity,
		http.StatusBadRequest,
		http.StatusOK,
	}
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[calls])
		calls++
	})

	send := func() *httptest.ResponseRecorder {
		req := requestWithPattern(http.MethodPost, checkoutPattern, checkoutPattern, strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "retry")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		return rec
	}

	for i, want := range statuses {
		if rec := send(); rec.Code != want {
			t.Fatalf("attempt %d: expected %d got %d", i, want, rec.Code)
		}
	}
	if calls != len(statuses) {
		t.Fatalf("expected every retry to reach the handler, got %d calls", calls)
	}

	rec := send()
	if rec.Code != http.StatusOK || rec.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected the stored 200 to replay, got %d", rec.Code)
	}
	if calls != len(statuses) {
		t.Fatalf("replay reached the handler")
	}
}

func TestIdempotencyIgnoresUncoveredRoutes(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, NewIdempotencyPolicy(time.Hour, true), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/cart/items", "/api/v1/cart/items", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored")
	}
}
