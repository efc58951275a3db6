package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/asala-storefront/internal/catalog"
	"github.com/angelmondragon/asala-storefront/internal/orders"
	"github.com/angelmondragon/asala-storefront/internal/storefront"
	"github.com/angelmondragon/asala-storefront/pkg/config"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
	"github.com/angelmondragon/asala-storefront/pkg/redis"
	"github.com/angelmondragon/asala-storefront/pkg/telegram"
)

const testChatID = "-100200300"

type telegramStub struct {
	server   *httptest.Server
	hits     atomic.Int32
	status   atomic.Int32
	mu       sync.Mutex
	bodies   [][]byte
	gate     chan struct{}
	received chan struct{}
}

func newTelegramStub(t *testing.T) *telegramStub {
	t.Helper()
	stub := &telegramStub{received: make(chan struct{}, 8)}
	stub.status.Store(http.StatusOK)
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stub.mu.Lock()
		stub.bodies = append(stub.bodies, body)
		gate := stub.gate
		stub.mu.Unlock()
		stub.hits.Add(1)
		stub.received <- struct{}{}
		if gate != nil {
			<-gate
		}

		status := int(stub.status.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status < 300 {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1700000000}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *telegramStub) lastBody(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.bodies)
	var out map[string]any
	require.NoError(t, json.Unmarshal(s.bodies[len(s.bodies)-1], &out))
	return out
}

type testApp struct {
	handler  http.Handler
	telegram *telegramStub
	sessions *storefront.Registry
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:            "test",
			Port:           "0",
			StoreName:      "متجر الأصالة",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Telegram: config.TelegramConfig{BotToken: "123:abc", ChatID: testChatID},
		Session: config.SessionConfig{
			CookieName: "asala_session",
			IdleTTL:    time.Hour,
		},
		Checkout: config.CheckoutConfig{
			RateLimitWindow: time.Minute,
			IPLimit:         100,
			SessionLimit:    100,
			IdempotencyTTL:  time.Hour,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, redisClient *redis.Client) *testApp {
	t.Helper()
	stub := newTelegramStub(t)

	client, err := telegram.NewClient(cfg.Telegram.BotToken, telegram.WithBaseURL(stub.server.URL))
	require.NoError(t, err)
	sender, err := orders.NewTelegramSender(client, cfg.Telegram.ChatID)
	require.NoError(t, err)

	products, err := catalog.Default()
	require.NoError(t, err)

	sessions := storefront.NewRegistry(orders.Composer{StoreName: cfg.App.StoreName}, sender)
	handler := NewRouter(cfg, logger.Nop(), products, sessions, redisClient, http.NotFoundHandler())
	return &testApp{handler: handler, telegram: stub, sessions: sessions}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type viewBody struct {
	SessionID      string `json:"session_id"`
	State          string `json:"state"`
	CartOpen       bool   `json:"cart_open"`
	SuccessVisible bool   `json:"success_visible"`
	ItemCount      int    `json:"item_count"`
	Total          string `json:"total"`
	LastError      string `json:"last_error"`
	Lines          []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"lines"`
	Customer struct {
		Name string `json:"name"`
	} `json:"customer"`
}

func (a *testApp) do(t *testing.T, method, path, sessionID string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set("X-Session-Id", sessionID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewBody {
	t.Helper()
	env := decode(t, rec)
	require.Nil(t, env.Error, rec.Body.String())
	var view viewBody
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

// readyCart opens a session with two units of product 1, an open drawer and
// complete customer details, returning the session id.
func (a *testApp) readyCart(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodGet, "/api/v1/session", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Session-Id")
	require.NotEmpty(t, id)

	for i := 0; i < 2; i++ {
		rec = a.do(t, http.MethodPost, "/api/v1/cart/items", id, map[string]string{"product_id": "1"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = a.do(t, http.MethodPost, "/api/v1/cart/open", id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPatch, "/api/v1/customer", id, map[string]string{
		"name":          "سارة",
		"contact":       "+966500000000",
		"delivery_date": "2026-10-20",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

func TestHealthLive(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	rec := app.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Asala-Env"))

	rec = app.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	rec := app.do(t, http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &products))
	assert.Len(t, products, 4)

	rec = app.do(t, http.MethodGet, "/api/v1/catalog/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec).Error.Code)
}

func TestSessionCookieIsIssuedAndReused(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	first := app.do(t, http.MethodGet, "/api/v1/session", "", nil)
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "asala_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.AddCookie(cookies[0])
	second := httptest.NewRecorder()
	app.handler.ServeHTTP(second, req)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, cookies[0].Value, decodeView(t, second).SessionID)
	assert.Empty(t, second.Result().Cookies())

	forged := app.do(t, http.MethodGet, "/api/v1/session", "not-a-uuid", nil)
	assert.NotEqual(t, "not-a-uuid", decodeView(t, forged).SessionID)
	assert.Equal(t, 2, app.sessions.Len())
}

func TestCartRoutes(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	id := app.readyCart(t)

	rec := app.do(t, http.MethodPatch, "/api/v1/cart/items/1", id, map[string]int{"delta": -5})
	view := decodeView(t, rec)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 1, view.Lines[0].Quantity)

	rec = app.do(t, http.MethodPatch, "/api/v1/cart/items/1", id, map[string]int{"delta": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/cart/items", id, map[string]string{"product_id": "99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, "/api/v1/cart/items/1", id, nil)
	view = decodeView(t, rec)
	assert.Empty(t, view.Lines)
	assert.Equal(t, "0.00", view.Total)

	rec = app.do(t, http.MethodPost, "/api/v1/cart/close", id, nil)
	view = decodeView(t, rec)
	assert.Equal(t, "idle", view.State)
	assert.False(t, view.CartOpen)
}

func TestCheckoutDeliversOrder(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	id := app.readyCart(t)

	rec := app.do(t, http.MethodPost, "/api/v1/checkout", id, map[string]string{"notes": "بدون سكر"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Order-Ref"))

	view := decodeView(t, rec)
	assert.Equal(t, "success_shown", view.State)
	assert.True(t, view.SuccessVisible)
	assert.Empty(t, view.Lines)
	assert.Empty(t, view.Customer.Name)

	require.EqualValues(t, 1, app.telegram.hits.Load())
	sent := app.telegram.lastBody(t)
	assert.Equal(t, testChatID, sent["chat_id"])
	assert.Equal(t, "Markdown", sent["parse_mode"])
	text, _ := sent["text"].(string)
	assert.Contains(t, text, "سارة")
	assert.Contains(t, text, "بدون سكر")

	rec = app.do(t, http.MethodPost, "/api/v1/checkout/acknowledge", id, nil)
	assert.Equal(t, "idle", decodeView(t, rec).State)
}

func TestCheckoutDeliveryFailureKeepsCart(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	app.telegram.status.Store(http.StatusBadRequest)
	id := app.readyCart(t)

	rec := app.do(t, http.MethodPost, "/api/v1/checkout", id, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DELIVERY_FAILED", env.Error.Code)
	assert.Equal(t, storefront.DeliveryFailedMessage, env.Error.Message)
	assert.NotContains(t, rec.Body.String(), "chat not found")

	view := decodeView(t, app.do(t, http.MethodGet, "/api/v1/session", id, nil))
	assert.Equal(t, "cart_open", view.State)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, "سارة", view.Customer.Name)
	assert.Equal(t, storefront.DeliveryFailedMessage, view.LastError)

	view = decodeView(t, app.do(t, http.MethodPost, "/api/v1/checkout/dismiss-error", id, nil))
	assert.Empty(t, view.LastError)

	app.telegram.status.Store(http.StatusOK)
	rec = app.do(t, http.MethodPost, "/api/v1/checkout", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, app.telegram.hits.Load())
}

func TestCheckoutRejectsConcurrentSubmit(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	gate := make(chan struct{})
	app.telegram.mu.Lock()
	app.telegram.gate = gate
	app.telegram.mu.Unlock()
	id := app.readyCart(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.Header.Set("X-Session-Id", id)
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		done <- rec
	}()

	select {
	case <-app.telegram.received:
	case <-time.After(5 * time.Second):
		t.Fatal("telegram stub never received the order")
	}

	rec := app.do(t, http.MethodPost, "/api/v1/checkout", id, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SUBMISSION_IN_FLIGHT", decode(t, rec).Error.Code)

	view := decodeView(t, app.do(t, http.MethodGet, "/api/v1/session", id, nil))
	assert.Equal(t, "submitting", view.State)

	close(gate)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
	assert.EqualValues(t, 1, app.telegram.hits.Load())
}

func TestCheckoutRequiresOpenDrawer(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	id := app.readyCart(t)
	app.do(t, http.MethodPost, "/api/v1/cart/close", id, nil)

	rec := app.do(t, http.MethodPost, "/api/v1/checkout", id, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "STATE_CONFLICT", decode(t, rec).Error.Code)
	assert.Zero(t, app.telegram.hits.Load())
}

func TestCheckoutRejectedForStateKeepsDetails(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	id := app.readyCart(t)
	app.do(t, http.MethodPost, "/api/v1/cart/close", id, nil)

	rec := app.do(t, http.MethodPost, "/api/v1/checkout", id, map[string]string{"name": "غيره"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/session", id, nil)
	assert.Equal(t, "سارة", decodeView(t, rec).Customer.Name)
}

func TestCheckoutValidation(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	rec := app.do(t, http.MethodGet, "/api/v1/session", "", nil)
	id := rec.Header().Get("X-Session-Id")
	app.do(t, http.MethodPost, "/api/v1/cart/open", id, nil)

	rec = app.do(t, http.MethodPost, "/api/v1/checkout", id, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)

	app.do(t, http.MethodPost, "/api/v1/cart/items", id, map[string]string{"product_id": "2"})
	rec = app.do(t, http.MethodPost, "/api/v1/checkout", id, map[string]string{"name": "علي"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Contains(t, env.Error.Details, "contact")
	assert.Contains(t, env.Error.Details, "delivery_date")

	rec = app.do(t, http.MethodPost, "/api/v1/checkout", id, map[string]string{"unknown": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, app.telegram.hits.Load())
}

func newMiniredisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.Wrap(raw)
}

func TestCheckoutReplaysIdempotentRequest(t *testing.T) {
	app := newTestApp(t, testConfig(), newMiniredisClient(t))
	id := app.readyCart(t)

	first := app.do(t, http.MethodPost, "/api/v1/checkout", id, nil, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := app.do(t, http.MethodPost, "/api/v1/checkout", id, nil, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, app.telegram.hits.Load())

	rec := app.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutRetryAfterStateConflictWithSameKey(t *testing.T) {
	app := newTestApp(t, testConfig(), newMiniredisClient(t))
	id := app.readyCart(t)
	app.do(t, http.MethodPost, "/api/v1/cart/close", id, nil)

	rec := app.do(t, http.MethodPost, "/api/v1/checkout", id, nil, "Idempotency-Key", "order-2")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/cart/open", id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/v1/checkout", id, nil, "Idempotency-Key", "order-2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Idempotent-Replay"))
	assert.Equal(t, "success_shown", decodeView(t, rec).State)
	assert.EqualValues(t, 1, app.telegram.hits.Load())
}

func TestCheckoutRateLimitedPerSession(t *testing.T) {
	cfg := testConfig()
	cfg.Checkout.SessionLimit = 1
	app := newTestApp(t, cfg, newMiniredisClient(t))
	app.telegram.status.Store(http.StatusInternalServerError)
	id := app.readyCart(t)

	rec := app.do(t, http.MethodPost, "/api/v1/checkout", id, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/checkout", id, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode(t, rec).Error.Code)
	assert.EqualValues(t, 1, app.telegram.hits.Load())
}

func TestSessionEventsStreamsViews(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)
	server := httptest.NewServer(app.handler)
	t.Cleanup(server.Close)

	rec := app.do(t, http.MethodGet, "/api/v1/session", "", nil)
	id := rec.Header().Get("X-Session-Id")

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/session/events", nil)
	require.NoError(t, err)
	req.Header.Set("X-Session-Id", id)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 4)
	go func() {
		buf := make([]byte, 4096)
		var pending strings.Builder
		for {
			n, readErr := resp.Body.Read(buf)
			pending.Write(buf[:n])
			for {
				text := pending.String()
				idx := strings.Index(text, "\n\n")
				if idx < 0 {
					break
				}
				events <- text[:idx]
				pending.Reset()
				pending.WriteString(text[idx+2:])
			}
			if readErr != nil {
				close(events)
				return
			}
		}
	}()

	next := func() string {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed")
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("no event received")
			return ""
		}
	}

	initial := next()
	assert.True(t, strings.HasPrefix(initial, "event: view\n"))
	assert.Contains(t, initial, `"item_count":0`)

	app.do(t, http.MethodPost, "/api/v1/cart/items", id, map[string]string{"product_id": "3"})
	assert.Contains(t, next(), `"item_count":1`)
}
