package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mdnooraj/folio/internal/contact"
	"github.com/mdnooraj/folio/internal/page"
	"github.com/mdnooraj/folio/internal/storage"
)

const testToken = "admin-secret"

type testEnv struct {
	handler http.Handler
	store   *storage.Store
	clock   *clockwork.FakeClock
}

func newTestEnv(t *testing.T, rateLimit int) testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	prof := testProfile()
	renderer, err := page.New(prof.Record())
	if err != nil {
		t.Fatalf("page.New: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

	h := NewRouter(Deps{
		Profile:    prof,
		Page:       renderer,
		Contact:    contact.NewService(store, clock, nil),
		Inbox:      store,
		Assistant:  http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		AdminToken: testToken,
		RateLimit:  rateLimit,
		Clock:      clock,
	})
	return testEnv{handler: h, store: store, clock: clock}
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(vals url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonContact(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authed(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status=ok", body)
	}
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<h1>Ada Lovelace</h1>") || !strings.Contains(body, "&copy; 2026 Ada Lovelace") {
		t.Error("page missing name or footer year")
	}
	if strings.Contains(body, `class="notice"`) {
		t.Error("notice rendered without a submission")
	}
}

func TestIndex_ThanksNotice(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/?thanks=Bob", nil))
	if !strings.Contains(rr.Body.String(), "Thank you, Bob! Your message has been received.") {
		t.Error("acknowledgement missing")
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/static/widget.js", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "WebSocket") {
		t.Errorf("widget.js status = %d", rr.Code)
	}
}

func TestProfileJSON(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "Ada Lovelace" {
		t.Errorf("name = %v", body["name"])
	}
}

func TestAssistantRoute(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/ws/assistant", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want assistant handler", rr.Code)
	}
}

func TestContactForm_Success(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(formRequest(url.Values{
		"name":    {" Bob "},
		"email":   {"bob@example.com"},
		"message": {"Hi there"},
	}))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/?thanks=Bob#contact" {
		t.Errorf("Location = %q", loc)
	}

	msgs, err := env.store.ListContactMessages(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Name != "Bob" || msgs[0].RemoteAddr != "192.0.2.1" {
		t.Errorf("stored = %+v", msgs)
	}
}

func TestContactForm_Invalid(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(formRequest(url.Values{
		"name":    {"Bob"},
		"email":   {"not-an-email"},
		"message": {"Hi"},
	}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Email must be a valid email address") {
		t.Error("field error missing")
	}
	if !strings.Contains(body, `value="not-an-email"`) {
		t.Error("form values not preserved")
	}
	if n, _ := env.store.CountContactMessages(context.Background()); n != 0 {
		t.Errorf("invalid submission stored (%d)", n)
	}
}

func TestContactJSON(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(jsonContact(`{"name":"Eve","email":"eve@example.com","message":"Hello"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var receipt contact.Receipt
	if err := json.NewDecoder(rr.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if receipt.ID == "" || receipt.Acknowledgement != "Thank you, Eve! Your message has been received." {
		t.Errorf("receipt = %+v", receipt)
	}
	if _, err := env.store.GetContactMessage(context.Background(), receipt.ID); err != nil {
		t.Errorf("stored message: %v", err)
	}
}

func TestContactJSON_Errors(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(jsonContact(`{"name":"","email":"x","message":""}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	var body struct {
		Error struct {
			Type   string               `json:"type"`
			Fields []contact.FieldError `json:"fields"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Type != "invalid_request_error" || len(body.Error.Fields) != 3 {
		t.Errorf("error = %+v", body.Error)
	}

	rr = env.do(jsonContact(`{not json`))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rr.Code)
	}
}

func TestContact_RateLimited(t *testing.T) {
	env := newTestEnv(t, 2)
	body := `{"name":"Eve","email":"eve@example.com","message":"Hello"}`

	for i := 0; i < 2; i++ {
		if rr := env.do(jsonContact(body)); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
	}
	rr := env.do(jsonContact(body))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	other := jsonContact(body)
	other.RemoteAddr = "198.51.100.7:1234"
	if rr := env.do(other); rr.Code != http.StatusCreated {
		t.Errorf("other client status = %d, want 201", rr.Code)
	}

	env.clock.Advance(30 * time.Second)
	if rr := env.do(jsonContact(body)); rr.Code != http.StatusCreated {
		t.Errorf("after refill status = %d, want 201", rr.Code)
	}
}

func TestInbox_RequiresToken(t *testing.T) {
	env := newTestEnv(t, 0)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/inbox", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/inbox", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if rr := env.do(req); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rr.Code)
	}
}

func TestInbox_DisabledWithoutToken(t *testing.T) {
	h := NewRouter(Deps{Profile: testProfile()})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/inbox", nil)
	req.Header.Set("Authorization", "Bearer ")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestInbox_ListGetDelete(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	base := env.clock.Now()
	for i, id := range []string{"a", "b", "c"} {
		m := storage.ContactMessage{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute), Name: "N", Email: "n@x.io", Message: "m"}
		if err := env.store.SaveContactMessage(ctx, m); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	rr := env.do(authed(http.MethodGet, "/api/inbox?limit=2"))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var pg InboxPage
	if err := json.NewDecoder(rr.Body).Decode(&pg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pg.Total != 3 || len(pg.Messages) != 2 || pg.Messages[0].ID != "c" {
		t.Errorf("page = %+v", pg)
	}

	rr = env.do(authed(http.MethodGet, "/api/inbox/b"))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	rr = env.do(authed(http.MethodDelete, "/api/inbox/b"))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := env.do(authed(http.MethodGet, "/api/inbox/b")); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rr.Code)
	}
	if rr := env.do(authed(http.MethodDelete, "/api/inbox/b")); rr.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rr.Code)
	}
}

func TestInbox_EmptyListIsArray(t *testing.T) {
	env := newTestEnv(t, 0)
	rr := env.do(authed(http.MethodGet, "/api/inbox"))
	if !strings.Contains(rr.Body.String(), `"messages":[]`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestParseIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-3&bad=x", nil)
	if got := parseIntParam(req, "limit", 20, 100); got != 100 {
		t.Errorf("limit = %d, want capped 100", got)
	}
	if got := parseIntParam(req, "offset", 0, 0); got != 0 {
		t.Errorf("offset = %d, want default", got)
	}
	if got := parseIntParam(req, "bad", 7, 0); got != 7 {
		t.Errorf("bad = %d, want default", got)
	}
}
