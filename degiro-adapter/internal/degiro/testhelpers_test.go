package degiro

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret     = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	testSessionID  = "abc123"
	testIntAccount = int64(12345678)
)

// testNow is 1111111109, whose RFC 6238 code for testSecret is 081804.
var testNow = time.Unix(1111111109, 0)

// recordedRequest is what the fake broker saw for one call.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// fakeBroker routes on method and the path before any ;jsessionid suffix.
type fakeBroker struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	seen   map[string][]recordedRequest
}

func newFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	b := &fakeBroker{
		t:      t,
		routes: make(map[string]http.HandlerFunc),
		seen:   make(map[string][]recordedRequest),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func routeKey(method, path string) string {
	base, _, _ := strings.Cut(path, ";")
	return method + " " + base
}

func (b *fakeBroker) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := routeKey(r.Method, r.URL.Path)

	b.mu.Lock()
	b.seen[key] = append(b.seen[key], recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := b.routes[key]
	b.mu.Unlock()

	if !ok {
		http.Error(w, "no route for "+key, http.StatusNotFound)
		return
	}
	h(w, r)
}

func (b *fakeBroker) handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[routeKey(method, path)] = h
}

// reply registers a canned JSON response.
func (b *fakeBroker) reply(method, path string, status int, body string) {
	b.handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (b *fakeBroker) requests(method, path string) []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedRequest(nil), b.seen[routeKey(method, path)]...)
}

func (b *fakeBroker) last(method, path string) recordedRequest {
	b.t.Helper()
	reqs := b.requests(method, path)
	require.NotEmpty(b.t, reqs, "no request for %s %s", method, path)
	return reqs[len(reqs)-1]
}

// acceptLogin wires the login and account binding endpoints for a successful login.
func (b *fakeBroker) acceptLogin() {
	b.reply(http.MethodPost, "/login/secure/login/totp", http.StatusOK, `{
		"captchaRequired": false,
		"isPassCodeEnabled": true,
		"locale": "en_US",
		"redirectUrl": "https://trader.degiro.nl/trader/",
		"sessionId": "abc123",
		"status": 0,
		"statusText": "success",
		"userTokens": []
	}`)
	b.reply(http.MethodGet, "/pa/secure/client", http.StatusOK, `{
		"data": {"intAccount": 12345678, "username": "testuser", "email": "testuser@example.com"}
	}`)
}

func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL: baseURL,
		Credentials: Credentials{
			Username:   "TEST",
			Password:   "secret-password",
			TOTPSecret: testSecret,
		},
		Timeout: 2 * time.Second,
		Now:     func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(zap.NewNop(), cfg)
	require.NoError(t, err)
	return c
}

// activate puts c straight into StageActive without a login round trip.
func activate(c *Client) {
	c.state.begin(testSessionID)
	_ = c.state.bind(testIntAccount)
}
