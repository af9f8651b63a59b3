package devlake

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ftpr-metrics/devlake-bot/internal/config"
)

// testConfig builds a Config pointed at a test server.
func testConfig(baseURL string) *config.Config {
	return &config.Config{
		DevLakeURL:      baseURL,
		DevLakeAPIToken: "test-api-token",
		DashboardURL:    "http://grafana.example",
		GitHubEndpoint:  "https://api.github.com/",
		GitLabEndpoint:  "https://gitlab.example.com/api/v4/",
		HTTPTimeout:     5 * time.Second,
	}
}

func testClient(baseURL string) *Client {
	return NewClient(testConfig(baseURL), zerolog.Nop())
}

func TestDoRetriesOnceOn401(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"id": 7})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	var out struct {
		ID int `json:"id"`
	}
	if err := c.do(http.MethodGet, "/api/thing", nil, nil, &out); err != nil {
		t.Fatalf("do() = %v, want nil", err)
	}
	if out.ID != 7 {
		t.Errorf("out.ID = %d, want 7", out.ID)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
}

func TestDoSecond401IsHardFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	err := c.do(http.MethodGet, "/api/thing", nil, nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("do() = %v, want *RemoteError", err)
	}
	if remote.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", remote.Status)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server saw %d requests, want exactly 2 (one retry)", n)
	}
}

// A single Client is shared by concurrent callers, and expired sessions
// can reject several of them at once. Every call must recover with
// exactly one retry and no shared-state mutation.
func TestDoConcurrent401Refresh(t *testing.T) {
	var mu sync.Mutex
	attempts := make(map[string]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts[r.URL.Path]++
		first := attempts[r.URL.Path] == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.do(http.MethodGet, fmt.Sprintf("/api/thing/%d", i), nil, nil, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d = %v, want nil", i, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != callers {
		t.Fatalf("server saw %d paths, want %d", len(attempts), callers)
	}
	for path, n := range attempts {
		if n != 2 {
			t.Errorf("server saw %d requests for %s, want exactly 2 (one retry)", n, path)
		}
	}
}

func TestDoErrorNeverCarriesRequestPayload(t *testing.T) {
	const secret = "ghp_supersecrettoken"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"name already used"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	payload := &ConnectionCreateRequest{Name: "demo", Token: secret}
	err := c.do(http.MethodPost, "/api/plugins/github/connections", nil, payload, nil)
	if err == nil {
		t.Fatal("do() = nil, want error")
	}
	if strings.Contains(err.Error(), secret) {
		t.Errorf("error %q leaks the request payload", err)
	}
	if !strings.Contains(err.Error(), "name already used") {
		t.Errorf("error %q should carry the remote message", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error %q should carry the status code", err)
	}
}

func TestDoSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if err := c.Ping(); err != nil {
		t.Fatalf("Ping() = %v", err)
	}
	if gotAuth != "Bearer test-api-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-api-token")
	}
}

func TestDoTruncatesLongErrorBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	err := c.do(http.MethodGet, "/api/thing", nil, nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("do() = %v, want *RemoteError", err)
	}
	if len(remote.Message) > maxErrorBody+10 {
		t.Errorf("message length = %d, want <= %d plus ellipsis", len(remote.Message), maxErrorBody)
	}
	if !strings.HasSuffix(remote.Message, "...") {
		t.Errorf("truncated message should end with ellipsis, got %q", remote.Message[len(remote.Message)-10:])
	}
}

func TestPutScopesParsesListAndSingle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "list of envelopes", body: `[{"scope":{"githubId":42}},{"scope":{"githubId":43}}]`, want: 2},
		{name: "single envelope", body: `{"scope":{"githubId":42}}`, want: 1},
		{name: "empty list", body: `[]`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			envelopes, err := c.putScopes(PluginGitHub, 1, []any{map[string]int{"githubId": 42}})
			if err != nil {
				t.Fatalf("putScopes() = %v", err)
			}
			if len(envelopes) != tt.want {
				t.Errorf("len(envelopes) = %d, want %d", len(envelopes), tt.want)
			}
		})
	}
}

func TestScopeEnvelopeRepoID(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int
	}{
		{name: "nested github scope", json: `{"scope":{"githubId":42}}`, want: 42},
		{name: "nested gitlab scope", json: `{"scope":{"gitlabId":17}}`, want: 17},
		{name: "flat github id", json: `{"githubId":42}`, want: 42},
		{name: "flat gitlab id", json: `{"gitlabId":17}`, want: 17},
		{name: "nested wins over flat", json: `{"scope":{"githubId":42},"githubId":1}`, want: 42},
		{name: "nothing", json: `{}`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e scopeEnvelope
			if err := json.Unmarshal([]byte(tt.json), &e); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := e.repoID(); got != tt.want {
				t.Errorf("repoID() = %d, want %d", got, tt.want)
			}
		})
	}
}
