package devlake

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProbeExplicitURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	url, err := Probe(srv.URL + "/")
	if err != nil {
		t.Fatalf("Probe() = %v", err)
	}
	if url != srv.URL {
		t.Errorf("Probe() = %q, want %q (trailing slash trimmed)", url, srv.URL)
	}
}

func TestProbeExplicitURLUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Probe(srv.URL)
	if err == nil {
		t.Fatal("Probe() = nil, want error for a failing /ping")
	}
	if !strings.Contains(err.Error(), "cannot reach DevLake") {
		t.Errorf("err = %v", err)
	}
}
