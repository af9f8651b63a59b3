package devlake

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Probe finds a reachable DevLake instance when no URL is configured.
// An explicit URL is verified; otherwise well-known localhost ports are
// tried in order.
func Probe(explicitURL string) (string, error) {
	if explicitURL != "" {
		u := strings.TrimRight(explicitURL, "/")
		if err := pingURL(u); err != nil {
			return "", fmt.Errorf("cannot reach DevLake at %s: %w", u, err)
		}
		return u, nil
	}

	for _, candidate := range []string{"http://localhost:8080", "http://localhost:8085"} {
		if err := pingURL(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("could not find a running DevLake instance (checked localhost:8080 and localhost:8085); set DEVLAKE_URL or pass --url")
}

func pingURL(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/ping")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
