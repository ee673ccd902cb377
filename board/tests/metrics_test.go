package tests

import (
	"bytes"
	"strings"
	"testing"
)

func TestMetricsExposition(t *testing.T) {
	env := setupTestEnv(t)

	client := env.newClient()
	if err := client.Get("/health").Do(nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := client.Get("/metrics").DoRaw(&buf); err != nil {
		t.Fatal(err)
	}

	body := buf.String()
	for _, metric := range []string{"sustainboard_requests_total", "sustainboard_request_seconds"} {
		if !strings.Contains(body, metric) {
			t.Fatalf("metrics exposition missing %v", metric)
		}
	}
}
