package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kesara/purple/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.NotifyConfig{URL: url, Timeout: 5 * time.Second}, zerolog.Nop())
}

func TestNotifyChangedPayload(t *testing.T) {
	var gotBody map[string]string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("Invalid JSON payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if err := client.NotifyChanged(context.Background(), []int64{9, 3, 5}); err != nil {
		t.Fatalf("NotifyChanged failed: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Expected application/json, got %q", gotContentType)
	}
	if gotBody["rfcs"] != "3,5,9" {
		t.Errorf("Expected sorted comma-joined ids, got %q", gotBody["rfcs"])
	}
}

func TestNotifyChangedNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if err := client.NotifyChanged(context.Background(), []int64{1}); err == nil {
		t.Fatal("A non-2xx response must surface as an error")
	}
}

func TestNotifyChangedUnreachableSinkFails(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1/unreachable")
	if err := client.NotifyChanged(context.Background(), []int64{1}); err == nil {
		t.Fatal("A transport failure must surface as an error")
	}
}

func TestNotifyChangedNoURLConfigured(t *testing.T) {
	client := newTestClient("")
	if err := client.NotifyChanged(context.Background(), []int64{1, 2}); err != nil {
		t.Fatalf("An unconfigured sink drops the batch without error: %v", err)
	}
}
