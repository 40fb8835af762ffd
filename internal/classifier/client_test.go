package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/observability"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.ClassifierConfig{
		BaseURL:                baseURL,
		HealthTimeoutSeconds:   1,
		ClassifyTimeoutSeconds: 1,
	}
	return NewClient(cfg, zap.NewNop(), observability.NewMetrics())
}

func TestClient_ProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if client.Available() {
		t.Error("client available before probe")
	}
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !client.Available() {
		t.Error("client not available after successful probe")
	}
}

func TestClient_ProbeFailureFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if err := client.Probe(context.Background()); err == nil {
		t.Fatal("Probe succeeded against a broken service")
	}

	// Unavailable remote means the rule engine answers.
	got := client.Classify(context.Background(), "Bom dia", false)
	want := RuleClassify("Bom dia", false)
	if got != want {
		t.Errorf("Classify = %+v, want rule engine result %+v", got, want)
	}
}

func TestClient_ReprobeRecovers(t *testing.T) {
	var healthy bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if err := client.Probe(context.Background()); err == nil {
		t.Fatal("Probe succeeded against an unhealthy service")
	}
	if client.Available() {
		t.Error("client available after failed probe")
	}

	// The service recovers; a later probe flips the client back to remote.
	healthy = true
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("Probe after recovery: %v", err)
	}
	if !client.Available() {
		t.Error("client not available after successful re-probe")
	}
}

func TestClient_RemoteClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/classify":
			var req struct {
				Text            string `json:"text"`
				HasActiveTicket bool   `json:"hasActiveTicket"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.Text != "minha impressora pegou fogo" || !req.HasActiveTicket {
				t.Errorf("unexpected request payload: %+v", req)
			}
			_ = json.NewEncoder(w).Encode(Result{
				Intent:            "new_ticket",
				Confidence:        0.93,
				ShouldRouteToTech: true,
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	got := client.Classify(context.Background(), "minha impressora pegou fogo", true)
	want := Result{Intent: "new_ticket", Confidence: 0.93, ShouldRouteToTech: true}
	if got != want {
		t.Errorf("Classify = %+v, want remote result %+v", got, want)
	}
}

func TestClient_RemoteFailureFallsBackSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/classify":
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	got := client.Classify(context.Background(), "xyz123", true)
	want := RuleClassify("xyz123", true)
	if got != want {
		t.Errorf("Classify = %+v, want fallback %+v", got, want)
	}
}

func TestClient_TimeoutFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/classify":
			time.Sleep(2 * time.Second)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	start := time.Now()
	got := client.Classify(context.Background(), "oi", true)
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("Classify took %v, timeout not enforced", elapsed)
	}
	want := RuleClassify("oi", true)
	if got != want {
		t.Errorf("Classify = %+v, want fallback %+v", got, want)
	}
}
