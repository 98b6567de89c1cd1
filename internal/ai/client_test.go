package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"compliance-packet/backend/internal/packet"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func validPacketJSON() string {
	return `{
		"safety": {"score": 0.2, "category": "low_risk", "flags": []},
		"copyright": {"risk": 0.1, "assessment": "unlikely_infringing", "reason": "original prose"},
		"privacy": {"piiDetected": false, "piiTypes": [], "notes": []},
		"overall": {"complianceScore": 0.8, "recommendation": "allow", "notes": []},
		"meta": {"inputId": "provider-spoofed", "checkedAt": "2020-01-01T00:00:00Z", "modelVersion": "provider-claims"}
	}`
}

func TestEvaluateScoredResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		fmt.Fprint(w, completionBody(validPacketJSON()))
	})

	outcome := client.Evaluate(context.Background(), "some content")
	if !outcome.Scored {
		t.Fatal("expected a scored outcome")
	}
	if outcome.Packet.Overall.Recommendation != packet.RecommendAllow {
		t.Fatalf("unexpected recommendation %q", outcome.Packet.Overall.Recommendation)
	}
	if outcome.Packet.Meta.ModelVersion != "test-model" {
		t.Fatalf("model version not overwritten: %q", outcome.Packet.Meta.ModelVersion)
	}
	if outcome.Packet.Meta.InputID != "" || !outcome.Packet.Meta.CheckedAt.IsZero() {
		t.Fatal("provider-reported provenance must be erased")
	}
}

func TestEvaluateAcceptsFencedJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("```json\n"+validPacketJSON()+"\n```"))
	})
	if outcome := client.Evaluate(context.Background(), "text"); !outcome.Scored {
		t.Fatal("expected fenced JSON to parse")
	}
}

func TestEvaluateNoResult(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, completionBody("I cannot help with that."))
		}},
		{"schema violation", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, completionBody(`{"safety":{"score":0.1,"category":"low_risk","flags":[]},"overall":{"recommendation":"escalate"}}`))
		}},
		{"empty choices", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, tc.handler)
			if outcome := client.Evaluate(context.Background(), "text"); outcome.Scored {
				t.Fatal("expected no result")
			}
		})
	}
}

func TestEvaluateDisabled(t *testing.T) {
	if _, err := NewClient(Config{}); err != ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	var client *Client
	if outcome := client.Evaluate(context.Background(), "text"); outcome.Scored {
		t.Fatal("nil client must yield no result")
	}
}
