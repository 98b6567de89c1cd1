package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-packet/backend/internal/ai"
	"compliance-packet/backend/internal/packet"
	"compliance-packet/backend/internal/scoring"
)

func fakeProvider(t *testing.T, packetJSON string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": packetJSON}},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckUsesProviderPacket(t *testing.T) {
	providerPacket := `{
		"safety": {"score": 0.55, "category": "medium_risk", "flags": ["graphic_description"]},
		"copyright": {"risk": 0.2, "assessment": "unlikely_infringing", "reason": "original prose"},
		"privacy": {"piiDetected": false, "piiTypes": [], "notes": []},
		"overall": {"complianceScore": 0.45, "recommendation": "review", "notes": []},
		"meta": {"inputId": "spoofed", "checkedAt": "2019-05-05T05:05:05Z", "modelVersion": "spoofed-model"}
	}`
	upstream := fakeProvider(t, providerPacket)

	_, router := newTestServer(t, func(cfg *Config) {
		cfg.DisableAI = false
		cfg.AIConfig = ai.Config{APIKey: "test-key", Model: "scorer-model", BaseURL: upstream.URL}
	})
	key := registerKey(t, router)

	w := doJSON(router, http.MethodPost, "/check", key.APIKey, map[string]string{"content": "a graphic scene"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pkt packet.CompliancePacket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pkt))
	assert.Equal(t, 0.55, pkt.Safety.Score)
	assert.Equal(t, packet.RecommendReview, pkt.Overall.Recommendation)
	assert.Equal(t, "scorer-model", pkt.Meta.ModelVersion)
	assert.NotEqual(t, "spoofed", pkt.Meta.InputID)
	assert.NotEqual(t, 2019, pkt.Meta.CheckedAt.Year())
	require.NoError(t, packet.Validate(pkt))
}

func TestCheckFallsBackWhenProviderFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
	}))
	t.Cleanup(upstream.Close)

	_, router := newTestServer(t, func(cfg *Config) {
		cfg.DisableAI = false
		cfg.AIConfig = ai.Config{APIKey: "test-key", BaseURL: upstream.URL}
	})
	key := registerKey(t, router)

	w := doJSON(router, http.MethodPost, "/check", key.APIKey, map[string]string{"content": "harmless"})
	require.Equal(t, http.StatusOK, w.Code, "scoring failure must not surface as an error")

	var pkt packet.CompliancePacket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pkt))
	assert.Equal(t, scoring.HeuristicModelVersion, pkt.Meta.ModelVersion)
	assert.Equal(t, packet.RecommendAllow, pkt.Overall.Recommendation)
}
