package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"compliance-packet/backend/internal/packet"
)

// Config holds OpenAI configuration parameters.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client calls the scoring provider over the OpenAI chat-completions API.
// Every failure mode is absorbed here: the caller only ever sees an Outcome.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

var ErrDisabled = errors.New("scoring provider disabled")

// NewClient constructs a Client if the supplied configuration is valid.
func NewClient(cfg Config) (*Client, error) {
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1-mini"
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		temperature: temp,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Evaluate runs one scoring exchange against the provider. Any failure
// (missing credentials, transport error, non-success status, unparsable or
// schema-invalid payload) yields NoResult so the caller can fall back.
func (c *Client) Evaluate(ctx context.Context, content string) Outcome {
	p, err := c.call(ctx, content)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			logrus.WithError(err).Warn("scoring provider unavailable, falling back to heuristic")
		}
		return NoResult()
	}
	return ScoredResult(p)
}

func (c *Client) call(ctx context.Context, content string) (packet.CompliancePacket, error) {
	if !c.Enabled() {
		return packet.CompliancePacket{}, ErrDisabled
	}

	body, err := json.Marshal(c.buildPayload(content))
	if err != nil {
		return packet.CompliancePacket{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return packet.CompliancePacket{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return packet.CompliancePacket{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return packet.CompliancePacket{}, fmt.Errorf("provider status %d: %v", resp.StatusCode, apiErr)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return packet.CompliancePacket{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return packet.CompliancePacket{}, errors.New("provider empty response")
	}

	raw := normalizeJSONBlock(decoded.Choices[0].Message.Content)
	if raw == "" {
		return packet.CompliancePacket{}, errors.New("provider empty packet")
	}

	var p packet.CompliancePacket
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return packet.CompliancePacket{}, fmt.Errorf("parse provider packet: %w", err)
	}

	sanitizePacket(&p, c.model)
	if err := packet.Validate(p); err != nil {
		return packet.CompliancePacket{}, fmt.Errorf("provider packet invalid: %w", err)
	}
	return p, nil
}

func (c *Client) buildPayload(content string) map[string]any {
	messages := []map[string]string{
		{
			"role": "system",
			"content": "You are a content compliance analyst. Reply with a strict JSON object with keys " +
				"safety, copyright, privacy, overall, meta. " +
				"safety holds score (decimal 0-1), category (low_risk, medium_risk, or high_risk consistent with the score: low below 0.4, medium below 0.8, high at or above 0.8), and flags (array of short trigger labels). " +
				"copyright holds risk (decimal 0-1), assessment (short label), and reason (one sentence). " +
				"privacy holds piiDetected (boolean), piiTypes (array of labels), and notes (array of strings). " +
				"overall holds complianceScore computed exactly as 1 minus the larger of safety.score and copyright.risk, recommendation (allow, review, or block), and notes (array of strings). " +
				"meta holds inputId, checkedAt, modelVersion; their values are ignored server-side. " +
				"Emit nothing outside the JSON object.",
		},
		{
			"role":    "user",
			"content": "Evaluate the following content for safety, copyright, and privacy compliance:\n\n" + content,
		},
	}
	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
	}
	if c.maxTokens > 0 {
		payload["max_tokens"] = c.maxTokens
	}
	return payload
}

func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if strings.HasSuffix(trimmed, "```") {
			trimmed = trimmed[:len(trimmed)-3]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

// sanitizePacket clamps scores, recomputes the derived fields the provider
// is not trusted to author, and erases provider-reported provenance. The
// assembler stamps fresh identity afterwards.
func sanitizePacket(p *packet.CompliancePacket, model string) {
	if p == nil {
		return
	}
	p.Safety.Score = packet.Clamp(p.Safety.Score, 0, 1)
	p.Safety.Category = packet.CategoryForScore(p.Safety.Score)
	if p.Safety.Flags == nil {
		p.Safety.Flags = []string{}
	}
	p.Copyright.Risk = packet.Clamp(p.Copyright.Risk, 0, 1)
	p.Copyright.Assessment = strings.TrimSpace(p.Copyright.Assessment)
	if p.Privacy.PiiTypes == nil {
		p.Privacy.PiiTypes = []string{}
	}
	if p.Privacy.Notes == nil {
		p.Privacy.Notes = []string{}
	}
	p.Overall.ComplianceScore = packet.ComplianceScore(p.Safety.Score, p.Copyright.Risk)
	p.Overall.Recommendation = strings.ToLower(strings.TrimSpace(p.Overall.Recommendation))
	if p.Overall.Notes == nil {
		p.Overall.Notes = []string{}
	}
	p.Meta = packet.MetaBlock{ModelVersion: model}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
