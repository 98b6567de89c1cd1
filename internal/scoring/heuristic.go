package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"compliance-packet/backend/internal/packet"
)

// HeuristicModelVersion tags packets produced by the deterministic fallback
// so consumers can distinguish them from provider-scored packets.
const HeuristicModelVersion = "heuristic-v1"

// Labels attached by the heuristic rules.
const (
	FlagSelfHarmOrViolence = "self_harm_or_violence"
	PiiEmailAddress        = "email_address"
	PiiNumericSequence     = "numeric_sequence"
)

// Assessment labels for the copyright dimension.
const (
	AssessmentUnlikely      = "unlikely_infringing"
	AssessmentPossibleQuote = "possible_quote_or_protected_text"
)

// Fixed rule scores.
const (
	safetyBaseScore      = 0.05
	safetyEscalatedScore = 0.85
	copyrightBaseRisk    = 0.1
	copyrightQuoteRisk   = 0.6
)

var longDigitRun = regexp.MustCompile(`[0-9]{6,}`)

// defaultSevereTerms is the built-in high-severity term list, used when no
// term file is configured.
var defaultSevereTerms = []string{
	"kill myself",
	"kill yourself",
	"suicide",
	"self-harm",
	"self harm",
	"end my life",
	"kill him",
	"kill her",
	"kill them",
	"shoot up",
	"bomb threat",
	"murder",
}

// Heuristic is the deterministic fallback scorer. It is pure, performs no
// I/O after construction, and never fails.
type Heuristic struct {
	severeTerms []string
}

// NewHeuristic constructs the scorer. When path is non-empty the severe term
// list is loaded from the JSON file (a flat array of strings); otherwise the
// built-in defaults apply.
func NewHeuristic(path string) (*Heuristic, error) {
	if strings.TrimSpace(path) == "" {
		return &Heuristic{severeTerms: defaultSevereTerms}, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read severe terms: %w", err)
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal severe terms: %w", err)
	}
	var terms []string
	for _, term := range raw {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, errors.New("severe term list is empty")
	}
	return &Heuristic{severeTerms: terms}, nil
}

// Score maps raw text onto a compliance packet using fixed string rules.
// Meta identity fields are left for the assembler to stamp.
func (h *Heuristic) Score(content string) packet.CompliancePacket {
	lowered := strings.ToLower(content)

	safety := packet.SafetyBlock{
		Score:    safetyBaseScore,
		Category: packet.CategoryLowRisk,
		Flags:    []string{},
	}
	for _, term := range h.terms() {
		if strings.Contains(lowered, term) {
			safety.Score = safetyEscalatedScore
			safety.Category = packet.CategoryHighRisk
			safety.Flags = append(safety.Flags, FlagSelfHarmOrViolence)
			break
		}
	}

	copyrightBlock := packet.CopyrightBlock{
		Risk:       copyrightBaseRisk,
		Assessment: AssessmentUnlikely,
		Reason:     "no protected-text indicators found",
	}
	if strings.ContainsAny(content, "©\"“”") {
		copyrightBlock.Risk = copyrightQuoteRisk
		copyrightBlock.Assessment = AssessmentPossibleQuote
		copyrightBlock.Reason = "content contains a copyright glyph or quoted passage"
	}

	privacy := packet.PrivacyBlock{PiiTypes: []string{}, Notes: []string{}}
	if strings.Contains(content, "@") {
		privacy.PiiDetected = true
		privacy.PiiTypes = append(privacy.PiiTypes, PiiEmailAddress)
		privacy.Notes = append(privacy.Notes, "email-like pattern detected")
	}
	if longDigitRun.MatchString(content) {
		privacy.PiiDetected = true
		privacy.PiiTypes = append(privacy.PiiTypes, PiiNumericSequence)
		privacy.Notes = append(privacy.Notes, "long numeric sequence detected")
	}

	overall := packet.OverallBlock{
		ComplianceScore: packet.ComplianceScore(safety.Score, copyrightBlock.Risk),
		Recommendation:  recommendFor(safety.Score, copyrightBlock.Risk),
		Notes:           []string{},
	}

	return packet.CompliancePacket{
		Safety:    safety,
		Copyright: copyrightBlock,
		Privacy:   privacy,
		Overall:   overall,
		Meta:      packet.MetaBlock{ModelVersion: HeuristicModelVersion},
	}
}

func (h *Heuristic) terms() []string {
	if h == nil || len(h.severeTerms) == 0 {
		return defaultSevereTerms
	}
	return h.severeTerms
}

func recommendFor(safetyScore, copyrightRisk float64) string {
	switch {
	case safetyScore > 0.7:
		return packet.RecommendBlock
	case safetyScore > 0.4 || copyrightRisk > 0.5:
		return packet.RecommendReview
	default:
		return packet.RecommendAllow
	}
}

// SevereTerms exposes the loaded term list (primarily for testing).
func (h *Heuristic) SevereTerms() []string {
	return h.severeTerms
}

// Validate ensures the scorer has at least baseline configuration.
func (h *Heuristic) Validate() error {
	if h == nil {
		return errors.New("heuristic scorer is nil")
	}
	if len(h.severeTerms) == 0 {
		return errors.New("severe terms missing")
	}
	return nil
}
