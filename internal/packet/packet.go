package packet

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Safety categories keyed to fixed score thresholds.
const (
	CategoryLowRisk    = "low_risk"
	CategoryMediumRisk = "medium_risk"
	CategoryHighRisk   = "high_risk"
)

// Overall recommendations.
const (
	RecommendAllow  = "allow"
	RecommendReview = "review"
	RecommendBlock  = "block"
)

// Category thresholds: low <0.4, medium [0.4,0.8), high >=0.8.
const (
	mediumThreshold = 0.4
	highThreshold   = 0.8
)

// SafetyBlock scores content for harmful material.
type SafetyBlock struct {
	Score    float64  `json:"score"`
	Category string   `json:"category"`
	Flags    []string `json:"flags"`
}

// CopyrightBlock scores content for protected-text risk.
type CopyrightBlock struct {
	Risk       float64 `json:"risk"`
	Assessment string  `json:"assessment"`
	Reason     string  `json:"reason"`
}

// PrivacyBlock reports detected personally identifiable information.
type PrivacyBlock struct {
	PiiDetected bool     `json:"piiDetected"`
	PiiTypes    []string `json:"piiTypes"`
	Notes       []string `json:"notes"`
}

// OverallBlock merges the per-dimension scores into a single decision.
type OverallBlock struct {
	ComplianceScore float64  `json:"complianceScore"`
	Recommendation  string   `json:"recommendation"`
	Notes           []string `json:"notes"`
}

// MetaBlock carries provenance for a packet. InputID and CheckedAt are
// always assigned server-side; values reported by an upstream scorer are
// discarded.
type MetaBlock struct {
	InputID      string    `json:"inputId"`
	CheckedAt    time.Time `json:"checkedAt"`
	ModelVersion string    `json:"modelVersion"`
}

// CompliancePacket is the fixed-schema output of a single content check.
type CompliancePacket struct {
	Safety    SafetyBlock    `json:"safety"`
	Copyright CopyrightBlock `json:"copyright"`
	Privacy   PrivacyBlock   `json:"privacy"`
	Overall   OverallBlock   `json:"overall"`
	Meta      MetaBlock      `json:"meta"`
}

// CategoryForScore maps a safety score onto its category band.
func CategoryForScore(score float64) string {
	switch {
	case score >= highThreshold:
		return CategoryHighRisk
	case score >= mediumThreshold:
		return CategoryMediumRisk
	default:
		return CategoryLowRisk
	}
}

// ComplianceScore derives the overall score from the worst per-dimension
// risk: clamp(1 - max(safetyScore, copyrightRisk), 0, 1).
func ComplianceScore(safetyScore, copyrightRisk float64) float64 {
	worst := safetyScore
	if copyrightRisk > worst {
		worst = copyrightRisk
	}
	return Clamp(1-worst, 0, 1)
}

// Clamp bounds a value to [min, max], treating NaN as min.
func Clamp(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Validate checks that a packet satisfies the schema constraints: scores in
// range, category consistent with the safety score, recommendation from the
// fixed set, and the overall score matching its derivation.
func Validate(p CompliancePacket) error {
	if p.Safety.Score < 0 || p.Safety.Score > 1 {
		return fmt.Errorf("safety score %v out of range", p.Safety.Score)
	}
	if p.Copyright.Risk < 0 || p.Copyright.Risk > 1 {
		return fmt.Errorf("copyright risk %v out of range", p.Copyright.Risk)
	}
	if p.Overall.ComplianceScore < 0 || p.Overall.ComplianceScore > 1 {
		return fmt.Errorf("compliance score %v out of range", p.Overall.ComplianceScore)
	}
	if got, want := p.Safety.Category, CategoryForScore(p.Safety.Score); got != want {
		return fmt.Errorf("safety category %q inconsistent with score %v", got, p.Safety.Score)
	}
	switch p.Overall.Recommendation {
	case RecommendAllow, RecommendReview, RecommendBlock:
	default:
		return fmt.Errorf("unknown recommendation %q", p.Overall.Recommendation)
	}
	if want := ComplianceScore(p.Safety.Score, p.Copyright.Risk); math.Abs(p.Overall.ComplianceScore-want) > 1e-9 {
		return fmt.Errorf("compliance score %v does not derive from safety %v / copyright %v", p.Overall.ComplianceScore, p.Safety.Score, p.Copyright.Risk)
	}
	if p.Meta.ModelVersion == "" {
		return errors.New("model version missing")
	}
	return nil
}
