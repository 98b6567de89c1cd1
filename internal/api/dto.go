package api

import (
	"time"

	"compliance-packet/backend/internal/store"
)

// RegisterRequest creates a new API key. Email validation is delegated to
// the binding layer.
type RegisterRequest struct {
	Email string `json:"email" binding:"required,email"`
	Label string `json:"label"`
}

// RegisterResponse returns the raw key exactly once.
type RegisterResponse struct {
	APIKey    string `json:"apiKey"`
	KeyPrefix string `json:"keyPrefix"`
	UserID    uint   `json:"userId"`
}

// CheckRequest carries the content to evaluate.
type CheckRequest struct {
	Content string `json:"content"`
}

// UsageSummaryDTO aggregates a key's check history.
type UsageSummaryDTO struct {
	TotalChecks int64 `json:"totalChecks"`
	Allow       int64 `json:"allow"`
	Review      int64 `json:"review"`
	Block       int64 `json:"block"`
}

// RecentCheckDTO is one row of the recent-checks listing. Only derived
// scalar fields are exposed; raw content is never stored.
type RecentCheckDTO struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	SafetyScore     float64   `json:"safety_score"`
	SafetyCategory  string    `json:"safety_category"`
	Recommendation  string    `json:"recommendation"`
	ComplianceScore float64   `json:"compliance_score"`
}

// UsageResponse is the GET /usage payload.
type UsageResponse struct {
	Summary UsageSummaryDTO  `json:"summary"`
	Recent  []RecentCheckDTO `json:"recent"`
}

// StatusResponse reports service and database health.
type StatusResponse struct {
	Status    string    `json:"status"`
	DB        string    `json:"db"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentFromModel converts a check-log row into its DTO.
func RecentFromModel(row store.CheckLog) RecentCheckDTO {
	return RecentCheckDTO{
		ID:              row.ID,
		CreatedAt:       row.CreatedAt,
		SafetyScore:     row.SafetyScore,
		SafetyCategory:  row.SafetyCategory,
		Recommendation:  row.Recommendation,
		ComplianceScore: row.ComplianceScore,
	}
}

// SummaryFromModel converts the store aggregate into its DTO.
func SummaryFromModel(s store.UsageSummary) UsageSummaryDTO {
	return UsageSummaryDTO{
		TotalChecks: s.TotalChecks,
		Allow:       s.Allow,
		Review:      s.Review,
		Block:       s.Block,
	}
}
