package store

import "time"

// User owns one or more API keys.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// APIKey maps a bearer credential to its owner. Only the SHA-256 hash of
// the key is stored; the raw value is returned once at registration and
// never persisted.
type APIKey struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"index"`
	KeyHash    string `gorm:"size:64;uniqueIndex"`
	KeyPrefix  string `gorm:"size:16"`
	Label      string `gorm:"size:128"`
	Active     bool   `gorm:"index"`
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// CheckLog is one append-only row per completed check. It stores the
// content hash and the scalar packet fields, never the raw text.
type CheckLog struct {
	ID               string `gorm:"primaryKey;size:36"`
	UserID           uint   `gorm:"index"`
	APIKeyID         uint   `gorm:"index:idx_check_logs_key_created,priority:1"`
	ContentHash      string `gorm:"size:64"`
	SafetyScore      float64
	SafetyCategory   string `gorm:"size:32"`
	CopyrightRisk    float64
	PiiDetected      bool
	ComplianceScore  float64
	Recommendation   string `gorm:"size:16;index"`
	ModelVersion     string `gorm:"size:64"`
	ProcessingTimeMs int64
	CreatedAt        time.Time `gorm:"autoCreateTime;index:idx_check_logs_key_created,priority:2"`
}
