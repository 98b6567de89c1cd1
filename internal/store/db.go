package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// UsageSummary aggregates a key's check history.
type UsageSummary struct {
	TotalChecks int64
	Allow       int64
	Review      int64
	Block       int64
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &APIKey{}, &CheckLog{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the underlying connection is alive.
func (d *Database) Ping() error {
	if d == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// RegisterKey finds or creates the user for the email and attaches a new
// active API key holding the supplied hash. The raw key never reaches this
// layer.
func (d *Database) RegisterKey(email, label, keyHash, keyPrefix string) (*User, *APIKey, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil, errors.New("email is empty")
	}
	if keyHash == "" {
		return nil, nil, errors.New("key hash is empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var user User
	var key APIKey
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(User{Email: email}).FirstOrCreate(&user).Error; err != nil {
			return err
		}
		key = APIKey{
			UserID:    user.ID,
			KeyHash:   keyHash,
			KeyPrefix: keyPrefix,
			Label:     strings.TrimSpace(label),
			Active:    true,
		}
		return tx.Create(&key).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, &key, nil
}

// FindActiveKeyByHash resolves a key hash to its record, active keys only.
// Returns gorm.ErrRecordNotFound when no active key matches.
func (d *Database) FindActiveKeyByHash(keyHash string) (*APIKey, error) {
	var key APIKey
	if err := d.gorm.Where("key_hash = ? AND active = ?", keyHash, true).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// TouchKeyUsed records the last successful authentication time. Best effort.
func (d *Database) TouchKeyUsed(keyID uint) error {
	now := time.Now().UTC()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Model(&APIKey{}).Where("id = ?", keyID).Update("last_used_at", now).Error
}

// DeactivateKey revokes an API key without deleting its history.
func (d *Database) DeactivateKey(keyID uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Model(&APIKey{}).Where("id = ?", keyID).Update("active", false).Error
}

// CountChecksSince counts a key's check-log rows created after the cutoff.
// This is the quota tracker's point-in-time read; it is evaluated freshly
// per request so each key's window trails its own activity.
func (d *Database) CountChecksSince(apiKeyID uint, cutoff time.Time) (int64, error) {
	var count int64
	err := d.gorm.Model(&CheckLog{}).
		Where("api_key_id = ? AND created_at >= ?", apiKeyID, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// InsertCheckLog appends one audit row.
func (d *Database) InsertCheckLog(row *CheckLog) error {
	if row == nil {
		return errors.New("check log is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(row).Error
}

// SummarizeUsage aggregates totals and per-recommendation counts for a key.
func (d *Database) SummarizeUsage(apiKeyID uint) (UsageSummary, error) {
	var summary UsageSummary
	if err := d.gorm.Model(&CheckLog{}).Where("api_key_id = ?", apiKeyID).Count(&summary.TotalChecks).Error; err != nil {
		return UsageSummary{}, err
	}

	type recCount struct {
		Recommendation string
		Total          int64
	}
	var rows []recCount
	err := d.gorm.Model(&CheckLog{}).
		Select("recommendation, COUNT(*) AS total").
		Where("api_key_id = ?", apiKeyID).
		Group("recommendation").
		Find(&rows).Error
	if err != nil {
		return UsageSummary{}, err
	}
	for _, row := range rows {
		switch row.Recommendation {
		case "allow":
			summary.Allow = row.Total
		case "review":
			summary.Review = row.Total
		case "block":
			summary.Block = row.Total
		}
	}
	return summary, nil
}

// RecentChecks returns a key's newest check-log rows, capped at limit.
func (d *Database) RecentChecks(apiKeyID uint, limit int) ([]CheckLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []CheckLog
	err := d.gorm.Where("api_key_id = ?", apiKeyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
