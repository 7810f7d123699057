package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeyOverdueScanLastAt    = "overdue_scan_last_at"
	SettingKeyOverdueScanLastCount = "overdue_scan_last_count"
	SettingKeyAuditCleanupLastAt   = "audit_cleanup_last_at"
	SettingKeyCatalogSeededAt      = "catalog_seeded_at"
	SettingKeyCoverSweepCursor     = "cover_sweep_cursor"
)
