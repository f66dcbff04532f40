package database

import (
	"time"

	"gorm.io/gorm"
)

// SyncLogEntry is the durable counterpart to the AddSyncLogEntry DLP call
// the device itself records: one row per database
// processed during a sync session.
type SyncLogEntry struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	SessionID    string    `gorm:"index;size:36" json:"session_id"`
	DeviceUserID uint32    `gorm:"index;not null" json:"device_user_id"`
	Database     string    `gorm:"index;size:31" json:"database"`
	Direction    string    `gorm:"size:16" json:"direction"` // "download", "upload", "two-way"
	SyncType     string    `gorm:"size:16" json:"sync_type"` // FIRST_SYNC, SLOW_SYNC, FAST_SYNC
	RecordCount  int       `gorm:"default:0" json:"record_count"`
	ByteCount    int64     `gorm:"default:0" json:"byte_count"`
	StartedAt    time.Time `gorm:"index;not null" json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for SyncLogEntry.
func (SyncLogEntry) TableName() string {
	return "sync_log_entries"
}

// BeforeCreate ensures the timestamp fields are populated.
func (e *SyncLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	return nil
}

// DeviceRecord is the durable counterpart to the per-device palm-id.json
// sidecar: the pairing identity plus last-sync
// bookkeeping used to tell FAST_SYNC from SLOW_SYNC.
type DeviceRecord struct {
	UserID       uint32    `gorm:"primarykey" json:"user_id"`
	UserName     string    `gorm:"size:40" json:"user_name"`
	LastSyncHost string    `gorm:"size:64" json:"last_sync_host"`
	LastSyncAt   time.Time `json:"last_sync_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for DeviceRecord.
func (DeviceRecord) TableName() string {
	return "device_records"
}

// BeforeCreate ensures CreatedAt is populated.
func (d *DeviceRecord) BeforeCreate(tx *gorm.DB) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return nil
}
