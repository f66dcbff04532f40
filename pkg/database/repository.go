package database

import (
	"time"

	"gorm.io/gorm"
)

// SyncLogRepository handles SyncLogEntry persistence.
type SyncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository creates a new sync-log repository.
func NewSyncLogRepository(db *gorm.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Create adds a new sync-log entry.
func (r *SyncLogRepository) Create(e *SyncLogEntry) error {
	return r.db.Create(e).Error
}

// GetRecent retrieves the most recent N sync-log entries.
func (r *SyncLogRepository) GetRecent(limit int) ([]SyncLogEntry, error) {
	var entries []SyncLogEntry
	err := r.db.Order("started_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// GetByDevice retrieves sync-log entries for a specific device user id.
func (r *SyncLogRepository) GetByDevice(userID uint32, limit int) ([]SyncLogEntry, error) {
	var entries []SyncLogEntry
	err := r.db.Where("device_user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// GetBySession retrieves all sync-log entries for one sync session.
func (r *SyncLogRepository) GetBySession(sessionID string) ([]SyncLogEntry, error) {
	var entries []SyncLogEntry
	err := r.db.Where("session_id = ?", sessionID).Order("started_at ASC").Find(&entries).Error
	return entries, err
}

// DeleteOlderThan deletes sync-log entries older than the given time.
func (r *SyncLogRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", before).Delete(&SyncLogEntry{})
	return result.RowsAffected, result.Error
}

// DeviceRepository handles DeviceRecord persistence.
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new device repository.
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert creates or updates a device's pairing record.
func (r *DeviceRepository) Upsert(d *DeviceRecord) error {
	return r.db.Save(d).Error
}

// Get retrieves a device record by user id. ok is false if no such
// device has been paired yet (a first sync).
func (r *DeviceRepository) Get(userID uint32) (rec DeviceRecord, ok bool, err error) {
	err = r.db.First(&rec, "user_id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return DeviceRecord{}, false, nil
	}
	return rec, err == nil, err
}

// List retrieves all paired devices.
func (r *DeviceRepository) List() ([]DeviceRecord, error) {
	var recs []DeviceRecord
	err := r.db.Order("last_sync_at DESC").Find(&recs).Error
	return recs, err
}
