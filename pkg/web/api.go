package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/palmsync/hotsync-nexus/pkg/database"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
)

// API handles REST API endpoints
type API struct {
	logger  *logger.Logger
	syncLog *database.SyncLogRepository
	devices *database.DeviceRepository
}

// NewAPI creates a new API instance
func NewAPI(log *logger.Logger) *API {
	return &API{
		logger: log,
	}
}

// SetRepos provides the sync-log and device repositories to the API
// after construction.
func (a *API) SetRepos(syncLog *database.SyncLogRepository, devices *database.DeviceRepository) {
	a.syncLog = syncLog
	a.devices = devices
}

// DeviceDTO is a lightweight response for a paired device.
type DeviceDTO struct {
	UserID       uint32 `json:"user_id"`
	UserName     string `json:"user_name"`
	LastSyncHost string `json:"last_sync_host"`
	LastSyncAt   int64  `json:"last_sync_at"`
}

// SyncLogDTO is a lightweight response for one sync-log entry.
type SyncLogDTO struct {
	ID           uint   `json:"id"`
	SessionID    string `json:"session_id"`
	DeviceUserID uint32 `json:"device_user_id"`
	Database     string `json:"database"`
	Direction    string `json:"direction"`
	SyncType     string `json:"sync_type"`
	RecordCount  int    `json:"record_count"`
	ByteCount    int64  `json:"byte_count"`
	StartedAt    int64  `json:"started_at"`
	FinishedAt   int64  `json:"finished_at"`
	Error        string `json:"error,omitempty"`
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]interface{}{
		"status":  "running",
		"service": "hotsync-nexus",
		"version": "dev",
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error("Failed to encode status response", logger.Error(err))
	}
}

// HandleDevices handles the /api/devices endpoint: the paired-device
// registry.
func (a *API) HandleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if a.devices == nil {
		if err := json.NewEncoder(w).Encode([]DeviceDTO{}); err != nil {
			a.logger.Error("Failed to encode devices response", logger.Error(err))
		}
		return
	}

	recs, err := a.devices.List()
	if err != nil {
		a.logger.Error("Failed to list devices", logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dtos := make([]DeviceDTO, 0, len(recs))
	for _, d := range recs {
		dtos = append(dtos, DeviceDTO{
			UserID:       d.UserID,
			UserName:     d.UserName,
			LastSyncHost: d.LastSyncHost,
			LastSyncAt:   d.LastSyncAt.Unix(),
		})
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		a.logger.Error("Failed to encode devices response", logger.Error(err))
	}
}

// HandleSyncLog handles the /api/synclog endpoint: recent sync-log
// history, optionally filtered by device_user_id.
func (a *API) HandleSyncLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if a.syncLog == nil {
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode([]SyncLogDTO{}); err != nil {
			a.logger.Error("Failed to encode sync log response", logger.Error(err))
		}
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	var (
		entries []database.SyncLogEntry
		err     error
	)
	if devStr := r.URL.Query().Get("device_user_id"); devStr != "" {
		id, perr := strconv.ParseUint(devStr, 10, 32)
		if perr != nil {
			http.Error(w, "invalid device_user_id", http.StatusBadRequest)
			return
		}
		entries, err = a.syncLog.GetByDevice(uint32(id), limit)
	} else {
		entries, err = a.syncLog.GetRecent(limit)
	}
	if err != nil {
		a.logger.Error("Failed to get sync log entries", logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dtos := make([]SyncLogDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, SyncLogDTO{
			ID:           e.ID,
			SessionID:    e.SessionID,
			DeviceUserID: e.DeviceUserID,
			Database:     e.Database,
			Direction:    e.Direction,
			SyncType:     e.SyncType,
			RecordCount:  e.RecordCount,
			ByteCount:    e.ByteCount,
			StartedAt:    e.StartedAt.Unix(),
			FinishedAt:   e.FinishedAt.Unix(),
			Error:        e.Error,
		})
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		a.logger.Error("Failed to encode sync log response", logger.Error(err))
	}
}

// HandleDeviceLookup handles /api/devices/{user_id}: a single device's
// record plus its recent sync-log history.
func (a *API) HandleDeviceLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/devices/")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		http.Error(w, "invalid device user id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if a.devices == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	rec, ok, err := a.devices.Get(uint32(id))
	if err != nil {
		a.logger.Error("Failed to look up device", logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var logEntries []SyncLogDTO
	if a.syncLog != nil {
		entries, err := a.syncLog.GetByDevice(uint32(id), 20)
		if err != nil {
			a.logger.Error("Failed to get device sync log", logger.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		for _, e := range entries {
			logEntries = append(logEntries, SyncLogDTO{
				ID:           e.ID,
				SessionID:    e.SessionID,
				DeviceUserID: e.DeviceUserID,
				Database:     e.Database,
				Direction:    e.Direction,
				SyncType:     e.SyncType,
				RecordCount:  e.RecordCount,
				ByteCount:    e.ByteCount,
				StartedAt:    e.StartedAt.Unix(),
				FinishedAt:   e.FinishedAt.Unix(),
				Error:        e.Error,
			})
		}
	}

	response := map[string]interface{}{
		"device":   DeviceDTO{UserID: rec.UserID, UserName: rec.UserName, LastSyncHost: rec.LastSyncHost, LastSyncAt: rec.LastSyncAt.Unix()},
		"sync_log": logEntries,
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error("Failed to encode device response", logger.Error(err))
	}
}
