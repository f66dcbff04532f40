package orchestrator

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/palmsync/hotsync-nexus/pkg/device"
	"github.com/palmsync/hotsync-nexus/pkg/dlp"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
)

// SyncType classifies the kind of sync being performed (
// step 3).
type SyncType int

const (
	FirstSync SyncType = iota
	SlowSync
	FastSync
)

func (t SyncType) String() string {
	switch t {
	case FirstSync:
		return "FIRST_SYNC"
	case SlowSync:
		return "SLOW_SYNC"
	case FastSync:
		return "FAST_SYNC"
	default:
		return "UNKNOWN"
	}
}

// databasesDirName and installDirName are the two well-known
// subdirectories of a device directory.
const (
	databasesDirName = "databases"
	installDirName   = "install"
)

// Orchestrator drives a full device sync against a local per-device
// directory.
type Orchestrator struct {
	Engine    *dlp.Engine
	DeviceDir string
	HostID    string // identifies this host for FAST/SLOW sync comparison
	Log       *logger.Logger

	// OnDatabaseSynced, if set, is invoked after each per-database
	// conduit completes, for callers that want to mirror progress
	// (persistence, metrics, dashboard feed) without the orchestrator
	// itself depending on any of them.
	OnDatabaseSynced func(name, direction string, recordCount int)

	// LastSyncType records the sync type decided by the most recent Run
	//, for callers that report it after Run
	// returns.
	LastSyncType SyncType
}

// New constructs an Orchestrator. hostID identifies this host machine so
// the sync-type decision can tell FAST_SYNC (same
// host last time) from SLOW_SYNC (different host).
func New(e *dlp.Engine, deviceDir, hostID string, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	return &Orchestrator{Engine: e, DeviceDir: deviceDir, HostID: hostID, Log: log.WithComponent("orchestrator")}
}

// Run performs a complete sync: open conduit, bootstrap the device's
// user id if absent, decide the sync type, enumerate RAM databases, run
// the per-database conduits, then close out the session.
func (o *Orchestrator) Run() error {
	runID := uuid.NewString()
	log := o.Log.WithComponent("run:" + runID[:8])

	if err := o.Engine.OpenConduit(); err != nil {
		return err
	}

	userInfo, err := o.Engine.ReadUserInfo()
	if err != nil {
		return err
	}

	pairing, err := device.LoadPairing(o.DeviceDir)
	if err != nil {
		return err
	}

	syncType := FastSync
	if userInfo.UserID == 0 {
		newID, err := device.NewUserID()
		if err != nil {
			return err
		}
		userInfo.UserID = newID
		userInfo.UserName = pairing.UserName
		if err := o.Engine.WriteUserInfo(userInfo); err != nil {
			return err
		}
		syncType = FirstSync
	} else if pairing.UserID != userInfo.UserID || userInfo.LastSyncPC != hostIDHash(o.HostID) {
		syncType = SlowSync
	}
	o.LastSyncType = syncType
	log.Info("sync type decided", logger.String("type", syncType.String()), logger.Uint32("userId", userInfo.UserID))

	dbs, err := o.readAllRAMDatabases()
	if err != nil {
		return err
	}

	for _, d := range dbs {
		if err := o.syncOneDatabase(log, d); err != nil {
			log.Error("database conduit failed, continuing", logger.String("database", d.Name), logger.Error(err))
			continue
		}
	}

	if err := o.installNew(log); err != nil {
		log.Error("install-new conduit failed", logger.Error(err))
	}

	if err := o.updateClock(); err != nil {
		return err
	}

	userInfo.LastSyncPC = hostIDHash(o.HostID)
	userInfo.LastSyncDate = dlp.FromTime(time.Now().UTC())
	if err := o.Engine.WriteUserInfo(userInfo); err != nil {
		return err
	}
	if err := (device.Pairing{UserID: userInfo.UserID, UserName: userInfo.UserName}).Save(o.DeviceDir); err != nil {
		return err
	}

	logEntry := fmt.Sprintf("palmsync: %s complete, %d databases processed", syncType, len(dbs))
	return o.end(logEntry, dlp.StatusOK)
}

// notifyDatabaseSynced invokes OnDatabaseSynced if set.
func (o *Orchestrator) notifyDatabaseSynced(name, direction string, recordCount int) {
	if o.OnDatabaseSynced != nil {
		o.OnDatabaseSynced(name, direction, recordCount)
	}
}

func (o *Orchestrator) end(logEntry string, status dlp.Status) error {
	if err := o.Engine.AddSyncLogEntry(logEntry); err != nil {
		return err
	}
	return o.Engine.EndOfSync(status)
}

// readAllRAMDatabases iterates ReadDBList, advancing startIndex past
// lastIndex+1 until NOT_FOUND.
func (o *Orchestrator) readAllRAMDatabases() ([]dlp.DBInfo, error) {
	var all []dlp.DBInfo
	startIndex := uint16(0)
	for {
		batch, err := o.Engine.ReadDBList(true, startIndex)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return all, nil
		}
		all = append(all, batch...)
		startIndex = batch[len(batch)-1].Index + 1
	}
}

func (o *Orchestrator) updateClock() error {
	return o.Engine.SetSysDateTime(dlp.FromTime(time.Now().UTC()))
}

func (o *Orchestrator) databasesDir() string { return filepath.Join(o.DeviceDir, databasesDirName) }
func (o *Orchestrator) installDir() string   { return filepath.Join(o.DeviceDir, installDirName) }

// hostIDHash folds a string host identifier into the 32-bit lastSyncPc
// field the DLP protocol expects.
func hostIDHash(hostID string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(hostID); i++ {
		h ^= uint32(hostID[i])
		h *= 16777619
	}
	return h
}
