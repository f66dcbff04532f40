package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/palmsync/hotsync-nexus/pkg/dlp"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
	"github.com/palmsync/hotsync-nexus/pkg/pdb"
)

// pdbFileName returns the on-disk backup filename for a database name:
// PRC extension for resource databases, PDB otherwise.
func pdbFileName(name string, isResourceDB bool) string {
	ext := ".pdb"
	if isResourceDB {
		ext = ".prc"
	}
	return name + ext
}

// syncOneDatabase runs the download-new and sync-databases conduits for
// one device database.
func (o *Orchestrator) syncOneDatabase(log *logger.Logger, info dlp.DBInfo) error {
	path := filepath.Join(o.databasesDir(), pdbFileName(info.Name, info.IsResourceDB))
	_, statErr := os.Stat(path)
	hostHasIt := statErr == nil

	if !hostHasIt {
		return o.downloadNew(log, info)
	}
	return o.syncDatabase(log, info, path)
}

// downloadNew backs up a device database the host has never seen
// before.
func (o *Orchestrator) downloadNew(log *logger.Logger, info dlp.DBInfo) error {
	db, err := ReadDB(o.Engine, info.Name, true, ReadDBOptions{})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.databasesDir(), 0o755); err != nil {
		return err
	}
	emitted, err := db.Emit()
	if err != nil {
		return err
	}
	path := filepath.Join(o.databasesDir(), pdbFileName(db.Name, db.IsResourceDB))
	log.Info("downloading new database", logger.String("database", db.Name))
	if err := os.WriteFile(path, emitted, 0o644); err != nil {
		return err
	}
	o.notifyDatabaseSynced(db.Name, "download", len(db.Records))
	return nil
}

// syncDatabase performs two-way reconciliation for a database already
// known to both sides, driven by record dirty/delete/archive flags.
// Records marked dirty on the device are merged into the host's
// backup; records marked deleted/archived are removed from it.
func (o *Orchestrator) syncDatabase(log *logger.Logger, info dlp.DBInfo, hostPath string) error {
	existing, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}
	hostDB, err := pdb.Parse(existing)
	if err != nil {
		return err
	}

	deviceDB, err := ReadDB(o.Engine, info.Name, true, ReadDBOptions{IncludeDeletedArchived: true})
	if err != nil {
		return err
	}

	byID := make(map[uint32]pdb.Record, len(hostDB.Records))
	for _, r := range hostDB.Records {
		byID[r.UniqueID] = r
	}

	for _, rec := range deviceDB.Records {
		if rec.Attrs.Delete || rec.Attrs.Archive {
			delete(byID, rec.UniqueID)
			continue
		}
		if rec.Attrs.Dirty || byID[rec.UniqueID].UniqueID == 0 {
			byID[rec.UniqueID] = rec
		}
	}

	merged := make([]pdb.Record, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	hostDB.Records = merged
	hostDB.AppInfo = deviceDB.AppInfo
	hostDB.SortInfo = deviceDB.SortInfo

	emitted, err := hostDB.Emit()
	if err != nil {
		return err
	}
	log.Info("reconciled database", logger.String("database", info.Name), logger.Int("records", len(merged)))
	if err := os.WriteFile(hostPath, emitted, 0o644); err != nil {
		return err
	}
	o.notifyDatabaseSynced(info.Name, "two-way", len(merged))
	return nil
}

// installNew writes every PDB/PRC file staged under the install
// directory to the device, then removes it from staging on success.
func (o *Orchestrator) installNew(log *logger.Logger) error {
	entries, err := os.ReadDir(o.installDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".pdb") && !strings.HasSuffix(name, ".prc") {
			continue
		}
		path := filepath.Join(o.installDir(), name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("reading staged install file", logger.String("file", name), logger.Error(err))
			continue
		}
		db, err := pdb.Parse(data)
		if err != nil {
			log.Error("parsing staged install file", logger.String("file", name), logger.Error(err))
			continue
		}
		if err := WriteDB(o.Engine, db); err != nil {
			log.Error("installing database", logger.String("database", db.Name), logger.Error(err))
			continue
		}
		log.Info("installed database", logger.String("database", db.Name))
		o.notifyDatabaseSynced(db.Name, "upload", len(db.Records))
		if err := os.Remove(path); err != nil {
			log.Error("removing staged install file after install", logger.String("file", name), logger.Error(err))
		}
	}
	return nil
}
