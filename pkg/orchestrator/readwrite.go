// Package orchestrator drives a full HotSync session:
// user-id bootstrap, sync-type decision, per-database conduits, and the
// single-database read/write operations they're built from.
package orchestrator

import (
	"github.com/palmsync/hotsync-nexus/pkg/codec"
	"github.com/palmsync/hotsync-nexus/pkg/dlp"
	"github.com/palmsync/hotsync-nexus/pkg/pdb"
)

const systemPatchCreator = "psys"
const bootResourceType = "boot"

// ReadDBOptions controls which records ReadDB returns.
type ReadDBOptions struct {
	IncludeDeletedArchived bool
}

// ReadDB opens name in read-secret mode, pulls its metadata and records,
// and re-materializes it as a PDB/PRC container. When FindDBByOpenHandle
// is unsupported, ReadDB does not scan ReadDBList: the database
// attributes and version stay zero, so the result is a record (PDB)
// container.
func ReadDB(e *dlp.Engine, name string, ram bool, opts ReadDBOptions) (*pdb.Database, error) {
	handle, err := e.OpenDB(0, name, dlp.OpenRead|dlp.OpenSecret)
	if err != nil {
		return nil, err
	}
	defer e.CloseDB(handle)

	find, foundSupported, err := e.FindDBByOpenHandle(handle)
	if err != nil {
		return nil, err
	}

	info, err := e.ReadOpenDBInfo(handle)
	if err != nil {
		return nil, err
	}

	db := &pdb.Database{Name: name}
	if foundSupported {
		db.Attrs = pdb.DatabaseAttrs(find.Attrs)
		db.Version = find.Version
	}
	db.IsResourceDB = db.Attrs.ResDB()

	wantAppInfo := ram || !foundSupported
	if wantAppInfo {
		app, err := e.ReadAppBlock(handle)
		if err != nil {
			return nil, err
		}
		db.AppInfo = app
	}
	wantSortInfo := ram || !foundSupported
	if wantSortInfo {
		sort, err := e.ReadSortBlock(handle)
		if err != nil {
			return nil, err
		}
		db.SortInfo = sort
	}

	if db.IsResourceDB {
		for i := uint16(0); i < info.NumRecords; i++ {
			res, err := e.ReadResourceByIndex(handle, i)
			if err != nil {
				return nil, err
			}
			db.Resources = append(db.Resources, pdb.Resource{Type: res.Type, ID: uint16(res.ID), Data: res.Data})
		}
		return db, nil
	}

	for i := uint16(0); i < info.NumRecords; i++ {
		rec, err := e.ReadRecordByIndex(handle, i)
		if err != nil {
			return nil, err
		}
		attrs := pdb.DecodeRecordAttrs(rec.Attrs)
		if !opts.IncludeDeletedArchived && (attrs.Delete || attrs.Archive) {
			continue
		}
		db.Records = append(db.Records, pdb.Record{Attrs: attrs, UniqueID: rec.ID, Data: rec.Data})
	}
	return db, nil
}

// WriteDB creates name on the device (deleting any existing copy first,
// ignoring NOT_FOUND) and writes its blocks/records/resources, resetting
// the device afterward when the container calls for it.
func WriteDB(e *dlp.Engine, db *pdb.Database) error {
	if err := deleteIgnoringNotFound(e, 0, db.Name); err != nil {
		return err
	}

	flags := byte(0)
	if db.Attrs.ResDB() {
		flags |= 0x01
	}
	handle, err := e.CreateDB(dlp.CreateDBSpec{
		CardNo:  0,
		Creator: db.Creator,
		Type:    db.Type,
		Flags:   flags,
		Version: db.Version,
		Name:    db.Name,
	})
	if err != nil {
		return err
	}
	defer e.CloseDB(handle)

	if len(db.AppInfo) > 0 {
		if err := e.WriteAppBlock(handle, db.AppInfo); err != nil {
			return err
		}
	}
	if len(db.SortInfo) > 0 {
		if err := e.WriteSortBlock(handle, db.SortInfo); err != nil {
			return err
		}
	}

	resetRequested := db.Attrs.ResetAfterInstall() || db.Creator == systemPatchCreator

	if db.IsResourceDB {
		for _, res := range db.Resources {
			if res.Type == bootResourceType {
				resetRequested = true
			}
			if err := e.WriteResource(handle, res.Type, res.ID, res.Data); err != nil {
				return err
			}
		}
	} else {
		for _, rec := range db.Records {
			if _, err := e.WriteRecord(handle, rec.UniqueID, rec.Attrs.Encode(), rec.Attrs.Category, rec.Data); err != nil {
				return err
			}
		}
	}

	if resetRequested {
		if err := e.ResetSystem(); err != nil {
			return err
		}
	}
	return nil
}

func deleteIgnoringNotFound(e *dlp.Engine, cardNo byte, name string) error {
	err := e.DeleteDB(cardNo, name)
	if err == nil {
		return nil
	}
	if remoteErr, ok := err.(*codec.RemoteErr); ok && dlp.Status(remoteErr.Status) == dlp.StatusNotFound {
		return nil
	}
	return err
}
