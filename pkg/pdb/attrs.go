package pdb

import "github.com/palmsync/hotsync-nexus/pkg/codec"

// DatabaseAttrs are the 16-bit database attribute flags from the PDB/PRC
// header.
type DatabaseAttrs uint16

var (
	dbAttrOpen               = codec.Flag("open", 15)
	dbAttrBundle             = codec.Flag("bundle", 11)
	dbAttrRecyclable         = codec.Flag("recyclable", 10)
	dbAttrLaunchableData     = codec.Flag("launchableData", 9)
	dbAttrHidden             = codec.Flag("hidden", 8)
	dbAttrStream             = codec.Flag("stream", 7)
	dbAttrCopyPrevention     = codec.Flag("copyPrevention", 6)
	dbAttrResetAfterInstall  = codec.Flag("resetAfterInstall", 5)
	dbAttrOkToInstallNewer   = codec.Flag("okToInstallNewer", 4)
	dbAttrBackup             = codec.Flag("backup", 3)
	dbAttrAppInfoDirty       = codec.Flag("appInfoDirty", 2)
	dbAttrReadOnly           = codec.Flag("readOnly", 1)
	dbAttrResDB              = codec.Flag("resDB", 0)
)

func (a DatabaseAttrs) Open() bool               { return dbAttrOpen.GetBool(uint32(a)) }
func (a DatabaseAttrs) Bundle() bool             { return dbAttrBundle.GetBool(uint32(a)) }
func (a DatabaseAttrs) Recyclable() bool         { return dbAttrRecyclable.GetBool(uint32(a)) }
func (a DatabaseAttrs) LaunchableData() bool     { return dbAttrLaunchableData.GetBool(uint32(a)) }
func (a DatabaseAttrs) Hidden() bool             { return dbAttrHidden.GetBool(uint32(a)) }
func (a DatabaseAttrs) Stream() bool             { return dbAttrStream.GetBool(uint32(a)) }
func (a DatabaseAttrs) CopyPrevention() bool     { return dbAttrCopyPrevention.GetBool(uint32(a)) }
func (a DatabaseAttrs) ResetAfterInstall() bool  { return dbAttrResetAfterInstall.GetBool(uint32(a)) }
func (a DatabaseAttrs) OkToInstallNewer() bool   { return dbAttrOkToInstallNewer.GetBool(uint32(a)) }
func (a DatabaseAttrs) Backup() bool             { return dbAttrBackup.GetBool(uint32(a)) }
func (a DatabaseAttrs) AppInfoDirty() bool       { return dbAttrAppInfoDirty.GetBool(uint32(a)) }
func (a DatabaseAttrs) ReadOnly() bool           { return dbAttrReadOnly.GetBool(uint32(a)) }
func (a DatabaseAttrs) ResDB() bool              { return dbAttrResDB.GetBool(uint32(a)) }

func (a DatabaseAttrs) with(f codec.BitField, on bool) DatabaseAttrs {
	return DatabaseAttrs(f.SetBool(uint32(a), on))
}

func (a DatabaseAttrs) WithResDB(on bool) DatabaseAttrs             { return a.with(dbAttrResDB, on) }
func (a DatabaseAttrs) WithBackup(on bool) DatabaseAttrs            { return a.with(dbAttrBackup, on) }
func (a DatabaseAttrs) WithResetAfterInstall(on bool) DatabaseAttrs { return a.with(dbAttrResetAfterInstall, on) }

// RecordAttrs is the 8-bit attribute byte carried by each record entry.
// Its low 4 bits are overloaded: they hold `archive` when
// either delete or busy is set, otherwise `category` (0-15). Modeled
// as a sum type with a shared byte-level codec, rather than two
// independently-settable fields that could disagree.
type RecordAttrs struct {
	Delete  bool
	Dirty   bool
	Busy    bool
	Secret  bool
	// Category is valid when !(Delete || Busy).
	Category uint8
	// Archive is valid when Delete || Busy.
	Archive bool
}

const (
	recAttrDelete   = 0x80
	recAttrDirty    = 0x40
	recAttrBusy     = 0x20
	recAttrSecret   = 0x10
	recAttrArchive  = 0x08
	recAttrCatMask  = 0x0F
)

// DecodeRecordAttrs parses a record attribute byte, resolving the
// overlapping low-bit semantics described above.
func DecodeRecordAttrs(b byte) RecordAttrs {
	a := RecordAttrs{
		Delete: b&recAttrDelete != 0,
		Dirty:  b&recAttrDirty != 0,
		Busy:   b&recAttrBusy != 0,
		Secret: b&recAttrSecret != 0,
	}
	if a.Delete || a.Busy {
		a.Archive = b&recAttrArchive != 0
	} else {
		a.Category = b & recAttrCatMask
	}
	return a
}

// Encode packs the record attribute byte, preserving the
// delete/busy-vs-category/archive exclusivity invariant: category is
// written as zero whenever delete or busy is set, and vice versa.
func (a RecordAttrs) Encode() byte {
	var b byte
	if a.Delete {
		b |= recAttrDelete
	}
	if a.Dirty {
		b |= recAttrDirty
	}
	if a.Busy {
		b |= recAttrBusy
	}
	if a.Secret {
		b |= recAttrSecret
	}
	if a.Delete || a.Busy {
		if a.Archive {
			b |= recAttrArchive
		}
	} else {
		b |= a.Category & recAttrCatMask
	}
	return b
}
