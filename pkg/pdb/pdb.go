// Package pdb parses and emits the PDB/PRC on-device database container
// format: a 72-byte header, a record or resource metadata
// list, and the payload region they point into.
package pdb

import (
	"time"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

const (
	headerSize       = 72
	nameFieldWidth   = 32
	recordEntrySize  = 8
	resourceEntrySize = 10
)

// Record is one record in a PDB database: its attribute byte, 24-bit
// unique id, and payload bytes.
type Record struct {
	Attrs    RecordAttrs
	UniqueID uint32 // 24-bit
	Data     []byte
}

// Resource is one resource in a PRC database.
type Resource struct {
	Type   string // 4-byte tag
	ID     uint16
	Data   []byte
}

// Database is the parsed representation of a PDB (IsResourceDB=false) or
// PRC (IsResourceDB=true) container.
type Database struct {
	Name    string
	Attrs   DatabaseAttrs
	Version uint16

	Created  time.Time
	Modified time.Time
	BackedUp time.Time

	ModificationNumber uint32
	Type               string // 4 bytes
	Creator            string // 4 bytes
	UniqueIDSeed       uint32

	AppInfo  []byte
	SortInfo []byte

	IsResourceDB bool
	Records      []Record   // populated when !IsResourceDB
	Resources    []Resource // populated when IsResourceDB
}

// Parse decodes a complete PDB or PRC container from raw bytes.
func Parse(data []byte) (*Database, error) {
	if len(data) < headerSize {
		return nil, codec.FramingError("pdb: file too short for header: %d bytes", len(data))
	}

	r := codec.NewReader(data)
	db := &Database{}

	db.Name = r.CString(nameFieldWidth, nil)
	attrWord := r.U16()
	db.Attrs = DatabaseAttrs(attrWord)
	db.Version = r.U16()
	db.Created = codec.DecodeTimestamp(r.U32())
	db.Modified = codec.DecodeTimestamp(r.U32())
	db.BackedUp = codec.DecodeTimestamp(r.U32())
	db.ModificationNumber = r.U32()
	appInfoOffset := r.U32()
	sortInfoOffset := r.U32()
	db.Type = r.Tag(4)
	db.Creator = r.Tag(4)
	db.UniqueIDSeed = r.U32()

	db.IsResourceDB = db.Attrs.ResDB()

	nextListID := r.U32()
	if nextListID != 0 {
		return nil, codec.FramingError("pdb: non-zero next-list-id (%d) is unsupported", nextListID)
	}
	count := r.U16()
	r.Skip(2) // padding

	type entry struct {
		offset   uint32
		attr     byte
		uniqueID uint32
		resType  string
		resID    uint16
	}
	entries := make([]entry, count)
	if db.IsResourceDB {
		for i := range entries {
			entries[i].resType = r.Tag(4)
			entries[i].resID = r.U16()
			entries[i].offset = r.U32()
		}
	} else {
		for i := range entries {
			entries[i].offset = r.U32()
			entries[i].attr = r.U8()
			entries[i].uniqueID = r.U24()
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	end := func(i int) uint32 {
		if i+1 < len(entries) {
			return entries[i+1].offset
		}
		return uint32(len(data))
	}

	if appInfoOffset != 0 {
		appEnd := sortInfoOffset
		if appEnd == 0 {
			if len(entries) > 0 {
				appEnd = entries[0].offset
			} else {
				appEnd = uint32(len(data))
			}
		}
		if appEnd < appInfoOffset || int(appEnd) > len(data) {
			return nil, codec.FramingError("pdb: invalid AppInfo bounds [%d,%d)", appInfoOffset, appEnd)
		}
		db.AppInfo = append([]byte(nil), data[appInfoOffset:appEnd]...)
	}
	if sortInfoOffset != 0 {
		sortEnd := uint32(len(data))
		if len(entries) > 0 {
			sortEnd = entries[0].offset
		}
		if sortEnd < sortInfoOffset || int(sortEnd) > len(data) {
			return nil, codec.FramingError("pdb: invalid SortInfo bounds [%d,%d)", sortInfoOffset, sortEnd)
		}
		db.SortInfo = append([]byte(nil), data[sortInfoOffset:sortEnd]...)
	}

	for i, e := range entries {
		stop := end(i)
		if stop < e.offset || int(stop) > len(data) {
			return nil, codec.FramingError("pdb: invalid payload bounds [%d,%d) for entry %d", e.offset, stop, i)
		}
		payload := append([]byte(nil), data[e.offset:stop]...)
		if db.IsResourceDB {
			db.Resources = append(db.Resources, Resource{Type: e.resType, ID: e.resID, Data: payload})
		} else {
			db.Records = append(db.Records, Record{
				Attrs:    DecodeRecordAttrs(e.attr),
				UniqueID: e.uniqueID,
				Data:     payload,
			})
		}
	}

	return db, nil
}

// Emit serializes the database, recomputing every offset from the
// AppInfo -> SortInfo -> payloads order.
func (db *Database) Emit() ([]byte, error) {
	if len(db.Name) >= nameFieldWidth {
		return nil, codec.ValidationError("pdb: name %q exceeds %d bytes", db.Name, nameFieldWidth-1)
	}
	if len(db.Type) != 4 {
		return nil, codec.ValidationError("pdb: type %q must be exactly 4 bytes", db.Type)
	}
	if len(db.Creator) != 4 {
		return nil, codec.ValidationError("pdb: creator %q must be exactly 4 bytes", db.Creator)
	}

	attrs := db.Attrs.WithResDB(db.IsResourceDB)

	entryCount := len(db.Records)
	if db.IsResourceDB {
		entryCount = len(db.Resources)
	}
	entrySize := recordEntrySize
	if db.IsResourceDB {
		entrySize = resourceEntrySize
	}
	// 4 bytes next-list-id + 2 bytes count + 2 bytes padding + entries.
	cursor := uint32(headerSize + 4 + 2 + 2 + entryCount*entrySize)

	appInfoOffset := uint32(0)
	if len(db.AppInfo) > 0 {
		appInfoOffset = cursor
		cursor += uint32(len(db.AppInfo))
	}
	sortInfoOffset := uint32(0)
	if len(db.SortInfo) > 0 {
		sortInfoOffset = cursor
		cursor += uint32(len(db.SortInfo))
	}

	type offsetEntry struct {
		offset uint32
		length uint32
	}
	offsets := make([]offsetEntry, entryCount)
	for i := 0; i < entryCount; i++ {
		var n int
		if db.IsResourceDB {
			n = len(db.Resources[i].Data)
		} else {
			n = len(db.Records[i].Data)
		}
		offsets[i] = offsetEntry{offset: cursor, length: uint32(n)}
		cursor += uint32(n)
	}

	w := codec.NewWriterSize(int(cursor))
	w.CString(db.Name, nameFieldWidth, nil)
	w.U16(uint16(attrs))
	w.U16(db.Version)
	w.U32(codec.EncodeTimestampEpochA(db.Created))
	w.U32(codec.EncodeTimestampEpochA(db.Modified))
	w.U32(codec.EncodeTimestampEpochA(db.BackedUp))
	w.U32(db.ModificationNumber)
	w.U32(appInfoOffset)
	w.U32(sortInfoOffset)
	w.Tag(db.Type, 4)
	w.Tag(db.Creator, 4)
	w.U32(db.UniqueIDSeed)

	w.U32(0) // next-list-id, always 0 (unsupported)
	w.U16(uint16(entryCount))
	w.U8(0)
	w.U8(0) // 2 bytes padding

	if db.IsResourceDB {
		for i, res := range db.Resources {
			w.Tag(res.Type, 4)
			w.U16(res.ID)
			w.U32(offsets[i].offset)
		}
	} else {
		for i, rec := range db.Records {
			w.U32(offsets[i].offset)
			w.U8(rec.Attrs.Encode())
			w.U24(rec.UniqueID)
		}
	}

	if len(db.AppInfo) > 0 {
		w.RawBytes(db.AppInfo)
	}
	if len(db.SortInfo) > 0 {
		w.RawBytes(db.SortInfo)
	}
	for i := 0; i < entryCount; i++ {
		if db.IsResourceDB {
			w.RawBytes(db.Resources[i].Data)
		} else {
			w.RawBytes(db.Records[i].Data)
		}
	}

	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
