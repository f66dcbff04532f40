package pdb

import (
	"fmt"
	"testing"
	"time"
)

func sampleDatabase() *Database {
	db := &Database{
		Name:               "MemoDB",
		Version:            1,
		Created:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Modified:           time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		BackedUp:           time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		ModificationNumber: 7,
		Type:               "DATA",
		Creator:            "memo",
		UniqueIDSeed:       1000,
		AppInfo:            []byte{0x00, 0x02, 'U', 'n', 'f', 'i', 'l', 'e', 'd', 0, 0, 0, 0, 0, 0, 0, 0},
	}
	for i := 0; i < 10; i++ {
		db.Records = append(db.Records, Record{
			Attrs:    RecordAttrs{Category: 0},
			UniqueID: uint32(i + 1),
			Data:     []byte(fmt.Sprintf("Memo #%d", i)),
		})
	}
	return db
}

func TestPDBRoundTrip(t *testing.T) {
	db := sampleDatabase()
	emitted, err := db.Emit()
	if err != nil {
		t.Fatalf("Emit error: %v", err)
	}

	parsed, err := Parse(emitted)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if parsed.Name != db.Name {
		t.Errorf("Name = %q, want %q", parsed.Name, db.Name)
	}
	if parsed.Type != db.Type || parsed.Creator != db.Creator {
		t.Errorf("Type/Creator = %q/%q, want %q/%q", parsed.Type, parsed.Creator, db.Type, db.Creator)
	}
	if !parsed.Created.Equal(db.Created) || !parsed.Modified.Equal(db.Modified) || !parsed.BackedUp.Equal(db.BackedUp) {
		t.Errorf("timestamps did not round-trip: got %v/%v/%v", parsed.Created, parsed.Modified, parsed.BackedUp)
	}
	if len(parsed.AppInfo) != len(db.AppInfo) {
		t.Errorf("AppInfo length = %d, want %d", len(parsed.AppInfo), len(db.AppInfo))
	}
	if len(parsed.Records) != len(db.Records) {
		t.Fatalf("Records count = %d, want %d", len(parsed.Records), len(db.Records))
	}
	for i, rec := range parsed.Records {
		want := fmt.Sprintf("Memo #%d", i)
		if string(rec.Data) != want {
			t.Errorf("record %d = %q, want %q", i, rec.Data, want)
		}
		if rec.UniqueID != db.Records[i].UniqueID {
			t.Errorf("record %d unique id = %d, want %d", i, rec.UniqueID, db.Records[i].UniqueID)
		}
	}
}

func TestPDBInvalidNameTooLong(t *testing.T) {
	db := sampleDatabase()
	db.Name = "this name is absolutely far too long to fit in the thirty-two byte field"
	if _, err := db.Emit(); err == nil {
		t.Fatal("expected validation error for oversized name")
	}
}

func TestPDBInvalidCreatorLength(t *testing.T) {
	db := sampleDatabase()
	db.Creator = "x"
	if _, err := db.Emit(); err == nil {
		t.Fatal("expected validation error for short creator tag")
	}
}

func TestPDBInvalidSignatureOnParse(t *testing.T) {
	if _, err := Parse([]byte("too short")); err == nil {
		t.Fatal("expected framing error for truncated header")
	}
}

func TestRecordAttrsDeleteImpliesArchive(t *testing.T) {
	a := RecordAttrs{Delete: true, Busy: false, Secret: true, Dirty: true, Archive: true, Category: 9}
	b := a.Encode()
	decoded := DecodeRecordAttrs(b)
	if !decoded.Delete || !decoded.Archive || !decoded.Secret || !decoded.Dirty {
		t.Errorf("decoded = %+v, want delete/archive/secret/dirty set", decoded)
	}
	if decoded.Category != 0 {
		t.Errorf("category = %d, want 0 when delete is set", decoded.Category)
	}
}

func TestRecordAttrsCategoryPreserved(t *testing.T) {
	a := RecordAttrs{Category: 12, Secret: true}
	decoded := DecodeRecordAttrs(a.Encode())
	if decoded.Category != 12 {
		t.Errorf("category = %d, want 12", decoded.Category)
	}
	if decoded.Archive {
		t.Error("archive should be false when delete/busy are clear")
	}
}

func TestResourceDBRoundTrip(t *testing.T) {
	db := &Database{
		Name:         "System",
		Type:         "appl",
		Creator:      "psys",
		IsResourceDB: true,
		Resources: []Resource{
			{Type: "code", ID: 1, Data: []byte{1, 2, 3, 4}},
			{Type: "data", ID: 2, Data: []byte{5, 6}},
		},
	}
	emitted, err := db.Emit()
	if err != nil {
		t.Fatalf("Emit error: %v", err)
	}
	parsed, err := Parse(emitted)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !parsed.IsResourceDB {
		t.Fatal("expected IsResourceDB true after round trip")
	}
	if len(parsed.Resources) != 2 {
		t.Fatalf("Resources count = %d, want 2", len(parsed.Resources))
	}
	if parsed.Resources[0].Type != "code" || parsed.Resources[0].ID != 1 {
		t.Errorf("resource 0 = %+v", parsed.Resources[0])
	}
}
