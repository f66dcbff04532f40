package device

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseACLPermitAll(t *testing.T) {
	acl, err := ParseACL("PERMIT:ALL")
	if err != nil {
		t.Fatalf("ParseACL error: %v", err)
	}
	if !acl.Check(12345) {
		t.Error("expected PERMIT:ALL to allow any id")
	}
}

func TestParseACLDenySingle(t *testing.T) {
	acl, err := ParseACL("DENY:1")
	if err != nil {
		t.Fatalf("ParseACL error: %v", err)
	}
	if acl.Check(1) {
		t.Error("expected id 1 to be denied")
	}
	if !acl.Check(2) {
		t.Error("expected id 2 to be allowed")
	}
}

func TestParseACLRange(t *testing.T) {
	acl, err := ParseACL("PERMIT:1000-1999,4500")
	if err != nil {
		t.Fatalf("ParseACL error: %v", err)
	}
	if !acl.Check(1500) || !acl.Check(4500) {
		t.Error("expected range and single id members to be allowed")
	}
	if acl.Check(9999) {
		t.Error("expected id outside range/list to be denied")
	}
}

func TestParseACLRejectsBadFormat(t *testing.T) {
	if _, err := ParseACL("not-a-valid-rule"); err == nil {
		t.Fatal("expected error for malformed ACL string")
	}
}

func TestPairingSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := Pairing{UserID: 42, UserName: "alice"}
	if err := p.Save(dir); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := LoadPairing(dir)
	if err != nil {
		t.Fatalf("LoadPairing error: %v", err)
	}
	if loaded != p {
		t.Errorf("loaded = %+v, want %+v", loaded, p)
	}
}

func TestLoadPairingMissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	loaded, err := LoadPairing(dir)
	if err != nil {
		t.Fatalf("LoadPairing error: %v", err)
	}
	if loaded.UserID != 0 {
		t.Errorf("expected zero-value pairing for missing file, got %+v", loaded)
	}
	if _, err := os.Stat(filepath.Join(dir, pairingFile)); !os.IsNotExist(err) {
		t.Error("LoadPairing should not create the file")
	}
}

func TestNewUserIDNonZero(t *testing.T) {
	id, err := NewUserID()
	if err != nil {
		t.Fatalf("NewUserID error: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero user id")
	}
}
