package device

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/palmsync/hotsync-nexus/pkg/codec"
)

// Pairing is the persisted device identity stored in a per-device
// directory's palm-id.json.
type Pairing struct {
	UserID   uint32 `json:"userId"`
	UserName string `json:"userName"`
}

const pairingFile = "palm-id.json"

// LoadPairing reads palm-id.json from dir. A missing file is not an
// error: it returns a zero Pairing so the caller can detect FIRST_SYNC
//.
func LoadPairing(dir string) (Pairing, error) {
	data, err := os.ReadFile(filepath.Join(dir, pairingFile))
	if os.IsNotExist(err) {
		return Pairing{}, nil
	}
	if err != nil {
		return Pairing{}, codec.WrapError(codec.KindTransport, err, "device: reading %s", pairingFile)
	}
	var p Pairing
	if err := json.Unmarshal(data, &p); err != nil {
		return Pairing{}, codec.WrapError(codec.KindValidation, err, "device: parsing %s", pairingFile)
	}
	return p, nil
}

// Save persists p to dir's palm-id.json.
func (p Pairing) Save(dir string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return codec.WrapError(codec.KindEncoding, err, "device: encoding %s", pairingFile)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return codec.WrapError(codec.KindTransport, err, "device: creating device directory")
	}
	if err := os.WriteFile(filepath.Join(dir, pairingFile), data, 0o644); err != nil {
		return codec.WrapError(codec.KindTransport, err, "device: writing %s", pairingFile)
	}
	return nil
}

// NewUserID generates a random 32-bit id for a device's FIRST_SYNC
// pairing.
func NewUserID() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, codec.WrapError(codec.KindValidation, err, "device: generating user id")
	}
	id := binary.BigEndian.Uint32(b[:])
	if id == 0 {
		id = 1
	}
	return id, nil
}
