package orchestrator

import (
	"testing"

	"github.com/palmsync/hotsync-nexus/pkg/dlp"
)

func TestPDBFileNameExtension(t *testing.T) {
	if pdbFileName("MemoDB", false) != "MemoDB.pdb" {
		t.Errorf("got %q, want MemoDB.pdb", pdbFileName("MemoDB", false))
	}
	if pdbFileName("System", true) != "System.prc" {
		t.Errorf("got %q, want System.prc", pdbFileName("System", true))
	}
}

// scriptedTransport replies to DLP commands in a fixed order; it drives
// Engine methods that make exactly one Execute call each.
type scriptedTransport struct {
	sent    [][]byte
	replies [][]byte
	idx     int
}

func (s *scriptedTransport) Send(msg []byte) error {
	s.sent = append(s.sent, append([]byte(nil), msg...))
	return nil
}

func (s *scriptedTransport) Receive() ([]byte, error) {
	r := s.replies[s.idx]
	s.idx++
	return r, nil
}

func TestReadDBReadsAllRecords(t *testing.T) {
	handle := byte(5)

	openResp := dlp.Response{Command: 0x17, Status: dlp.StatusOK, Args: []dlp.Arg{{ID: dlp.BaseArgID, Data: []byte{handle}}}}
	// FindDBByOpenHandle unsupported, forcing app/sort block reads.
	findResp := dlp.Response{Command: 0x38, Status: dlp.StatusUnsupported}
	infoResp := dlp.Response{Command: 0x2B, Status: dlp.StatusOK, Args: []dlp.Arg{{ID: dlp.BaseArgID, Data: []byte{0x00, 0x02}}}}
	appResp := dlp.Response{Command: 0x1B, Status: dlp.StatusNotFound}
	sortResp := dlp.Response{Command: 0x1D, Status: dlp.StatusNotFound}

	rec0 := recordResponse(0x23, 1, "Memo #0")
	rec1 := recordResponse(0x23, 2, "Memo #1")
	closeResp := dlp.Response{Command: 0x19, Status: dlp.StatusOK}

	tr := &scriptedTransport{replies: [][]byte{
		openResp.Encode(), findResp.Encode(), infoResp.Encode(),
		appResp.Encode(), sortResp.Encode(),
		rec0.Encode(), rec1.Encode(), closeResp.Encode(),
	}}
	e := dlp.NewEngine(tr, nil)

	db, err := ReadDB(e, "MemoDB", true, ReadDBOptions{})
	if err != nil {
		t.Fatalf("ReadDB error: %v", err)
	}
	if len(db.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(db.Records))
	}
	if string(db.Records[0].Data) != "Memo #0" || string(db.Records[1].Data) != "Memo #1" {
		t.Errorf("unexpected record payloads: %q, %q", db.Records[0].Data, db.Records[1].Data)
	}
}

func recordResponse(cmd byte, id uint32, payload string) dlp.Response {
	w := []byte{}
	w = append(w, byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
	w = append(w, 0, 0)    // index
	w = append(w, 0)       // attrs
	w = append(w, 0)       // category
	w = append(w, []byte(payload)...)
	return dlp.Response{Command: cmd, Status: dlp.StatusOK, Args: []dlp.Arg{{ID: dlp.BaseArgID, Data: w}}}
}
