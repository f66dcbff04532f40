package dlp

import "github.com/palmsync/hotsync-nexus/pkg/pdb"

// Command ids for the exemplar catalog. Values follow
// the published DLP command numbering.
const (
	cmdReadUserInfo       byte = 0x10
	cmdWriteUserInfo      byte = 0x11
	cmdReadSysInfo        byte = 0x12
	cmdGetSysDateTime     byte = 0x13
	cmdSetSysDateTime     byte = 0x14
	cmdReadDBList         byte = 0x16
	cmdOpenDB             byte = 0x17
	cmdCreateDB           byte = 0x18
	cmdCloseDB            byte = 0x19
	cmdDeleteDB           byte = 0x1A
	cmdReadAppBlock       byte = 0x1B
	cmdWriteAppBlock      byte = 0x1C
	cmdReadSortBlock      byte = 0x1D
	cmdWriteSortBlock     byte = 0x1E
	cmdReadResourceByIdx  byte = 0x20
	cmdWriteResource      byte = 0x21
	cmdReadRecordByID     byte = 0x22
	cmdReadRecordByIndex  byte = 0x23
	cmdWriteRecord        byte = 0x24
	cmdReadRecordIDList   byte = 0x26
	cmdEndOfSync          byte = 0x2F
	cmdResetSystem        byte = 0x28
	cmdOpenConduit        byte = 0x2E
	cmdAddSyncLogEntry    byte = 0x2A
	cmdReadOpenDBInfo     byte = 0x2B
	cmdFindDBByOpenHandle byte = 0x38
)

// Argument ids, scoped per command per the DLP wire contract.
const (
	argStd = BaseArgID // most commands use a single argument at the base id
)

// --- ReadSysInfo --------------------------------------------------------

// SysInfo is the device identification returned by ReadSysInfo.
type SysInfo struct {
	ROMVersion   uint32
	LocaleID     uint32
	ProductID    string
	MaxRecSize   uint32
}

// ReadSysInfo retrieves device ROM/locale/product identification.
func (e *Engine) ReadSysInfo() (SysInfo, error) {
	resp, err := e.Execute(Request{Command: cmdReadSysInfo})
	if err != nil {
		return SysInfo{}, err
	}
	arg, ok := resp.Arg(argStd)
	if !ok || len(arg.Data) < 10 {
		return SysInfo{}, nil
	}
	r := newArgReader(arg.Data)
	info := SysInfo{}
	info.ROMVersion = r.u32()
	info.LocaleID = r.u32()
	prodLen := int(r.u8())
	r.skip(1) // reserved
	info.ProductID = r.str(prodLen)
	return info, nil
}

// --- ReadUserInfo / WriteUserInfo ----------------------------------------

// UserInfo is the device's sync-identity record.
type UserInfo struct {
	UserID       uint32
	ViewerID     uint32
	LastSyncPC   uint32
	LastSyncDate Timestamp
	UserName     string
}

// ReadUserInfo retrieves the device's current sync identity.
func (e *Engine) ReadUserInfo() (UserInfo, error) {
	resp, err := e.Execute(Request{Command: cmdReadUserInfo})
	if err != nil {
		return UserInfo{}, err
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return UserInfo{}, nil
	}
	r := newArgReader(arg.Data)
	info := UserInfo{}
	info.UserID = r.u32()
	info.ViewerID = r.u32()
	info.LastSyncPC = r.u32()
	info.LastSyncDate, _ = DecodeTimestamp(r.take(8))
	nameLen := int(r.u8())
	r.skip(1) // passwordLen, unused here
	info.UserName = r.str(nameLen)
	return info, nil
}

// WriteUserInfo updates the device's sync identity ( steps 2, 6).
func (e *Engine) WriteUserInfo(info UserInfo) error {
	w := newArgWriter()
	w.u32(info.UserID)
	w.u32(info.ViewerID)
	w.u32(info.LastSyncPC)
	w.raw(info.LastSyncDate.Encode())
	w.u8(byte(len(info.UserName) + 1))
	w.u8(0) // password length, unused
	w.cstringNUL(info.UserName)
	req := Request{Command: cmdWriteUserInfo, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	_, err := e.Execute(req)
	return err
}

// --- GetSysDateTime / SetSysDateTime --------------------------------------

// GetSysDateTime reads the device's current clock.
func (e *Engine) GetSysDateTime() (Timestamp, error) {
	resp, err := e.Execute(Request{Command: cmdGetSysDateTime})
	if err != nil {
		return Timestamp{}, err
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return Timestamp{}, nil
	}
	return DecodeTimestamp(arg.Data)
}

// SetSysDateTime sets the device's clock from the host's.
func (e *Engine) SetSysDateTime(t Timestamp) error {
	req := Request{Command: cmdSetSysDateTime, Args: []Arg{{ID: argStd, Data: t.Encode()}}}
	_, err := e.Execute(req)
	return err
}

// --- ReadDBList ------------------------------------------------------------

const (
	dbListFlagRAM      = 0x80
	dbListFlagROM      = 0x40
	dbListFlagMultiple = 0x20
)

// DBInfo describes one database as returned by ReadDBList.
type DBInfo struct {
	Index        uint16
	Attrs        uint16
	Version      uint16
	Type         string
	Creator      string
	Name         string
	IsResourceDB bool
}

// ReadDBList lists databases starting at startIndex, for the given
// location (ram/rom — never both in one call). It returns the
// databases found in one call; the caller advances startIndex past
// the last returned index and calls again until NOT_FOUND.
func (e *Engine) ReadDBList(ram bool, startIndex uint16) ([]DBInfo, error) {
	flags := byte(dbListFlagMultiple)
	if ram {
		flags |= dbListFlagRAM
	} else {
		flags |= dbListFlagROM
	}
	w := newArgWriter()
	w.u8(flags)
	w.u8(0) // reserved
	w.u16(startIndex)
	req := Request{Command: cmdReadDBList, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req, StatusNotFound)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusNotFound {
		return nil, nil
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return nil, nil
	}
	r := newArgReader(arg.Data)
	count := int(r.u8())
	r.skip(1) // reserved
	dbs := make([]DBInfo, 0, count)
	for i := 0; i < count; i++ {
		var d DBInfo
		d.Index = r.u16()
		d.Attrs = r.u16()
		d.Version = r.u16()
		r.skip(4 + 4 + 4 + 4) // creation/modification/backup/modNum, unused here
		d.Type = r.str(4)
		d.Creator = r.str(4)
		nameLen := int(r.u8())
		d.Name = r.str(nameLen)
		d.IsResourceDB = pdb.DatabaseAttrs(d.Attrs).ResDB()
		dbs = append(dbs, d)
	}
	return dbs, nil
}

// --- OpenDB / CloseDB / CreateDB / DeleteDB -------------------------------

const (
	OpenRead       = 0x80
	OpenWrite      = 0x40
	OpenExclusive  = 0x20
	OpenSecret     = 0x10
)

// OpenDB opens a database by name in the given mode, returning a server
// opaque handle.
func (e *Engine) OpenDB(cardNo byte, name string, mode byte) (handle byte, err error) {
	w := newArgWriter()
	w.u8(cardNo)
	w.u8(mode)
	w.cstringNUL(name)
	req := Request{Command: cmdOpenDB, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, execErr := e.Execute(req)
	if execErr != nil {
		return 0, execErr
	}
	arg, ok := resp.Arg(argStd)
	if !ok || len(arg.Data) < 1 {
		return 0, nil
	}
	return arg.Data[0], nil
}

// CloseDB closes a previously opened database handle.
func (e *Engine) CloseDB(handle byte) error {
	req := Request{Command: cmdCloseDB, Args: []Arg{{ID: argStd, Data: []byte{handle}}}}
	_, err := e.Execute(req)
	return err
}

// CreateDBSpec describes a database to create.
type CreateDBSpec struct {
	CardNo       byte
	Creator      string
	Type         string
	Flags        byte
	Version      uint16
	Name         string
}

// CreateDB creates a new database on the device, returning its handle.
func (e *Engine) CreateDB(spec CreateDBSpec) (handle byte, err error) {
	w := newArgWriter()
	w.u8(spec.CardNo)
	w.tag4(spec.Creator)
	w.tag4(spec.Type)
	w.u8(spec.Flags)
	w.u16(spec.Version)
	w.cstringNUL(spec.Name)
	req := Request{Command: cmdCreateDB, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, execErr := e.Execute(req)
	if execErr != nil {
		return 0, execErr
	}
	arg, ok := resp.Arg(argStd)
	if !ok || len(arg.Data) < 1 {
		return 0, nil
	}
	return arg.Data[0], nil
}

// DeleteDB deletes a database by name (: ignoring NOT_FOUND
// is the orchestrator's concern, not this call's).
func (e *Engine) DeleteDB(cardNo byte, name string) error {
	w := newArgWriter()
	w.u8(cardNo)
	w.u8(0)
	w.cstringNUL(name)
	req := Request{Command: cmdDeleteDB, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	_, err := e.Execute(req)
	return err
}

// --- ReadOpenDBInfo / FindDBByOpenHandle ----------------------------------

// OpenDBInfo reports block sizes for an open database handle.
type OpenDBInfo struct {
	NumRecords uint16
}

// ReadOpenDBInfo retrieves the record count of an open database.
func (e *Engine) ReadOpenDBInfo(handle byte) (OpenDBInfo, error) {
	req := Request{Command: cmdReadOpenDBInfo, Args: []Arg{{ID: argStd, Data: []byte{handle}}}}
	resp, err := e.Execute(req)
	if err != nil {
		return OpenDBInfo{}, err
	}
	arg, ok := resp.Arg(argStd)
	if !ok || len(arg.Data) < 2 {
		return OpenDBInfo{}, nil
	}
	r := newArgReader(arg.Data)
	return OpenDBInfo{NumRecords: r.u16()}, nil
}

// FindDBInfo is the richer metadata FindDBByOpenHandle can return
// (Palm OS >= 3;).
type FindDBInfo struct {
	Attrs   uint16
	Version uint16
	Name    string
}

// FindDBByOpenHandle retrieves metadata by open handle. The supported
// return is false on devices too old to implement this command
// (StatusUnsupported); callers must then fall back to scanning
// ReadDBList.
func (e *Engine) FindDBByOpenHandle(handle byte) (info FindDBInfo, supported bool, err error) {
	w := newArgWriter()
	w.u8(handle)
	w.u8(0x80 | 0x40) // request attrs + size optional flags
	req := Request{Command: cmdFindDBByOpenHandle, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req, StatusUnsupported)
	if err != nil {
		return FindDBInfo{}, false, err
	}
	if resp.Status == StatusUnsupported {
		return FindDBInfo{}, false, nil
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return FindDBInfo{}, true, nil
	}
	r := newArgReader(arg.Data)
	info.Attrs = r.u16()
	info.Version = r.u16()
	nameLen := int(r.u8())
	info.Name = r.str(nameLen)
	return info, true, nil
}

// --- AppBlock / SortBlock --------------------------------------------------

// ReadAppBlock reads the AppInfo block of an open database.
func (e *Engine) ReadAppBlock(handle byte) ([]byte, error) {
	w := newArgWriter()
	w.u8(handle)
	w.u8(0)
	w.u16(0)
	w.u16(0xFFFF)
	req := Request{Command: cmdReadAppBlock, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req, StatusNotFound)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusNotFound {
		return nil, nil
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return nil, nil
	}
	return arg.Data, nil
}

// WriteAppBlock writes the AppInfo block of an open database.
func (e *Engine) WriteAppBlock(handle byte, data []byte) error {
	w := newArgWriter()
	w.u8(handle)
	w.u8(0)
	w.u16(uint16(len(data)))
	w.raw(data)
	req := Request{Command: cmdWriteAppBlock, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	_, err := e.Execute(req)
	return err
}

// ReadSortBlock reads the SortInfo block of an open database.
func (e *Engine) ReadSortBlock(handle byte) ([]byte, error) {
	w := newArgWriter()
	w.u8(handle)
	w.u8(0)
	w.u16(0)
	w.u16(0xFFFF)
	req := Request{Command: cmdReadSortBlock, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req, StatusNotFound)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusNotFound {
		return nil, nil
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return nil, nil
	}
	return arg.Data, nil
}

// WriteSortBlock writes the SortInfo block of an open database.
func (e *Engine) WriteSortBlock(handle byte, data []byte) error {
	w := newArgWriter()
	w.u8(handle)
	w.u8(0)
	w.u16(uint16(len(data)))
	w.raw(data)
	req := Request{Command: cmdWriteSortBlock, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	_, err := e.Execute(req)
	return err
}

// --- Records -----------------------------------------------------------

// RecordData is a single record/resource payload returned by a read call.
type RecordData struct {
	ID       uint32
	Index    uint16
	Attrs    byte
	Category byte
	Type     string // resource type tag; set only by ReadResourceByIndex
	Data     []byte
}

// ReadRecordIDList lists the unique record ids in an open database, in
// either database order or sorted order.
func (e *Engine) ReadRecordIDList(handle byte, sorted bool, startIndex, maxRecords uint16) ([]uint32, error) {
	w := newArgWriter()
	w.u8(handle)
	if sorted {
		w.u8(0x80)
	} else {
		w.u8(0)
	}
	w.u16(startIndex)
	w.u16(maxRecords)
	req := Request{Command: cmdReadRecordIDList, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req, StatusNotFound)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusNotFound {
		return nil, nil
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return nil, nil
	}
	r := newArgReader(arg.Data)
	count := int(r.u16())
	ids := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, r.u32())
	}
	return ids, nil
}

// ReadRecordByID reads one record by its unique id.
func (e *Engine) ReadRecordByID(handle byte, id uint32) (RecordData, error) {
	w := newArgWriter()
	w.u8(handle)
	w.u8(0)
	w.u32(id)
	w.u16(0)
	w.u16(0xFFFF)
	req := Request{Command: cmdReadRecordByID, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req)
	if err != nil {
		return RecordData{}, err
	}
	return decodeRecordArg(resp)
}

// ReadRecordByIndex reads one record by its position in the database.
func (e *Engine) ReadRecordByIndex(handle byte, index uint16) (RecordData, error) {
	w := newArgWriter()
	w.u8(handle)
	w.u16(index)
	w.u16(0)
	w.u16(0xFFFF)
	req := Request{Command: cmdReadRecordByIndex, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req)
	if err != nil {
		return RecordData{}, err
	}
	return decodeRecordArg(resp)
}

func decodeRecordArg(resp Response) (RecordData, error) {
	arg, ok := resp.Arg(argStd)
	if !ok {
		return RecordData{}, nil
	}
	r := newArgReader(arg.Data)
	rec := RecordData{}
	rec.ID = r.u32()
	rec.Index = r.u16()
	rec.Attrs = r.u8()
	rec.Category = r.u8()
	rec.Data = r.rest()
	return rec, nil
}

// WriteRecord writes (creates or updates) one record. id=0 requests the
// device assign a new unique id.
func (e *Engine) WriteRecord(handle byte, id uint32, attrs, category byte, data []byte) (uint32, error) {
	w := newArgWriter()
	w.u8(handle)
	w.u8(0) // reserved flags
	w.u32(id)
	w.u8(attrs)
	w.u8(category)
	w.raw(data)
	req := Request{Command: cmdWriteRecord, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req)
	if err != nil {
		return 0, err
	}
	arg, ok := resp.Arg(argStd)
	if !ok || len(arg.Data) < 4 {
		return id, nil
	}
	return newArgReader(arg.Data).u32(), nil
}

// ReadResourceByIndex reads a resource by its position.
func (e *Engine) ReadResourceByIndex(handle byte, index uint16) (RecordData, error) {
	w := newArgWriter()
	w.u8(handle)
	w.u16(index)
	w.u16(0)
	w.u16(0xFFFF)
	req := Request{Command: cmdReadResourceByIdx, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	resp, err := e.Execute(req)
	if err != nil {
		return RecordData{}, err
	}
	arg, ok := resp.Arg(argStd)
	if !ok {
		return RecordData{}, nil
	}
	r := newArgReader(arg.Data)
	rec := RecordData{}
	rec.Type = r.str(4)
	rec.ID = uint32(r.u16())
	rec.Data = r.rest()
	return rec, nil
}

// WriteResource writes one resource.
func (e *Engine) WriteResource(handle byte, resType string, resID uint16, data []byte) error {
	w := newArgWriter()
	w.u8(handle)
	w.tag4(resType)
	w.u16(resID)
	w.u16(uint16(len(data)))
	w.raw(data)
	req := Request{Command: cmdWriteResource, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	_, err := e.Execute(req)
	return err
}

// --- Session lifecycle ----------------------------------------------------

// OpenConduit announces the start of a sync session.
func (e *Engine) OpenConduit() error {
	_, err := e.Execute(Request{Command: cmdOpenConduit})
	return err
}

// AddSyncLogEntry appends a line to the device's sync log.
func (e *Engine) AddSyncLogEntry(text string) error {
	w := newArgWriter()
	w.cstringNUL(text)
	req := Request{Command: cmdAddSyncLogEntry, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	_, err := e.Execute(req)
	return err
}

// EndOfSync terminates the session with the given status.
func (e *Engine) EndOfSync(status Status) error {
	w := newArgWriter()
	w.u16(uint16(status))
	req := Request{Command: cmdEndOfSync, Args: []Arg{{ID: argStd, Data: w.bytes()}}}
	_, err := e.Execute(req)
	return err
}

// ResetSystem requests the device reboot after sync (:
// WriteDB's resetAfterInstall handling).
func (e *Engine) ResetSystem() error {
	_, err := e.Execute(Request{Command: cmdResetSystem})
	return err
}
