// Package netserver implements the network-sync server lifecycle:
// listen, accept, handshake, run a DLP session, log, end-of-sync.
package netserver

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palmsync/hotsync-nexus/pkg/database"
	"github.com/palmsync/hotsync-nexus/pkg/device"
	"github.com/palmsync/hotsync-nexus/pkg/dlp"
	"github.com/palmsync/hotsync-nexus/pkg/eventbus"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
	"github.com/palmsync/hotsync-nexus/pkg/metrics"
	"github.com/palmsync/hotsync-nexus/pkg/orchestrator"
	"github.com/palmsync/hotsync-nexus/pkg/session"
)

// Config configures the network-sync listener.
type Config struct {
	Addr    string // host:port to listen on
	DataDir string // root directory holding one subdirectory per paired device
	HostID  string
}

// Server accepts network-sync connections and drives a full device sync
// on each one.
type Server struct {
	config  Config
	log     *logger.Logger
	acl     *device.ACL
	metrics *metrics.Collector
	events  *eventbus.Publisher
	syncLog *database.SyncLogRepository
	devices *database.DeviceRepository

	// SessionStarted/DatabaseSynced/SessionEnded, if set, mirror session
	// lifecycle events onto a dashboard feed without this
	// package depending on pkg/web directly.
	SessionStarted func(deviceUserID uint32, transport string)
	DatabaseSynced func(deviceUserID uint32, database, direction string, recordCount int)
	SessionEnded   func(deviceUserID uint32, syncType string, databases int)

	listenerMu sync.RWMutex
	listener   net.Listener
	wg         sync.WaitGroup
}

// New constructs a network-sync server.
func New(cfg Config, log *logger.Logger) *Server {
	return &Server{config: cfg, log: log.WithComponent("netserver")}
}

// WithACL gates which device user ids may sync.
func (s *Server) WithACL(acl *device.ACL) *Server {
	s.acl = acl
	return s
}

// WithMetrics wires a metrics collector.
func (s *Server) WithMetrics(c *metrics.Collector) *Server {
	s.metrics = c
	return s
}

// WithEventBus wires an event-bus publisher.
func (s *Server) WithEventBus(p *eventbus.Publisher) *Server {
	s.events = p
	return s
}

// WithRepos wires the sync-log and device repositories.
func (s *Server) WithRepos(syncLog *database.SyncLogRepository, devices *database.DeviceRepository) *Server {
	s.syncLog = syncLog
	s.devices = devices
	return s
}

// Start listens on the configured address and accepts connections until
// ctx is cancelled. Stop() then stops accepting new connections and
// waits for the current session to complete or fail.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("netserver: listen on %s: %w", s.config.Addr, err)
	}
	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	s.log.Info("network-sync listener started", logger.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				s.log.Error("accept failed", logger.Error(err))
				return fmt.Errorf("netserver: accept: %w", err)
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn runs one complete network-sync session over conn: handshake,
// DLP session start, ACL check, orchestrated sync, end-of-sync.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	connLog := s.log.WithComponent("conn")
	connLog.Info("connection accepted", logger.String("remote", conn.RemoteAddr().String()))

	rec := session.NewRecorder()
	sess := session.NewNetworkSession(conn, rec, connLog)

	if err := sess.Handshake(); err != nil {
		connLog.Error("handshake failed", logger.Error(err))
		return
	}
	if err := sess.Start(); err != nil {
		connLog.Error("session start failed", logger.Error(err))
		return
	}

	userID := sess.UserInfo.UserID
	if s.acl != nil && userID != 0 && !s.acl.Check(userID) {
		connLog.Warn("device denied by ACL", logger.Uint32("user_id", userID))
		_ = sess.End("denied by ACL", dlp.StatusIllegalRequest)
		return
	}

	if s.metrics != nil {
		s.metrics.SessionStarted()
		defer s.metrics.SessionEnded()
	}
	if s.events != nil {
		_ = s.events.PublishSessionStart(eventbus.SessionStartEvent{DeviceUserID: userID, Transport: "net", Timestamp: time.Now()})
	}
	if s.SessionStarted != nil {
		s.SessionStarted(userID, "net")
	}

	sessionID := uuid.NewString()
	deviceDir := s.deviceDirFor(userID, sessionID)

	dbCount := 0
	orch := orchestrator.New(sess.Engine, deviceDir, s.config.HostID, connLog)
	orch.OnDatabaseSynced = func(name, direction string, recordCount int) {
		dbCount++
		entry := &database.SyncLogEntry{
			SessionID:    sessionID,
			DeviceUserID: userID,
			Database:     name,
			Direction:    direction,
			RecordCount:  recordCount,
			StartedAt:    time.Now(),
			FinishedAt:   time.Now(),
		}
		if s.syncLog != nil {
			if err := s.syncLog.Create(entry); err != nil {
				connLog.Error("recording sync log entry", logger.Error(err))
			}
		}
		if s.metrics != nil {
			s.metrics.RecordsTransferred(recordCount)
		}
		if s.events != nil {
			_ = s.events.PublishDatabaseSynced(eventbus.DatabaseSyncedEvent{
				DeviceUserID: userID, Database: name, Direction: direction, RecordCount: recordCount, Timestamp: time.Now(),
			})
		}
		if s.DatabaseSynced != nil {
			s.DatabaseSynced(userID, name, direction, recordCount)
		}
	}

	runErr := orch.Run()
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		connLog.Error("sync run failed", logger.Error(runErr))
	}

	if s.devices != nil {
		_ = s.devices.Upsert(&database.DeviceRecord{
			UserID: userID, UserName: sess.UserInfo.UserName,
			LastSyncHost: s.config.HostID, LastSyncAt: time.Now(),
		})
	}
	if s.events != nil {
		_ = s.events.PublishSessionEnd(eventbus.SessionEndEvent{
			DeviceUserID: userID, SyncType: orch.LastSyncType.String(), Databases: dbCount, Error: errMsg, Timestamp: time.Now(),
		})
	}
	if s.SessionEnded != nil {
		s.SessionEnded(userID, orch.LastSyncType.String(), dbCount)
	}
}

// deviceDirFor resolves the per-device directory. A device
// pairing for the first time has no user id yet; its directory is keyed
// by the session id until the orchestrator assigns one and persists the
// pairing record there.
func (s *Server) deviceDirFor(userID uint32, sessionID string) string {
	if userID == 0 {
		return filepath.Join(s.config.DataDir, "unpaired-"+sessionID)
	}
	return filepath.Join(s.config.DataDir, strconv.FormatUint(uint64(userID), 10))
}

// Stop closes the listener, ending the accept loop, then waits for every
// in-flight session to complete or fail.
func (s *Server) Stop() error {
	s.listenerMu.RLock()
	ln := s.listener
	s.listenerMu.RUnlock()
	if ln == nil {
		return nil
	}
	err := ln.Close()
	s.wg.Wait()
	return err
}
