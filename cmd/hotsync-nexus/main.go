// Command hotsync-nexus is the CLI entrypoint for the HotSync protocol
// stack: `info`/`list`/`pull`/`push` run one-shot DLP operations against
// a connected device, `sync` drives one full orchestrated session, and
// `run` starts the long-lived network-sync server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/palmsync/hotsync-nexus/pkg/config"
	"github.com/palmsync/hotsync-nexus/pkg/database"
	"github.com/palmsync/hotsync-nexus/pkg/device"
	"github.com/palmsync/hotsync-nexus/pkg/dlp"
	"github.com/palmsync/hotsync-nexus/pkg/eventbus"
	"github.com/palmsync/hotsync-nexus/pkg/logger"
	"github.com/palmsync/hotsync-nexus/pkg/metrics"
	"github.com/palmsync/hotsync-nexus/pkg/netserver"
	"github.com/palmsync/hotsync-nexus/pkg/orchestrator"
	"github.com/palmsync/hotsync-nexus/pkg/pdb"
	"github.com/palmsync/hotsync-nexus/pkg/session"
	"github.com/palmsync/hotsync-nexus/pkg/web"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

// Exit codes per
const (
	exitOK               = 0
	exitUsageOrTransport = 1
	exitProtocol         = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsageOrTransport
	}

	log := logger.New(logger.Config{Level: "info", Format: "text"})

	switch args[0] {
	case "info":
		return cmdInfo(log, args[1:])
	case "list":
		return cmdList(log, args[1:])
	case "pull":
		return cmdPull(log, args[1:])
	case "push":
		return cmdPush(log, args[1:])
	case "sync":
		return cmdSync(log, args[1:])
	case "run":
		return cmdRun(log, args[1:])
	case "version":
		fmt.Printf("hotsync-nexus %s (commit %s, built %s)\n", version, gitCommit, buildTime)
		return exitOK
	default:
		usage()
		return exitUsageOrTransport
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hotsync-nexus <info|list|pull|push|sync|run|version> [flags]")
	fmt.Fprintln(os.Stderr, "  transport selector: --usb | --net <addr> | --serial <device>")
}

// transportFlags is the common connection selector shared by the
// one-shot commands ( "transport selector --usb|--net|--serial").
type transportFlags struct {
	usb    bool
	net    string
	serial string
	baud   uint
}

func (t *transportFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&t.usb, "usb", false, "connect over the USB-tunneled serial stack")
	fs.StringVar(&t.net, "net", "", "connect to a network-sync listener at host:port")
	fs.StringVar(&t.serial, "serial", "", "connect over a physical serial device path")
	fs.UintVar(&t.baud, "baud", 0, "host-offered baud rate for the CMP handshake (serial/usb only; 0 = no preference)")
}

// dial opens a transport stream and wires a session on top of it,
// running the appropriate handshake for the selected stack.
func (t *transportFlags) dial(log *logger.Logger) (*session.Session, func(), error) {
	switch {
	case t.net != "":
		conn, err := net.Dial("tcp", t.net)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", t.net, err)
		}
		sess := session.NewNetworkSession(conn, session.NewRecorder(), log)
		if err := sess.Handshake(); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return sess, func() { conn.Close() }, nil

	case t.serial != "", t.usb:
		path := t.serial
		if t.usb && path == "" {
			path = "/dev/ttyUSB0"
		}
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("open serial device %s: %w", path, err)
		}
		sess := session.NewSerialSession(f, session.NewRecorder(), log).WithHostBaud(uint32(t.baud))
		if err := sess.Handshake(); err != nil {
			f.Close()
			return nil, nil, err
		}
		return sess, func() { f.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("no transport selected: pass --usb, --net <addr>, or --serial <device>")
	}
}

func cmdInfo(log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var t transportFlags
	t.register(fs)
	fs.Parse(args)

	sess, closeFn, err := t.dial(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transport error:", err)
		return exitUsageOrTransport
	}
	defer closeFn()

	if err := sess.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "protocol error:", err)
		return exitProtocol
	}

	fmt.Printf("Product ID:    %s\n", sess.SysInfo.ProductID)
	fmt.Printf("ROM version:   %08x\n", sess.SysInfo.ROMVersion)
	fmt.Printf("Locale:        %08x\n", sess.SysInfo.LocaleID)
	fmt.Printf("Max rec size:  %s\n", humanize.Bytes(uint64(sess.SysInfo.MaxRecSize)))
	fmt.Printf("User ID:       %d\n", sess.UserInfo.UserID)
	fmt.Printf("User name:     %s\n", sess.UserInfo.UserName)
	fmt.Printf("Last sync PC:  %08x\n", sess.UserInfo.LastSyncPC)
	return exitOK
}

func cmdList(log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var t transportFlags
	t.register(fs)
	ram := fs.Bool("ram", true, "list RAM databases")
	rom := fs.Bool("rom", false, "list ROM databases")
	fs.Parse(args)

	sess, closeFn, err := t.dial(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transport error:", err)
		return exitUsageOrTransport
	}
	defer closeFn()

	if err := sess.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "protocol error:", err)
		return exitProtocol
	}

	locations := []bool{}
	if *ram {
		locations = append(locations, true)
	}
	if *rom {
		locations = append(locations, false)
	}
	for _, isRAM := range locations {
		dbs, err := readDBList(sess.Engine, isRAM)
		if err != nil {
			fmt.Fprintln(os.Stderr, "protocol error:", err)
			return exitProtocol
		}
		for _, d := range dbs {
			kind := "pdb"
			if d.IsResourceDB {
				kind = "prc"
			}
			fmt.Printf("%-32s %s  type=%s creator=%s\n", d.Name, kind, d.Type, d.Creator)
		}
	}
	return exitOK
}

func readDBList(e *dlp.Engine, ram bool) ([]dlp.DBInfo, error) {
	var all []dlp.DBInfo
	startIndex := uint16(0)
	for {
		batch, err := e.ReadDBList(ram, startIndex)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return all, nil
		}
		all = append(all, batch...)
		startIndex = batch[len(batch)-1].Index + 1
	}
}

func cmdPull(log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	var t transportFlags
	t.register(fs)
	ram := fs.Bool("ram", false, "pull every RAM database")
	rom := fs.Bool("rom", false, "pull every ROM database")
	outDir := fs.String("o", ".", "output directory")
	fs.Parse(args)
	names := fs.Args()

	sess, closeFn, err := t.dial(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transport error:", err)
		return exitUsageOrTransport
	}
	defer closeFn()

	if err := sess.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "protocol error:", err)
		return exitProtocol
	}

	if len(names) == 0 && !*ram && !*rom {
		fmt.Fprintln(os.Stderr, "pull: specify database names, or --ram/--rom")
		return exitUsageOrTransport
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "transport error:", err)
		return exitUsageOrTransport
	}

	pull := func(name string, isRAM bool) error {
		db, err := orchestrator.ReadDB(sess.Engine, name, isRAM, orchestrator.ReadDBOptions{})
		if err != nil {
			return err
		}
		data, err := db.Emit()
		if err != nil {
			return err
		}
		ext := ".pdb"
		if db.IsResourceDB {
			ext = ".prc"
		}
		path := filepath.Join(*outDir, name+ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("pulled %-32s %s\n", name, humanize.Bytes(uint64(len(data))))
		return nil
	}

	for _, name := range names {
		if err := pull(name, true); err != nil {
			fmt.Fprintln(os.Stderr, "protocol error:", err)
			return exitProtocol
		}
	}
	for _, isRAM := range []struct {
		want bool
		ram  bool
	}{{*ram, true}, {*rom, false}} {
		if !isRAM.want {
			continue
		}
		dbs, err := readDBList(sess.Engine, isRAM.ram)
		if err != nil {
			fmt.Fprintln(os.Stderr, "protocol error:", err)
			return exitProtocol
		}
		for _, d := range dbs {
			if err := pull(d.Name, isRAM.ram); err != nil {
				fmt.Fprintln(os.Stderr, "protocol error:", err)
				return exitProtocol
			}
		}
	}
	return exitOK
}

func cmdPush(log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	var t transportFlags
	t.register(fs)
	noOverwrite := fs.Bool("no-overwrite", false, "fail rather than overwrite an existing device database")
	fs.Parse(args)
	files := fs.Args()

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "push: specify one or more PDB/PRC files")
		return exitUsageOrTransport
	}

	sess, closeFn, err := t.dial(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transport error:", err)
		return exitUsageOrTransport
	}
	defer closeFn()

	if err := sess.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "protocol error:", err)
		return exitProtocol
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "transport error:", err)
			return exitUsageOrTransport
		}
		db, err := pdb.Parse(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, "transport error:", err)
			return exitUsageOrTransport
		}
		if *noOverwrite {
			if existing, err := readDBList(sess.Engine, true); err == nil {
				for _, e := range existing {
					if e.Name == db.Name {
						fmt.Fprintf(os.Stderr, "push: %s already exists on device, refusing to overwrite\n", db.Name)
						return exitUsageOrTransport
					}
				}
			}
		}
		if err := orchestrator.WriteDB(sess.Engine, db); err != nil {
			fmt.Fprintln(os.Stderr, "protocol error:", err)
			return exitProtocol
		}
		fmt.Printf("pushed %-32s %s\n", db.Name, humanize.Bytes(uint64(len(data))))
	}
	return exitOK
}

func cmdSync(log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	var t transportFlags
	t.register(fs)
	dataDir := fs.String("data-dir", "./devices", "per-device directory root")
	hostID := fs.String("host-id", "hotsync-nexus", "this host's identifier, for FAST/SLOW sync decision")
	fs.Parse(args)

	sess, closeFn, err := t.dial(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transport error:", err)
		return exitUsageOrTransport
	}
	defer closeFn()

	if err := sess.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "protocol error:", err)
		return exitProtocol
	}

	deviceDir := filepath.Join(*dataDir, "cli-session")
	orch := orchestrator.New(sess.Engine, deviceDir, *hostID, log)
	orch.OnDatabaseSynced = func(name, direction string, recordCount int) {
		fmt.Printf("%-10s %-32s %d records\n", direction, name, recordCount)
	}
	if err := orch.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "protocol error:", err)
		return exitProtocol
	}
	fmt.Printf("sync complete: %s\n", orch.LastSyncType)
	return exitOK
}

// cmdRun starts the long-lived network-sync server together with the
// optional ambient services (metrics, persistence, event bus, dashboard)
// configured in the config file, and blocks until a shutdown signal
// arrives.
func cmdRun(log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("failed to load configuration", logger.Error(err))
		return exitUsageOrTransport
	}

	log = logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Info("starting hotsync-nexus",
		logger.String("version", version),
		logger.String("commit", gitCommit),
		logger.String("build_time", buildTime))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	metricsCollector := metrics.NewCollector()
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv := metrics.NewPrometheusServer(metrics.PrometheusConfig{
				Enabled: cfg.Metrics.Prometheus.Enabled,
				Port:    cfg.Metrics.Prometheus.Port,
				Path:    cfg.Metrics.Prometheus.Path,
			}, metricsCollector, log.WithComponent("metrics"))
			if err := srv.Start(ctx); err != nil && err != context.Canceled {
				log.Error("prometheus server error", logger.Error(err))
			}
		}()
		log.Info("prometheus metrics server started", logger.Int("port", cfg.Metrics.Prometheus.Port))
	}

	db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log.WithComponent("database"))
	if err != nil {
		log.Error("failed to initialize database", logger.Error(err))
		return exitUsageOrTransport
	}
	defer db.Close()

	syncLogRepo := database.NewSyncLogRepository(db.GetDB())
	deviceRepo := database.NewDeviceRepository(db.GetDB())
	log.Info("database initialized", logger.String("path", cfg.Database.Path))

	var eventPublisher *eventbus.Publisher
	if cfg.MQTT.Enabled {
		eventPublisher = eventbus.New(eventbus.Config{
			Enabled:     cfg.MQTT.Enabled,
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			QoS:         cfg.MQTT.QoS,
			Retained:    cfg.MQTT.Retained,
		}, log.WithComponent("eventbus"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eventPublisher.Start(ctx); err != nil && err != context.Canceled {
				log.Error("event bus error", logger.Error(err))
			}
		}()
		log.Info("event bus started", logger.String("broker", cfg.MQTT.Broker))
	}

	var webServer *web.Server
	if cfg.Web.Enabled {
		webServer = web.NewServer(cfg.Web, log.WithComponent("web")).WithRepos(syncLogRepo, deviceRepo)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := webServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("web server error", logger.Error(err))
			}
		}()
		log.Info("web dashboard started", logger.String("host", cfg.Web.Host), logger.Int("port", cfg.Web.Port))
	}

	var acl *device.ACL
	if cfg.Device.UseACL {
		acl, err = device.ParseACL(cfg.Device.ACL)
		if err != nil {
			log.Error("invalid device ACL", logger.Error(err))
			return exitUsageOrTransport
		}
	}

	if cfg.Transport.Kind == "net" {
		netCfg := netserver.Config{
			Addr:    cfg.Transport.NetAddr,
			DataDir: cfg.Device.DataDir,
			HostID:  cfg.Global.HostID,
		}
		netSrv := netserver.New(netCfg, log.WithComponent("netserver")).
			WithMetrics(metricsCollector).
			WithRepos(syncLogRepo, deviceRepo)
		if acl != nil {
			netSrv = netSrv.WithACL(acl)
		}
		if eventPublisher != nil {
			netSrv = netSrv.WithEventBus(eventPublisher)
		}
		if webServer != nil {
			netSrv.SessionStarted = func(userID uint32, transport string) {
				webServer.GetHub().BroadcastSessionStart(userID, transport)
			}
			netSrv.DatabaseSynced = func(userID uint32, dbName, direction string, records int) {
				webServer.GetHub().BroadcastDatabaseSynced(userID, dbName, direction, records)
			}
			netSrv.SessionEnded = func(userID uint32, syncType string, databases int) {
				webServer.GetHub().BroadcastSessionEnd(userID, syncType, databases)
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := netSrv.Start(ctx); err != nil && err != context.Canceled {
				log.Error("network-sync server error", logger.Error(err))
			}
		}()
		log.Info("network-sync server started", logger.String("addr", cfg.Transport.NetAddr))
	} else {
		log.Warn("run only serves the network-sync transport; use info/list/pull/push/sync for usb/serial",
			logger.String("transport.kind", cfg.Transport.Kind))
	}

	sig := <-sigChan
	log.Info("received shutdown signal", logger.String("signal", sig.String()))
	cancel()
	if eventPublisher != nil {
		eventPublisher.Stop()
	}
	wg.Wait()
	log.Info("hotsync-nexus stopped")
	return exitOK
}
