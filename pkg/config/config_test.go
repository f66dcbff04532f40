package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	// Reset viper to avoid cross-test pollution
	viper.Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Web.Enabled != true {
		t.Errorf("expected Web.Enabled default true, got %v", cfg.Web.Enabled)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected Web.Port default 8080, got %d", cfg.Web.Port)
	}
	if cfg.Global.PADPAckTimeoutMS != 2000 {
		t.Errorf("expected Global.PADPAckTimeoutMS default 2000, got %d", cfg.Global.PADPAckTimeoutMS)
	}
	if cfg.Global.PADPMaxRetries != 10 {
		t.Errorf("expected Global.PADPMaxRetries default 10, got %d", cfg.Global.PADPMaxRetries)
	}
	if cfg.Transport.Kind != "usb" {
		t.Errorf("expected Transport.Kind default usb, got %q", cfg.Transport.Kind)
	}
	if cfg.Logging.Level == "" {
		t.Errorf("expected Logging.Level to be set (default info)")
	}
	if cfg.Metrics.Prometheus.Port != 9090 {
		t.Errorf("expected Prometheus.Port default 9090, got %d", cfg.Metrics.Prometheus.Port)
	}
	if cfg.Database.Path != "hotsync.db" {
		t.Errorf("expected Database.Path default hotsync.db, got %q", cfg.Database.Path)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Run("invalid padp ack timeout", func(t *testing.T) {
		cfg := &Config{
			Global:    GlobalConfig{PADPAckTimeoutMS: 0, PADPMaxRetries: 1},
			Transport: TransportConfig{Kind: "usb"},
			Device:    DeviceConfig{DataDir: "./devices"},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for non-positive global.padp_ack_timeout_ms")
		}
	})

	t.Run("invalid web port when enabled", func(t *testing.T) {
		cfg := &Config{
			Global:    GlobalConfig{PADPAckTimeoutMS: 1, PADPMaxRetries: 1},
			Transport: TransportConfig{Kind: "usb"},
			Device:    DeviceConfig{DataDir: "./devices"},
			Web:       WebConfig{Enabled: true, Port: 70000},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for invalid web.port out of range")
		}
	})

	t.Run("serial transport missing serial_port", func(t *testing.T) {
		cfg := &Config{
			Global:    GlobalConfig{PADPAckTimeoutMS: 1, PADPMaxRetries: 1},
			Transport: TransportConfig{Kind: "serial"},
			Device:    DeviceConfig{DataDir: "./devices"},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for serial transport without serial_port")
		}
	})

	t.Run("net transport missing net_addr", func(t *testing.T) {
		cfg := &Config{
			Global:    GlobalConfig{PADPAckTimeoutMS: 1, PADPMaxRetries: 1},
			Transport: TransportConfig{Kind: "net"},
			Device:    DeviceConfig{DataDir: "./devices"},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for net transport without net_addr")
		}
	})

	t.Run("invalid ACL prefix", func(t *testing.T) {
		cfg := &Config{
			Global:    GlobalConfig{PADPAckTimeoutMS: 1, PADPMaxRetries: 1},
			Transport: TransportConfig{Kind: "usb"},
			Device:    DeviceConfig{DataDir: "./devices", UseACL: true, ACL: "ALLOW:1"},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for ACL not starting with PERMIT: or DENY:")
		}
	})

	t.Run("mqtt enabled without broker", func(t *testing.T) {
		cfg := &Config{
			Global:    GlobalConfig{PADPAckTimeoutMS: 1, PADPMaxRetries: 1},
			Transport: TransportConfig{Kind: "usb"},
			Device:    DeviceConfig{DataDir: "./devices"},
			MQTT:      MQTTConfig{Enabled: true},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for mqtt enabled without broker")
		}
	})
}
