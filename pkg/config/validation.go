package config

import (
	"fmt"
	"strings"
)

// validate validates the configuration.
func validate(cfg *Config) error {
	if cfg.Global.PADPAckTimeoutMS <= 0 {
		return fmt.Errorf("global.padp_ack_timeout_ms must be positive")
	}
	if cfg.Global.PADPMaxRetries <= 0 {
		return fmt.Errorf("global.padp_max_retries must be positive")
	}

	switch strings.ToLower(cfg.Transport.Kind) {
	case "usb", "serial":
		if cfg.Transport.Kind == "serial" && cfg.Transport.SerialPort == "" {
			return fmt.Errorf("transport.serial_port is required when transport.kind is serial")
		}
	case "net":
		if cfg.Transport.NetAddr == "" {
			return fmt.Errorf("transport.net_addr is required when transport.kind is net")
		}
	default:
		return fmt.Errorf("transport.kind must be usb, serial, or net (got %q)", cfg.Transport.Kind)
	}

	if cfg.Device.DataDir == "" {
		return fmt.Errorf("device.data_dir is required")
	}
	if cfg.Device.UseACL && cfg.Device.ACL != "" {
		if !strings.HasPrefix(cfg.Device.ACL, "PERMIT:") && !strings.HasPrefix(cfg.Device.ACL, "DENY:") {
			return fmt.Errorf("device.acl must start with PERMIT: or DENY:")
		}
	}

	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	return nil
}
