package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Global    GlobalConfig    `mapstructure:"global"`
	Transport TransportConfig `mapstructure:"transport"`
	Device    DeviceConfig    `mapstructure:"device"`
	Web       WebConfig       `mapstructure:"web"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// GlobalConfig holds HotSync engine-level tuning.
type GlobalConfig struct {
	PADPAckTimeoutMS int    `mapstructure:"padp_ack_timeout_ms"` // PADP ACK wait window
	PADPMaxRetries   int    `mapstructure:"padp_max_retries"`    // PADP retransmit cap
	HostBaudRate     uint32 `mapstructure:"host_baud_rate"`      // CMP host-offered baud; 0 = no preference
	HostID           string `mapstructure:"host_id"`             // identifies this host for FAST/SLOW sync decision
}

// TransportConfig selects and configures the serial or network stack.
type TransportConfig struct {
	Kind       string `mapstructure:"kind"` // "usb", "serial", or "net"
	SerialPort string `mapstructure:"serial_port"`
	NetAddr    string `mapstructure:"net_addr"` // host:port for the network-sync listener
}

// DeviceConfig holds the per-device directory layout root and ACL.
type DeviceConfig struct {
	DataDir string `mapstructure:"data_dir"`
	UseACL  bool   `mapstructure:"use_acl"`
	ACL     string `mapstructure:"acl"` // "PERMIT:ALL", "DENY:1000-1999", ...
}

// WebConfig holds the optional dashboard configuration.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MQTTConfig holds event-bus publisher configuration.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus exposition configuration.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// DatabaseConfig holds the sync-log/device-registry sqlite path
//.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/hotsync-nexus")
	}

	viper.SetEnvPrefix("HOTSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("global.padp_ack_timeout_ms", 2000)
	viper.SetDefault("global.padp_max_retries", 10)
	viper.SetDefault("global.host_baud_rate", 0)
	viper.SetDefault("global.host_id", "hotsync-nexus")

	viper.SetDefault("transport.kind", "usb")
	viper.SetDefault("transport.net_addr", ":14238")

	viper.SetDefault("device.data_dir", "./devices")
	viper.SetDefault("device.use_acl", false)
	viper.SetDefault("device.acl", "PERMIT:ALL")

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.topic_prefix", "hotsync/nexus")
	viper.SetDefault("mqtt.client_id", "hotsync-nexus")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retained", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")

	viper.SetDefault("database.path", "hotsync.db")
}
