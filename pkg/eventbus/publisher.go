// Package eventbus publishes HotSync session lifecycle events to an
// optional MQTT broker, for home-automation-style external monitors
//.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/palmsync/hotsync-nexus/pkg/logger"
)

// Config holds event-bus publisher configuration.
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// Publisher handles MQTT event publishing for sync lifecycle events.
type Publisher struct {
	config Config
	log    *logger.Logger
}

// SessionStartEvent marks the beginning of a HotSync session.
type SessionStartEvent struct {
	DeviceUserID uint32    `json:"device_user_id"`
	Transport    string    `json:"transport"` // "serial" or "net"
	Timestamp    time.Time `json:"timestamp"`
}

// DatabaseSyncedEvent reports a single database conduit finishing
//.
type DatabaseSyncedEvent struct {
	DeviceUserID uint32    `json:"device_user_id"`
	Database     string    `json:"database"`
	Direction    string    `json:"direction"` // "download", "upload", "two-way"
	RecordCount  int       `json:"record_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// SessionEndEvent marks the end of a HotSync session (
// step 6).
type SessionEndEvent struct {
	DeviceUserID uint32    `json:"device_user_id"`
	SyncType     string    `json:"sync_type"` // FIRST_SYNC, SLOW_SYNC, FAST_SYNC
	Databases    int       `json:"databases"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// New creates a new event-bus publisher.
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &Publisher{
		config: config,
		log:    log.WithComponent("eventbus"),
	}
}

// Start starts the event-bus publisher.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.log.Info("event bus publisher disabled")
		return nil
	}

	p.log.Info("starting event bus publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", p.config.ClientID))

	// TODO: wire an actual MQTT client when a broker connection is needed
	// for a deployment; this stub lets the application start without one.
	p.log.Warn("MQTT connection not yet implemented - events will not be published")

	return nil
}

// Stop stops the event-bus publisher.
func (p *Publisher) Stop() {
	if !p.config.Enabled {
		return
	}
	p.log.Info("stopping event bus publisher")
}

// PublishSessionStart publishes a session.start event.
func (p *Publisher) PublishSessionStart(event SessionStartEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("session/start"), event)
}

// PublishDatabaseSynced publishes a database.synced event.
func (p *Publisher) PublishDatabaseSynced(event DatabaseSyncedEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("database/synced"), event)
}

// PublishSessionEnd publishes a session.end event.
func (p *Publisher) PublishSessionEnd(event SessionEndEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("session/end"), event)
}

// publish publishes an event to a topic.
func (p *Publisher) publish(topic string, event interface{}) error {
	payload, err := p.serializeEvent(event)
	if err != nil {
		p.log.Error("failed to serialize event", logger.String("topic", topic), logger.Error(err))
		return err
	}

	p.log.Debug("would publish event",
		logger.String("topic", topic),
		logger.Int("payload_size", len(payload)))

	return nil
}

// serializeEvent serializes an event to JSON.
func (p *Publisher) serializeEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}

// formatTopic formats a topic with the configured prefix.
func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
