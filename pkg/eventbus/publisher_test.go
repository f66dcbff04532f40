package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestNewPublisher(t *testing.T) {
	config := Config{
		Enabled:     true,
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "hotsync/test",
		ClientID:    "test-client",
		QoS:         1,
		Retained:    false,
	}

	pub := New(config, nil)
	if pub == nil {
		t.Fatal("Expected non-nil publisher")
	}
	if pub.config.Broker != config.Broker {
		t.Errorf("Expected broker %s, got %s", config.Broker, pub.config.Broker)
	}
}

func TestPublisher_StartWhenDisabled(t *testing.T) {
	pub := New(Config{Enabled: false}, nil)
	if err := pub.Start(context.Background()); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Stop(t *testing.T) {
	pub := New(Config{Enabled: false}, nil)
	pub.Stop() // Should not panic when stopping without starting
}

func TestPublisher_PublishSessionStart(t *testing.T) {
	pub := New(Config{Enabled: false, TopicPrefix: "hotsync/test"}, nil)

	event := SessionStartEvent{DeviceUserID: 1234567, Transport: "serial", Timestamp: time.Now()}
	if err := pub.PublishSessionStart(event); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishDatabaseSynced(t *testing.T) {
	pub := New(Config{Enabled: false, TopicPrefix: "hotsync/test"}, nil)

	event := DatabaseSyncedEvent{
		DeviceUserID: 1234567,
		Database:     "MemoDB",
		Direction:    "download",
		RecordCount:  10,
		Timestamp:    time.Now(),
	}
	if err := pub.PublishDatabaseSynced(event); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishSessionEnd(t *testing.T) {
	pub := New(Config{Enabled: false, TopicPrefix: "hotsync/test"}, nil)

	event := SessionEndEvent{
		DeviceUserID: 1234567,
		SyncType:     "FAST_SYNC",
		Databases:    3,
		Timestamp:    time.Now(),
	}
	if err := pub.PublishSessionEnd(event); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
}

func TestTopicFormat(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		suffix   string
		expected string
	}{
		{name: "simple topic", prefix: "hotsync/nexus", suffix: "session/start", expected: "hotsync/nexus/session/start"},
		{name: "trailing slash in prefix", prefix: "hotsync/nexus/", suffix: "session/start", expected: "hotsync/nexus/session/start"},
		{name: "empty prefix", prefix: "", suffix: "session/start", expected: "session/start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := New(Config{TopicPrefix: tt.prefix}, nil)
			topic := pub.formatTopic(tt.suffix)
			if topic != tt.expected {
				t.Errorf("Expected topic %s, got %s", tt.expected, topic)
			}
		})
	}
}

func TestEventSerialization(t *testing.T) {
	tests := []struct {
		name  string
		event interface{}
	}{
		{name: "SessionStartEvent", event: SessionStartEvent{DeviceUserID: 1, Transport: "net", Timestamp: time.Now()}},
		{name: "DatabaseSyncedEvent", event: DatabaseSyncedEvent{DeviceUserID: 1, Database: "ToDoDB", Direction: "two-way", Timestamp: time.Now()}},
		{name: "SessionEndEvent", event: SessionEndEvent{DeviceUserID: 1, SyncType: "SLOW_SYNC", Timestamp: time.Now()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := New(Config{Enabled: false}, nil)
			if _, err := pub.serializeEvent(tt.event); err != nil {
				t.Errorf("Failed to serialize %s: %v", tt.name, err)
			}
		})
	}
}
