// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "security/sensor"

// Topics holds the fully qualified topic names under one prefix.
type Topics struct {
	Alert  string // lifecycle alerts, QoS 1
	Stream string // packed display bitmaps, QoS 0
	System string // startup/heartbeat/shutdown snapshots and LWT, QoS 1
	Ack    string // inbound acknowledgments, QoS 1
}

// NewTopics derives the topic set from prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		Alert:  prefix + "/alert",
		Stream: prefix + "/stream",
		System: prefix + "/system",
		Ack:    prefix + "/ack",
	}
}

// Publisher publishes sensor output to MQTT.
type Publisher interface {
	// PublishAlert sends a lifecycle alert.
	// Returns error if publishing fails (should not crash the process).
	PublishAlert(alert Alert) error

	// PublishFrame sends one packed display bitmap.
	PublishFrame(frame []byte) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// AlertEvent names an alert.
type AlertEvent string

const (
	AlertDetected     AlertEvent = "DETECTED"
	AlertStreamEnd    AlertEvent = "STREAM_END"
	AlertAcknowledged AlertEvent = "ACKNOWLEDGED"
	AlertResumed      AlertEvent = "RESUMED"
)

// Alert is a lifecycle notification for subscribers.
type Alert struct {
	Timestamp time.Time
	Event     AlertEvent
	Source    string // acknowledgment origin, ACKNOWLEDGED only
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// AlertPayload represents the MQTT message payload for alerts.
type AlertPayload struct {
	Alert AlertPayloadInner `json:"alert"`
}

// AlertPayloadInner contains the alert details.
type AlertPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Source    string `json:"source,omitempty"`
}

// FormatAlertPayload creates the JSON payload for an alert.
func FormatAlertPayload(alert Alert) ([]byte, error) {
	payload := AlertPayload{
		Alert: AlertPayloadInner{
			Timestamp: alert.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(alert.Event),
			Source:    alert.Source,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
