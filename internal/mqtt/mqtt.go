// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for conditioned sensor readings.
const Topic = "energy/analog/sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/analog/sensor/system"

// Reading is one conditioned sample to be published.
type Reading struct {
	Timestamp time.Time
	Value     int  // smoothed output
	Raw       int  // unprocessed sample
	Sleeping  bool // filter idle at the time of the reading
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "WAKE", "SLEEP"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure for readings.
type Payload struct {
	Sensor SensorPayload `json:"sensor"`
}

// SensorPayload contains the reading details.
type SensorPayload struct {
	Timestamp string `json:"timestamp"`
	Value     int    `json:"value"`
	Raw       int    `json:"raw"`
	Sleeping  bool   `json:"sleeping"`
}

// FormatPayload creates the JSON payload for a sensor reading.
func FormatPayload(r Reading) ([]byte, error) {
	payload := Payload{
		Sensor: SensorPayload{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
			Value:     r.Value,
			Raw:       r.Raw,
			Sleeping:  r.Sleeping,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
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
