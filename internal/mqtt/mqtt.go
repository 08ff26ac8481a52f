// Package mqtt publishes HID reports and daemon lifecycle events over MQTT,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/flowmouse/internal/hid"
)

// TopicReport is the MQTT topic for mirrored HID reports.
const TopicReport = "input/flowmouse/hid/report"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "input/flowmouse/system"

// Lifecycle event names published on TopicSystem.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventOverrun     = "OVERRUN"
	EventOffline     = "OFFLINE"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes events to MQTT. Publish calls never wait on the
// broker; they are made from the executor goroutine.
type Publisher interface {
	// PublishReport sends a HID report to the broker (QoS 0).
	// Returns error if publishing fails (should not crash the process).
	PublishReport(event ReportEvent) error

	// PublishSystem sends a system lifecycle event to the broker (QoS 1).
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ReportEvent is one HID report mirrored to the broker.
type ReportEvent struct {
	Timestamp time.Time
	Seq       uint64
	Report    hid.Report
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "OVERRUN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a report.
type Payload struct {
	Report ReportPayload `json:"report"`
}

// ReportPayload contains the report details.
type ReportPayload struct {
	Timestamp string `json:"timestamp"`
	Seq       uint64 `json:"seq"`
	Buttons   uint8  `json:"buttons"`
	DX        int8   `json:"dx"`
	DY        int8   `json:"dy"`
}

// FormatPayload creates the JSON payload for a report event.
func FormatPayload(event ReportEvent) ([]byte, error) {
	payload := Payload{
		Report: ReportPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Seq:       event.Seq,
			Buttons:   event.Report.Buttons,
			DX:        event.Report.DX,
			DY:        event.Report.DY,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
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

// WillPayload is the last-will message the broker publishes if the daemon
// disappears without a SHUTDOWN.
func WillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: EventOffline, Reason: "MQTT_DISCONNECT"}})
	return data
}
