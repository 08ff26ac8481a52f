// Package status provides a thread-safe status tracker for the flowmouse daemon.
// The executor goroutine writes it from the heartbeat task; HTTP handlers and
// MQTT lifecycle events read snapshots.
package status

import (
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/sweeney/flowmouse/internal/sched"
)

// NetworkInfo is the host network as reported by pi-helper.
type NetworkInfo struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// TaskConfig is one row of the task table, for display.
type TaskConfig struct {
	Name      string   `json:"name"`
	Priority  uint8    `json:"priority"`
	Period    uint32   `json:"period_ticks"`
	Offset    uint32   `json:"offset_ticks,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// Config contains daemon configuration for display.
type Config struct {
	ClockHz  uint32
	Source   string // report source: synthetic, sensor, register
	Sinks    []string
	Broker   string
	HTTPPort string
	Tasks    []TaskConfig
}

// Reports mirrors the report task's counters.
type Reports struct {
	Counter    uint32
	Emitted    uint64
	Skipped    uint64
	Retries    uint64
	SinkErrors uint64
	Buttons    uint8
	DX         int8
	DY         int8
}

// Sample is what the heartbeat task observes on each run.
type Sample struct {
	Scale   float64
	Output  bool
	Reports Reports
	Tasks   []sched.TaskStats
}

// Snapshot is a point-in-time view of daemon state.
// It is a value and may be used after the lock is released.
type Snapshot struct {
	Running       bool
	Scale         float64
	Output        bool
	Sensor        string
	Reports       Reports
	Tasks         []sched.TaskStats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Overruns sums overruns across all tasks.
func (s Snapshot) Overruns() uint64 {
	var n uint64
	for _, t := range s.Tasks {
		n += t.Overruns
	}
	return n
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Scale:     1.0,
			Sensor:    "none",
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records one heartbeat sample and marks the daemon running.
func (t *Tracker) Update(s Sample) {
	tasks := slices.Clone(s.Tasks)
	t.mu.Lock()
	t.snap.Running = true
	t.snap.Scale = s.Scale
	t.snap.Output = s.Output
	t.snap.Reports = s.Reports
	t.snap.Tasks = tasks
	t.mu.Unlock()
}

// SetSensor sets the sensor driver state ("ready", "burst", "none", ...).
func (t *Tracker) SetSensor(state string) {
	t.mu.Lock()
	t.snap.Sensor = state
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Tasks = slices.Clone(t.snap.Tasks)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
