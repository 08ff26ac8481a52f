package status

import (
	"encoding/json"
	"strings"
	"time"
)

// Document is the JSON envelope shared by /index.json and MQTT system events.
type Document struct {
	Status Body `json:"status"`
}

// Body is a rendered Snapshot. Event, Reason and Task are set only on MQTT
// events; Config only on /index.json and STARTUP.
type Body struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Task          string       `json:"task,omitempty"`
	Running       bool         `json:"running"`
	Scale         float64      `json:"scale"`
	Output        string       `json:"output"`
	Sensor        string       `json:"sensor"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          BrokerLink   `json:"mqtt"`
	Reports       ReportCounts `json:"reports"`
	Tasks         []TaskRow    `json:"tasks"`
	Network       *NetworkInfo `json:"network,omitempty"`
	Config        *ConfigView  `json:"config,omitempty"`
}

type BrokerLink struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

type ReportCounts struct {
	Counter    uint32 `json:"counter"`
	Emitted    uint64 `json:"emitted"`
	Skipped    uint64 `json:"skipped"`
	Retries    uint64 `json:"retries"`
	SinkErrors uint64 `json:"sink_errors"`
	Last       [3]int `json:"last"` // buttons, dx, dy
}

// TaskRow is one task's executor counters.
type TaskRow struct {
	Name       string `json:"name"`
	Priority   uint8  `json:"priority"`
	State      string `json:"state"`
	Dispatches uint64 `json:"dispatches"`
	Overruns   uint64 `json:"overruns"`
	Late       uint64 `json:"late"`
	Errors     uint64 `json:"errors"`
	MaxLatency int32  `json:"max_latency_ticks"`
}

type ConfigView struct {
	ClockHz  uint32       `json:"clock_hz"`
	Source   string       `json:"source"`
	Sinks    string       `json:"sinks"`
	Broker   string       `json:"broker"`
	HTTPPort string       `json:"http_port"`
	Tasks    []TaskConfig `json:"tasks"`
}

// OnOff renders a digital level.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func render(snap Snapshot, withConfig bool) Body {
	b := Body{
		Running:       snap.Running,
		Scale:         snap.Scale,
		Output:        OnOff(snap.Output),
		Sensor:        snap.Sensor,
		UptimeSeconds: int64(snap.Uptime() / time.Second),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          BrokerLink{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Tasks:         make([]TaskRow, len(snap.Tasks)),
		Network:       snap.Network,
	}

	r := snap.Reports
	b.Reports = ReportCounts{
		Counter:    r.Counter,
		Emitted:    r.Emitted,
		Skipped:    r.Skipped,
		Retries:    r.Retries,
		SinkErrors: r.SinkErrors,
		Last:       [3]int{int(r.Buttons), int(r.DX), int(r.DY)},
	}

	for i, t := range snap.Tasks {
		b.Tasks[i] = TaskRow{
			Name:       t.Name,
			Priority:   uint8(t.Priority),
			State:      t.State.String(),
			Dispatches: t.Dispatches,
			Overruns:   t.Overruns,
			Late:       t.Late,
			Errors:     t.Errors,
			MaxLatency: t.MaxLatency,
		}
	}

	if withConfig {
		c := snap.Config
		b.Config = &ConfigView{
			ClockHz:  c.ClockHz,
			Source:   c.Source,
			Sinks:    strings.Join(c.Sinks, ","),
			Broker:   c.Broker,
			HTTPPort: c.HTTPPort,
			Tasks:    c.Tasks,
		}
	}
	return b
}

// FormatJSON renders snap for the web endpoint, indented and with config.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Document{Status: render(snap, true)}, "", "  ")
	return data
}

// FormatStatusEvent renders snap as an MQTT system event. Only STARTUP
// carries the configuration.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	b := render(snap, event == "STARTUP")
	b.Event, b.Reason = event, reason
	data, _ := json.Marshal(Document{Status: b})
	return data
}

// FormatOverrunEvent renders an OVERRUN event naming the task. Network and
// config are left out to keep the payload small.
func FormatOverrunEvent(snap Snapshot, task string) []byte {
	b := render(snap, false)
	b.Event, b.Task, b.Network = "OVERRUN", task, nil
	data, _ := json.Marshal(Document{Status: b})
	return data
}
