// Package config loads the daemon configuration: the task table and the
// peripheral, sink and network settings. Built-in defaults are embedded and a
// YAML file, if given, is decoded over them. Unknown keys are rejected.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/pmw3389"
	"github.com/sweeney/flowmouse/internal/sched"
	"github.com/sweeney/flowmouse/internal/status"
	"github.com/sweeney/flowmouse/internal/tasks"
)

//go:embed defaults.yaml
var rawDefaults []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Report sources.
const (
	SourceSynthetic = "synthetic"
	SourceSensor    = "sensor"
	SourceRegister  = "register"
)

// GPIO backends.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendKeyboard = "keyboard"
	BackendFake     = "fake"
)

// Sink names.
const (
	SinkLog    = "log"
	SinkSerial = "serial"
	SinkMQTT   = "mqtt"
)

// Config is the whole daemon configuration.
type Config struct {
	Clock  Clock    `yaml:"clock"`
	Scale  Scale    `yaml:"scale"`
	Tasks  []Task   `yaml:"tasks"`
	Report Report   `yaml:"report"`
	GPIO   GPIO     `yaml:"gpio"`
	Sensor Sensor   `yaml:"sensor"`
	Sinks  []string `yaml:"sinks"`
	Serial Serial   `yaml:"serial"`
	MQTT   MQTT     `yaml:"mqtt"`
	HTTP   HTTP     `yaml:"http"`
}

type Clock struct {
	Frequency uint32 `yaml:"frequency"`
}

type Scale struct {
	Initial float64 `yaml:"initial"`
	Step    float64 `yaml:"step"`
}

// Task is one row of the task table.
type Task struct {
	Name      string   `yaml:"name"`
	Priority  uint8    `yaml:"priority"`
	Period    uint32   `yaml:"period"`
	Offset    uint32   `yaml:"offset"`
	Resources []string `yaml:"resources"`
}

type Report struct {
	Source        string `yaml:"source"`
	CounterPeriod uint32 `yaml:"counter_period"`
	Amplitude     int8   `yaml:"amplitude"`
	Retries       int    `yaml:"retries"`
	BurstSamples  int    `yaml:"burst_samples"`
}

type GPIO struct {
	Backend string `yaml:"backend"`
	Chip    string `yaml:"chip"`
	Up      int    `yaml:"up"`
	Down    int    `yaml:"down"`
	Button  int    `yaml:"button"`
	LED     int    `yaml:"led"`
	CS      int    `yaml:"cs"`
}

type Sensor struct {
	Device  string `yaml:"device"`
	SpeedHz uint32 `yaml:"speed_hz"`
	Mode    uint8  `yaml:"mode"`
	CPI     uint16 `yaml:"cpi"`
}

type Serial struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	Queue  int    `yaml:"queue"`
}

type MQTT struct {
	Broker         string `yaml:"broker"`
	ClientID       string `yaml:"client_id"`
	ReportEvery    uint64 `yaml:"report_every"`
	HeartbeatEvery uint64 `yaml:"heartbeat_every"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the embedded defaults.
func Default() Config {
	var c Config
	if err := decode(bytes.NewReader(rawDefaults), &c); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return c
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, c.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Parse(f, c)
}

// Parse decodes r over base and validates the result.
func Parse(r io.Reader, base Config) (Config, error) {
	c := base
	if err := decode(r, &c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func decode(r io.Reader, c *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(c)
}

// Validate checks the table and every enumerated setting.
func (c Config) Validate() error {
	if c.Clock.Frequency == 0 {
		return fmt.Errorf("%w: clock frequency must be > 0", ErrInvalid)
	}
	if err := c.Table().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for _, name := range []string{tasks.NameScaleAdjust, tasks.NameToggle, tasks.NameReport, tasks.NameHeartbeat} {
		if _, ok := c.Table().Lookup(name); !ok {
			return fmt.Errorf("%w: task table has no %q", ErrInvalid, name)
		}
	}
	if err := c.Table().CheckAccess(tasks.Requires); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Scale.Initial < 1.0 {
		return fmt.Errorf("%w: initial scale %v below 1.0", ErrInvalid, c.Scale.Initial)
	}
	if c.Scale.Step <= 0 {
		return fmt.Errorf("%w: scale step must be > 0", ErrInvalid)
	}
	switch c.Report.Source {
	case SourceSynthetic, SourceSensor, SourceRegister:
	default:
		return fmt.Errorf("%w: report source %q", ErrInvalid, c.Report.Source)
	}
	if c.Report.CounterPeriod == 0 {
		return fmt.Errorf("%w: report counter_period must be > 0", ErrInvalid)
	}
	if c.Report.Retries < 0 {
		return fmt.Errorf("%w: report retries must be >= 0", ErrInvalid)
	}
	switch c.GPIO.Backend {
	case BackendGPIOCDev, BackendKeyboard, BackendFake:
	default:
		return fmt.Errorf("%w: gpio backend %q", ErrInvalid, c.GPIO.Backend)
	}
	if c.Report.Source != SourceSynthetic {
		if c.Sensor.Mode > 3 {
			return fmt.Errorf("%w: spi mode %d", ErrInvalid, c.Sensor.Mode)
		}
		if c.Sensor.CPI != 0 && (c.Sensor.CPI < pmw3389.MinCPI || c.Sensor.CPI > pmw3389.MaxCPI || c.Sensor.CPI%pmw3389.CPIStep != 0) {
			return fmt.Errorf("%w: cpi %d", ErrInvalid, c.Sensor.CPI)
		}
	}
	for _, s := range c.Sinks {
		switch s {
		case SinkLog, SinkSerial, SinkMQTT:
		default:
			return fmt.Errorf("%w: sink %q", ErrInvalid, s)
		}
	}
	if c.HasSink(SinkMQTT) && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt sink needs a broker", ErrInvalid)
	}
	return nil
}

// HasSink reports whether name is among the configured sinks.
func (c Config) HasSink(name string) bool {
	return slices.Contains(c.Sinks, name)
}

// Table converts the task rows into a scheduler table.
func (c Config) Table() sched.Table {
	t := sched.Table{Tasks: make([]sched.TaskSpec, len(c.Tasks))}
	for i, row := range c.Tasks {
		t.Tasks[i] = sched.TaskSpec{
			Name:      row.Name,
			Priority:  sched.Priority(row.Priority),
			Period:    clock.Tick(row.Period),
			Offset:    clock.Tick(row.Offset),
			Resources: slices.Clone(row.Resources),
		}
	}
	return t
}

// Status returns the configuration as shown on the status page.
func (c Config) Status() status.Config {
	s := status.Config{
		ClockHz:  c.Clock.Frequency,
		Source:   c.Report.Source,
		Sinks:    slices.Clone(c.Sinks),
		Broker:   c.MQTT.Broker,
		HTTPPort: c.HTTP.Addr,
	}
	for _, row := range c.Tasks {
		s.Tasks = append(s.Tasks, status.TaskConfig{
			Name:      row.Name,
			Priority:  row.Priority,
			Period:    row.Period,
			Offset:    row.Offset,
			Resources: slices.Clone(row.Resources),
		})
	}
	return s
}
