package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sweeney/flowmouse/internal/app"
	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/config"
	"github.com/sweeney/flowmouse/internal/gpio"
	"github.com/sweeney/flowmouse/internal/hid"
	"github.com/sweeney/flowmouse/internal/mqtt"
	"github.com/sweeney/flowmouse/internal/pmw3389"
	"github.com/sweeney/flowmouse/internal/status"
	"github.com/sweeney/flowmouse/internal/tasks"
	"github.com/sweeney/flowmouse/internal/web"
)

// bench is the whole daemon on fakes: a simulated sensor on a fake SPI bus,
// fake GPIO, a fake broker and a fake clock shared by the executor and the
// driver's settle delays.
type bench struct {
	cfg     config.Config
	sys     *app.System
	clk     *clock.FakeClock
	alarm   *clock.FakeAlarm
	bus     *pmw3389.FakeBus
	dev     *pmw3389.Device
	pub     *mqtt.FakePublisher
	sink    *hid.FakeSink
	tracker *status.Tracker
}

func newBench(t *testing.T) *bench {
	t.Helper()
	cfg := config.Default()
	cfg.Report.Source = config.SourceSensor
	cfg.Sinks = []string{config.SinkMQTT}
	cfg.MQTT.Broker = "tcp://broker.invalid:1883"
	cfg.MQTT.ReportEvery = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	b := &bench{
		cfg:   cfg,
		clk:   clock.NewFakeClock(0),
		alarm: clock.NewFakeAlarm(),
		pub:   mqtt.NewFakePublisher(),
		sink:  &hid.FakeSink{},
	}
	b.clk.Frequency = cfg.Clock.Frequency
	b.pub.Connected = true
	b.bus = pmw3389.NewFakeBus(b.clk)
	b.dev = pmw3389.New(b.bus, b.bus, b.clk)
	if err := b.dev.Init(); err != nil {
		t.Fatalf("sensor Init: %v", err)
	}
	if err := b.dev.SetCPI(cfg.Sensor.CPI); err != nil {
		t.Fatalf("SetCPI: %v", err)
	}
	if err := b.dev.EnableBurstMode(); err != nil {
		t.Fatalf("EnableBurstMode: %v", err)
	}

	hw := &app.Hardware{
		Up:         gpio.Constant(false),
		Down:       gpio.Constant(false),
		Enable:     gpio.Constant(false),
		Output:     &gpio.FakeOutput{},
		Source:     hid.NewSensorSource(b.dev, cfg.Report.BurstSamples),
		Sink:       hid.MultiSink{&mqtt.ReportSink{Pub: b.pub, Every: cfg.MQTT.ReportEvery}, b.sink},
		Publisher:  b.pub,
		Connection: b.pub,
		Sensor:     b.dev.State().String(),
	}
	b.tracker = status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), cfg.Status())
	sys, err := app.Build(cfg, hw, b.tracker, b.clk, b.alarm)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b.sys = sys
	return b
}

func (b *bench) start(t *testing.T) {
	t.Helper()
	if err := b.sys.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

// step takes the next alarm fire.
func (b *bench) step(t *testing.T) {
	t.Helper()
	if !b.alarm.Armed {
		t.Fatal("alarm not armed")
	}
	b.clk.Set(b.alarm.Deadline)
	b.sys.Exec.Poll()
}

func (b *bench) heartbeatPeriod(t *testing.T) clock.Tick {
	t.Helper()
	table := b.cfg.Table()
	id, ok := table.Lookup(tasks.NameHeartbeat)
	if !ok {
		t.Fatal("no heartbeat task")
	}
	return table.Tasks[id].Period
}

func sample(buttons byte, dx, dy int8) []byte {
	return []byte{buttons, byte(dx), byte(dy)}
}

func TestIntegrationSensorToMQTT(t *testing.T) {
	b := newBench(t)
	var burst []byte
	for i := 0; i < 4; i++ {
		burst = append(burst, sample(pmw3389.ButtonLeft, 10, -5)...)
	}
	b.bus.Burst = burst

	b.start(t)

	if b.pub.ReportCount() != 1 {
		t.Fatalf("reports published at start: got %d, want 1", b.pub.ReportCount())
	}
	got := b.pub.Reports[0].Report
	want := hid.Report{Buttons: pmw3389.ButtonLeft, DX: 40, DY: -20}
	if got != want {
		t.Errorf("report: got %v, want %v", got, want)
	}
	payload, err := mqtt.FormatPayload(b.pub.Reports[0])
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	var p mqtt.Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if p.Report.DX != 40 || p.Report.DY != -20 || p.Report.Seq != 1 {
		t.Errorf("payload: %+v", p.Report)
	}

	// The burst stream is drained; later reports carry no motion.
	b.step(t)
	if b.pub.ReportCount() != 2 {
		t.Fatalf("reports after one period: got %d, want 2", b.pub.ReportCount())
	}
	if r := b.pub.Reports[1].Report; r.DX != 0 || r.DY != 0 {
		t.Errorf("idle report: got %v", r)
	}
	if len(b.sink.Reports) != b.pub.ReportCount() {
		t.Errorf("fan-out: sink %d, broker %d", len(b.sink.Reports), b.pub.ReportCount())
	}
}

func TestIntegrationBusFailureSkipsAndRecovers(t *testing.T) {
	b := newBench(t)
	b.bus.TxError = errors.New("spi: timeout")

	b.start(t)
	b.step(t) // second report period, still failing

	stats := b.sys.Stats.Value()
	if stats.Skipped != 2 || stats.Emitted != 0 {
		t.Fatalf("while failing: skipped=%d emitted=%d, want 2/0", stats.Skipped, stats.Emitted)
	}
	if want := uint64(2 * b.cfg.Report.Retries); stats.Retries != want {
		t.Errorf("retries: got %d, want %d", stats.Retries, want)
	}
	if b.pub.ReportCount() != 0 {
		t.Errorf("published %d reports from a failing bus", b.pub.ReportCount())
	}
	if b.bus.Selected() {
		t.Error("chip-select left asserted after failures")
	}

	b.bus.TxError = nil
	b.step(t)

	stats = b.sys.Stats.Value()
	if stats.Emitted != 1 {
		t.Errorf("after recovery: emitted=%d, want 1", stats.Emitted)
	}
	for _, s := range b.sys.Exec.Stats() {
		if s.Overruns != 0 {
			t.Errorf("task %s overran", s.Name)
		}
		if s.Name == tasks.NameReport && s.Dispatches != 3 {
			t.Errorf("report dispatches: got %d, want 3", s.Dispatches)
		}
	}
}

func TestIntegrationStatusOverHTTP(t *testing.T) {
	b := newBench(t)
	b.start(t)
	// Run past the second heartbeat.
	for b.alarm.Deadline <= b.heartbeatPeriod(t) {
		b.step(t)
	}

	ts := httptest.NewServer(web.New(":0", b.tracker).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.Document
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := sj.Status
	if !s.Running || s.Sensor != "burst" || !s.MQTT.Connected {
		t.Errorf("status: running=%v sensor=%q mqtt=%v", s.Running, s.Sensor, s.MQTT.Connected)
	}
	if len(s.Tasks) != 4 {
		t.Fatalf("tasks: got %d, want 4", len(s.Tasks))
	}
	if s.Reports.Emitted == 0 {
		t.Error("no reports counted")
	}
	if s.Config == nil || s.Config.Source != config.SourceSensor {
		t.Errorf("config: %+v", s.Config)
	}
}

func TestIntegrationStartupThenShutdownPayloads(t *testing.T) {
	b := newBench(t)
	b.start(t)

	for _, ev := range []struct{ event, reason string }{
		{mqtt.EventStartup, ""},
		{mqtt.EventShutdown, "SIGTERM"},
	} {
		raw := status.FormatStatusEvent(b.tracker.Snapshot(), ev.event, ev.reason)
		payload, err := mqtt.FormatSystemPayload(mqtt.SystemEvent{Event: ev.event, Reason: ev.reason, RawPayload: raw})
		if err != nil {
			t.Fatalf("%s: %v", ev.event, err)
		}
		var sj status.Document
		if err := json.Unmarshal(payload, &sj); err != nil {
			t.Fatalf("%s payload: %v", ev.event, err)
		}
		if sj.Status.Event != ev.event || sj.Status.Reason != ev.reason {
			t.Errorf("%s: got event=%q reason=%q", ev.event, sj.Status.Event, sj.Status.Reason)
		}
		if (sj.Status.Config != nil) != (ev.event == mqtt.EventStartup) {
			t.Errorf("%s: config present=%v", ev.event, sj.Status.Config != nil)
		}
	}
}
