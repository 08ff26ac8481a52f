package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/flowmouse/internal/sched"
	"github.com/sweeney/flowmouse/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		ClockHz:  16_000_000,
		Source:   "synthetic",
		Sinks:    []string{"log", "mqtt"},
		Broker:   "tcp://192.168.1.200:1883",
		HTTPPort: ":80",
		Tasks: []status.TaskConfig{
			{Name: "hid_report", Priority: 3, Period: 160_000, Resources: []string{"report_stats"}},
		},
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.Document {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var sj status.Document
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.Sample{
		Scale:   1.5,
		Output:  true,
		Reports: status.Reports{Counter: 42, Emitted: 40, Skipped: 2, DX: 10, DY: -10},
		Tasks:   []sched.TaskStats{{Name: "hid_report", Priority: 3, Dispatches: 42}},
	})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.Document
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	s := sj.Status
	if !s.Running {
		t.Error("expected Running=true")
	}
	if s.Scale != 1.5 {
		t.Errorf("Scale: got %v, want 1.5", s.Scale)
	}
	if s.Output != "ON" {
		t.Errorf("Output: got %q, want ON", s.Output)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT: %+v", s.MQTT)
	}
	if s.Reports.Emitted != 40 || s.Reports.Skipped != 2 {
		t.Errorf("Reports: %+v", s.Reports)
	}
	if s.Reports.Last != [3]int{0, 10, -10} {
		t.Errorf("Reports.Last: got %v", s.Reports.Last)
	}
	if len(s.Tasks) != 1 || s.Tasks[0].Dispatches != 42 {
		t.Errorf("Tasks: %+v", s.Tasks)
	}
	if s.Config == nil || s.Config.Sinks != "log,mqtt" || s.Config.ClockHz != 16_000_000 {
		t.Errorf("Config: %+v", s.Config)
	}
	if s.Event != "" {
		t.Errorf("web status should carry no event, got %q", s.Event)
	}
}

func TestJSONBeforeFirstHeartbeat(t *testing.T) {
	ts, _ := newTestServer(t)

	s := getJSON(t, ts.URL+"/index.json").Status
	if s.Running {
		t.Error("expected Running=false before first heartbeat")
	}
	if s.Scale != 1.0 {
		t.Errorf("Scale: got %v, want 1.0", s.Scale)
	}
	if s.Sensor != "none" {
		t.Errorf("Sensor: got %q, want none", s.Sensor)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	s := getJSON(t, ts.URL+"/index.json").Status
	if s.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if s.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", s.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.Sample{Scale: 2.0, Tasks: []sched.TaskStats{{Name: "toggle", Overruns: 3}}})
	tr.SetSensor("burst")

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"<title>Flowmouse</title>", ">2.0<", ">burst<", "toggle", "10.0ms"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	if getJSON(t, ts.URL+"/index.json").Status.Output != "OFF" {
		t.Error("expected Output=OFF initially")
	}

	tr.Update(status.Sample{Scale: 1.1, Output: true})
	tr.SetMQTTConnected(true)

	s := getJSON(t, ts.URL+"/index.json").Status
	if s.Output != "ON" {
		t.Errorf("Output: got %q, want ON", s.Output)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestRejectsNonGET(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}
