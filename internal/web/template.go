package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/flowmouse/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": status.OnOff,
	"join":  func(s []string) string { return strings.Join(s, ", ") },
	"ms": func(ticks, hz uint32) string {
		if hz == 0 {
			return "?"
		}
		return fmt.Sprintf("%.1fms", float64(ticks)*1000/float64(hz))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Flowmouse</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.warn { color: orange; font-weight: bold; }
</style>
</head>
<body>
<h1>Flowmouse</h1>

<h2>State</h2>
<table>
<tr><th>Running</th><td>{{if .Running}}yes{{else}}no{{end}}</td></tr>
<tr><th>Scale</th><td id="scale">{{printf "%.1f" .Scale}}</td></tr>
<tr><th>Output</th><td id="output" class="{{if .Output}}on{{else}}off{{end}}">{{onoff .Output}}</td></tr>
<tr><th>Sensor</th><td>{{.Sensor}}</td></tr>
</table>

<h2>Reports</h2>
<table>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Sinks</th><td>{{join .Config.Sinks}}</td></tr>
<tr><th>Emitted</th><td>{{.Reports.Emitted}}</td></tr>
<tr><th>Skipped</th><td {{if .Reports.Skipped}}class="warn"{{end}}>{{.Reports.Skipped}}</td></tr>
<tr><th>Retries</th><td>{{.Reports.Retries}}</td></tr>
<tr><th>Sink errors</th><td>{{.Reports.SinkErrors}}</td></tr>
<tr><th>Last</th><td>buttons={{.Reports.Buttons}} dx={{.Reports.DX}} dy={{.Reports.DY}}</td></tr>
</table>

<h2>Tasks</h2>
<table>
<tr><th>Task</th><td>prio / dispatches / overruns / late / max latency</td></tr>
{{range .Tasks}}<tr><th>{{.Name}}</th><td {{if .Overruns}}class="warn"{{end}}>{{.Priority}} / {{.Dispatches}} / {{.Overruns}} / {{.Late}} / {{.MaxLatency}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Clock</th><td>{{.Config.ClockHz}} Hz</td></tr>
{{range .Config.Tasks}}<tr><th>Period {{.Name}}</th><td>{{ms .Period $.Config.ClockHz}}</td></tr>
{{end}}<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
