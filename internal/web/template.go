package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/security-sensor/internal/status"
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
	"phaseOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"utc": func(t time.Time) string {
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Security Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.SCANNING { color: #888; }
.DETECTED { color: orange; font-weight: bold; }
.STREAMING, .STREAM_ENDED { color: red; font-weight: bold; }
.COOLING_DOWN { color: steelblue; }
.UNKNOWN { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
img.frame { image-rendering: pixelated; border: 1px solid #ddd; }
</style>
</head>
<body>
<h1>Security Sensor</h1>

<h2>Detection</h2>
<table>
<tr><th>Phase</th><td id="phase" class="{{phaseOrUnknown (printf "%s" .Phase)}}">{{phaseOrUnknown (printf "%s" .Phase)}}</td></tr>
{{if not .Since.IsZero}}<tr><th>Since</th><td>{{utc .Since}}</td></tr>{{end}}
<tr><th>Debounce</th><td>{{.Consecutive}} / {{.Config.Threshold}}</td></tr>
</table>
{{if not .LastFrameAt.IsZero}}
<p><img class="frame" src="/frame.png" alt="last published frame" width="{{.FrameWidth}}"><br>
last frame {{utc .LastFrameAt}}</p>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topics</th><td>{{.Config.TopicPrefix}}/#</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Positives</th><td>{{.Counts.Positives}}</td></tr>
<tr><th>Alerts</th><td>{{.Counts.Alerts}}</td></tr>
<tr><th>Streams ended</th><td>{{.Counts.StreamsEnded}}</td></tr>
<tr><th>Acknowledgments</th><td>{{.Counts.Acknowledgments}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>Model</th><td>{{.Config.ModelKind}} classes {{.Config.Classes}} score &gt; {{.Config.Score}}</td></tr>
<tr><th>Frame interval</th><td>{{.Config.FrameIntervalMs}}ms</td></tr>
<tr><th>Stream window</th><td>{{.Config.StreamMs}}ms</td></tr>
<tr><th>Cooldown</th><td>{{.Config.CooldownMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		FrameWidth int
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		FrameWidth: snap.Config.DisplayWidth * defaultScale,
	}
	indexTmpl.Execute(w, data)
}
