package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/analog-sensor/internal/status"
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
	"percent": func(value, resolution int) int {
		if resolution <= 1 {
			return 0
		}
		return value * 100 / (resolution - 1)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Analog Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.value { font-size: 2em; font-weight: bold; }
.bar { background: #eee; height: 12px; border-radius: 6px; overflow: hidden; margin: 0.5em 0; }
.bar-fill { background: green; height: 100%; }
.sleeping { color: #888; }
.active { color: green; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Analog Sensor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Reading</h2>
<div class="value" id="value">{{.Value}}</div>
<div class="bar"><div class="bar-fill" id="bar" style="width: {{percent .Value .Config.Resolution}}%"></div></div>
<table>
<tr><th>Raw sample</th><td id="raw">{{.Raw}}</td></tr>
<tr><th>Filter</th><td id="filter-state" class="{{if .Sleeping}}sleeping{{else}}active{{end}}">{{if .Sleeping}}SLEEPING{{else}}ACTIVE{{end}}</td></tr>
<tr><th>Fast ADC</th><td>{{if .FastADC}}on{{else}}off{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} — {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Activity Counts</h2>
<table>
<tr><th>Value changes</th><td>{{.Counts.Changes}}</td></tr>
<tr><th>Wakes</th><td>{{.Counts.Wakes}}</td></tr>
<tr><th>Sleeps</th><td>{{.Counts.Sleeps}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Snap multiplier</th><td>{{.Config.SnapMultiplier}}</td></tr>
<tr><th>Activity threshold</th><td>{{.Config.ActivityThreshold}}</td></tr>
<tr><th>Resolution</th><td>{{.Config.Resolution}}</td></tr>
<tr><th>Channel</th><td>{{.Config.Channel}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "energy/analog/sensor/readings";
  var dot = document.getElementById("live-dot");
  var valueEl = document.getElementById("value");
  var rawEl = document.getElementById("raw");
  var barEl = document.getElementById("bar");
  var filterEl = document.getElementById("filter-state");
  var resolution = {{.Config.Resolution}};

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.sensor) {
        valueEl.textContent = msg.sensor.value;
        rawEl.textContent = msg.sensor.raw;
        barEl.style.width = (msg.sensor.value * 100 / (resolution - 1)) + "%";
        filterEl.textContent = msg.sensor.sleeping ? "SLEEPING" : "ACTIVE";
        filterEl.className = msg.sensor.sleeping ? "sleeping" : "active";
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
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
