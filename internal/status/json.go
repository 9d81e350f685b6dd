package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Value         int          `json:"value"`
	Raw           int          `json:"raw"`
	Sleeping      bool         `json:"sleeping"`
	FastADC       bool         `json:"fast_adc"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"activity_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	Changes int `json:"changes"`
	Wakes   int `json:"wakes"`
	Sleeps  int `json:"sleeps"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs            int64   `json:"poll_ms"`
	HeartbeatMs       int64   `json:"heartbeat_ms"`
	SnapMultiplier    float64 `json:"snap_multiplier"`
	ActivityThreshold float64 `json:"activity_threshold"`
	Resolution        int     `json:"resolution"`
	Channel           int     `json:"channel"`
	Broker            string  `json:"broker"`
	HTTPAddr          string  `json:"http_addr"`
	WSBroker          string  `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Value:         snap.Value,
		Raw:           snap.Raw,
		Sleeping:      snap.Sleeping,
		FastADC:       snap.FastADC,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Changes: snap.Counts.Changes,
			Wakes:   snap.Counts.Wakes,
			Sleeps:  snap.Counts.Sleeps,
		},
		Config: ConfigJSON{
			PollMs:            snap.Config.PollMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			SnapMultiplier:    snap.Config.SnapMultiplier,
			ActivityThreshold: snap.Config.ActivityThreshold,
			Resolution:        snap.Config.Resolution,
			Channel:           snap.Config.Channel,
			Broker:            snap.Config.Broker,
			HTTPAddr:          snap.Config.HTTPAddr,
			WSBroker:          snap.Config.WSBroker,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
