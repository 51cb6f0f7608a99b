package status

import (
	"encoding/json"
	"fmt"
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
	Phase         string       `json:"phase"`
	PhaseSince    string       `json:"phase_since,omitempty"`
	Consecutive   int          `json:"consecutive"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	LastFrame     string       `json:"last_frame,omitempty"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of lifecycle counts.
type CountsJSON struct {
	Positives       int `json:"positives"`
	Alerts          int `json:"alerts"`
	StreamsEnded    int `json:"streams_ended"`
	Acknowledgments int `json:"acknowledgments"`
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
	FrameIntervalMs int64   `json:"frame_interval_ms"`
	StreamMs        int64   `json:"stream_ms"`
	CooldownMs      int64   `json:"cooldown_ms"`
	HeartbeatMs     int64   `json:"heartbeat_ms"`
	Threshold       int     `json:"threshold"`
	Score           float64 `json:"score"`
	Classes         string  `json:"classes"`
	ModelKind       string  `json:"model_kind"`
	Display         string  `json:"display"`
	Broker          string  `json:"broker"`
	TopicPrefix     string  `json:"topic_prefix"`
	HTTPAddr        string  `json:"http_addr"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	return StatusInner{
		Phase:         phase,
		PhaseSince:    formatTime(snap.Since),
		Consecutive:   snap.Consecutive,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		LastFrame:     formatTime(snap.LastFrameAt),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Positives:       snap.Counts.Positives,
			Alerts:          snap.Counts.Alerts,
			StreamsEnded:    snap.Counts.StreamsEnded,
			Acknowledgments: snap.Counts.Acknowledgments,
		},
		Config: ConfigJSON{
			FrameIntervalMs: snap.Config.FrameIntervalMs,
			StreamMs:        snap.Config.StreamMs,
			CooldownMs:      snap.Config.CooldownMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Threshold:       snap.Config.Threshold,
			Score:           snap.Config.Score,
			Classes:         snap.Config.Classes,
			ModelKind:       snap.Config.ModelKind,
			Display:         displaySize(snap.Config),
			Broker:          snap.Config.Broker,
			TopicPrefix:     snap.Config.TopicPrefix,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
}

func displaySize(cfg Config) string {
	if cfg.DisplayWidth == 0 || cfg.DisplayHeight == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", cfg.DisplayWidth, cfg.DisplayHeight)
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
