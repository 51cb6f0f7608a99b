package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNewTopics(t *testing.T) {
	topics := NewTopics("home/garage")
	if topics.Alert != "home/garage/alert" {
		t.Errorf("Alert: got %s", topics.Alert)
	}
	if topics.Stream != "home/garage/stream" {
		t.Errorf("Stream: got %s", topics.Stream)
	}
	if topics.System != "home/garage/system" {
		t.Errorf("System: got %s", topics.System)
	}
	if topics.Ack != "home/garage/ack" {
		t.Errorf("Ack: got %s", topics.Ack)
	}
}

func TestNewTopicsDefaultPrefix(t *testing.T) {
	if got := NewTopics("").Alert; got != "security/sensor/alert" {
		t.Errorf("expected default prefix, got %s", got)
	}
}

func TestFormatAlertPayload(t *testing.T) {
	alert := Alert{
		Timestamp: time.Date(2026, 1, 3, 14, 2, 11, 0, time.UTC),
		Event:     AlertDetected,
	}

	payload, err := FormatAlertPayload(alert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"alert":{"timestamp":"2026-01-03T14:02:11Z","event":"DETECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatAlertPayloadWithSource(t *testing.T) {
	alert := Alert{
		Timestamp: time.Date(2026, 1, 3, 14, 2, 11, 0, time.UTC),
		Event:     AlertAcknowledged,
		Source:    SourceButton,
	}

	payload, err := FormatAlertPayload(alert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"alert":{"timestamp":"2026-01-03T14:02:11Z","event":"ACKNOWLEDGED","source":"button"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatAlertPayloadAllEventTypes(t *testing.T) {
	for _, ev := range []AlertEvent{AlertDetected, AlertStreamEnd, AlertAcknowledged, AlertResumed} {
		t.Run(string(ev), func(t *testing.T) {
			payload, err := FormatAlertPayload(Alert{Timestamp: time.Now(), Event: ev})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var parsed AlertPayload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Alert.Event != string(ev) {
				t.Errorf("event: got %s, want %s", parsed.Alert.Event, ev)
			}
		})
	}
}

func TestFormatAlertPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	alert := Alert{
		Timestamp: time.Date(2026, 1, 3, 9, 0, 0, 0, loc),
		Event:     AlertStreamEnd,
	}

	payload, err := FormatAlertPayload(alert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed AlertPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Alert.Timestamp != "2026-01-03T14:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Alert.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "HEARTBEAT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("HEARTBEAT should not have reason field")
	}
}

func TestFormatSystemPayloadRawPayload(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"OFFLINE","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestParseAck(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"empty", "", SourceMQTT},
		{"plain text", "ack", SourceMQTT},
		{"json without source", `{"user":"kim"}`, SourceMQTT},
		{"json with source", `{"source":"phone"}`, "phone"},
		{"blank source", `{"source":"  "}`, SourceMQTT},
		{"wrong type", `{"source":7}`, SourceMQTT},
		{"json array", `["phone"]`, SourceMQTT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAck([]byte(tt.payload)); got != tt.want {
				t.Errorf("ParseAck(%q): got %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

func TestParseAckTruncatesSource(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	got := ParseAck([]byte(`{"source":"` + string(long) + `"}`))
	if len(got) != maxSourceLen {
		t.Errorf("expected source truncated to %d, got %d", maxSourceLen, len(got))
	}
}

func TestParseAckTruncatesOnRuneBoundary(t *testing.T) {
	// The two-byte rune straddles the length limit.
	src := strings.Repeat("a", maxSourceLen-1) + "é"
	got := ParseAck([]byte(`{"source":"` + src + `"}`))
	if !utf8.ValidString(got) {
		t.Fatalf("truncated source is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", maxSourceLen-1) {
		t.Errorf("got %q, want the ASCII prefix only", got)
	}

	payload, err := FormatAlertPayload(Alert{Timestamp: time.Now(), Event: AlertAcknowledged, Source: got})
	if err != nil {
		t.Fatalf("FormatAlertPayload: %v", err)
	}
	if strings.Contains(string(payload), `\ufffd`) || strings.ContainsRune(string(payload), utf8.RuneError) {
		t.Errorf("payload carries a replacement character: %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.PublishAlert(Alert{Timestamp: time.Now(), Event: AlertDetected}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishFrame([]byte{0xff, 0x00}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Alerts) != 1 || f.Alerts[0].Event != AlertDetected {
		t.Errorf("alerts: got %+v", f.Alerts)
	}
	if len(f.AlertPayloads) != 1 {
		t.Errorf("expected 1 alert payload, got %d", len(f.AlertPayloads))
	}
	if f.FrameCount() != 1 || f.Frames[0][0] != 0xff {
		t.Errorf("frames: got %v", f.Frames)
	}
	if names := f.SystemEventNames(); len(names) != 1 || names[0] != "STARTUP" {
		t.Errorf("system events: got %v", names)
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected Retained=true")
	}
}

func TestFakePublisherCopiesFrames(t *testing.T) {
	f := NewFakePublisher()
	frame := []byte{1, 2, 3}
	f.PublishFrame(frame)
	frame[0] = 9
	if f.Frames[0][0] != 1 {
		t.Error("recorded frame should not alias the caller's slice")
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.SetError(errors.New("broker down"))

	if err := f.PublishAlert(Alert{Event: AlertDetected}); err == nil {
		t.Error("expected alert error")
	}
	if err := f.PublishFrame([]byte{1}); err == nil {
		t.Error("expected frame error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Alerts)+len(f.Frames)+len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishAlert(Alert{Event: AlertDetected})
	f.PublishFrame([]byte{1})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.AlertEvents()) != 0 || f.FrameCount() != 0 || len(f.SystemEventNames()) != 0 {
		t.Error("expected recordings cleared")
	}
	if f.IsClosed() || f.IsConnected() {
		t.Error("expected Closed and Connected cleared")
	}

	// Reusable after reset.
	f.PublishAlert(Alert{Event: AlertResumed})
	if events := f.AlertEvents(); len(events) != 1 || events[0] != AlertResumed {
		t.Errorf("after reset: got %v", events)
	}
}
