package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/security-sensor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newMock() *clock.Mock {
	m := clock.NewMock()
	m.Set(start)
	return m
}

func TestNewTracker(t *testing.T) {
	cfg := Config{Threshold: 5, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(newMock(), cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Phase != logic.PhaseScanning {
		t.Errorf("Phase: got %q, want SCANNING", snap.Phase)
	}
	if snap.Config.Threshold != 5 {
		t.Errorf("Config.Threshold: got %d, want 5", snap.Config.Threshold)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if _, ok := tr.Frame(); ok {
		t.Error("expected no frame initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(newMock(), Config{})
	since := start.Add(3 * time.Second)

	tr.Update(logic.Streaming{Since: since}, 0, logic.Counts{Positives: 6, Alerts: 1})

	snap := tr.Snapshot()
	if snap.Phase != logic.PhaseStreaming {
		t.Errorf("Phase: got %q, want STREAMING", snap.Phase)
	}
	if !snap.Since.Equal(since) {
		t.Errorf("Since: got %v, want %v", snap.Since, since)
	}
	if snap.Counts.Positives != 6 || snap.Counts.Alerts != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestUpdateClearsSince(t *testing.T) {
	tr := NewTracker(newMock(), Config{})
	tr.Update(logic.Detected{At: start}, 1, logic.Counts{})
	tr.Update(logic.Scanning{}, 0, logic.Counts{})

	snap := tr.Snapshot()
	if !snap.Since.IsZero() {
		t.Errorf("Since: expected zero for SCANNING, got %v", snap.Since)
	}
	if snap.Consecutive != 0 {
		t.Errorf("Consecutive: got %d, want 0", snap.Consecutive)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(newMock(), Config{})
	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(newMock(), Config{})
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "10.0.0.5", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected Network to be set")
	}
	if snap.Network.IP != "10.0.0.5" {
		t.Errorf("Network.IP: got %q", snap.Network.IP)
	}
}

func TestSetFrameCopies(t *testing.T) {
	tr := NewTracker(newMock(), Config{})
	data := []byte{0xf0, 0x0f}
	at := start.Add(time.Minute)
	tr.SetFrame(data, at)
	data[0] = 0

	f, ok := tr.Frame()
	if !ok {
		t.Fatal("expected a frame")
	}
	if f.Data[0] != 0xf0 {
		t.Error("stored frame should not alias the caller's slice")
	}
	if !f.At.Equal(at) || !tr.Snapshot().LastFrameAt.Equal(at) {
		t.Errorf("frame time: got %v", f.At)
	}
}

func TestSnapshotUptime(t *testing.T) {
	m := newMock()
	tr := NewTracker(m, Config{})
	m.Add(90 * time.Second)

	if got := tr.Snapshot().Uptime(); got != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(newMock(), Config{})
	tr.Update(logic.Detected{At: start}, 2, logic.Counts{Positives: 2})

	snap := tr.Snapshot()
	tr.Update(logic.Scanning{}, 0, logic.Counts{Positives: 9})

	if snap.Phase != logic.PhaseDetected || snap.Counts.Positives != 2 {
		t.Error("snapshot changed after later update")
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Phase:         logic.PhaseCoolingDown,
		Since:         start.Add(14 * time.Minute),
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Counts:        logic.Counts{Positives: 12, Alerts: 2, StreamsEnded: 1, Acknowledgments: 1},
		Config: Config{
			FrameIntervalMs: 33,
			StreamMs:        30000,
			CooldownMs:      90000,
			Threshold:       5,
			DisplayWidth:    128,
			DisplayHeight:   64,
			Broker:          "tcp://localhost:1883",
		},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Phase != "COOLING_DOWN" {
		t.Errorf("Phase: got %q, want COOLING_DOWN", parsed.Status.Phase)
	}
	if parsed.Status.PhaseSince != "2026-01-01T00:14:00Z" {
		t.Errorf("PhaseSince: got %q", parsed.Status.PhaseSince)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.Alerts != 2 || parsed.Status.Counts.Acknowledgments != 1 {
		t.Errorf("Counts: got %+v", parsed.Status.Counts)
	}
	if parsed.Status.Config.Display != "128x64" {
		t.Errorf("Config.Display: got %q, want 128x64", parsed.Status.Config.Display)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" || parsed.Status.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
}

func TestFormatJSONUnknownPhase(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Phase != "UNKNOWN" {
		t.Errorf("Phase: got %q, want UNKNOWN", parsed.Status.Phase)
	}
}

func TestFormatJSONOmitsZeroTimes(t *testing.T) {
	snap := Snapshot{Phase: logic.PhaseScanning, StartTime: start, Now: start}

	var raw map[string]interface{}
	json.Unmarshal(FormatJSON(snap), &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["phase_since"]; exists {
		t.Error("phase_since should be omitted for SCANNING")
	}
	if _, exists := status["last_frame"]; exists {
		t.Error("last_frame should be omitted before the first frame")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Phase:     logic.PhaseScanning,
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(30 * time.Minute)}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(FormatStatusEvent(snap, "STARTUP", ""), &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(time.Minute),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(clock.New(), Config{})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Update(logic.Detected{At: time.Now()}, j, logic.Counts{Positives: j})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.SetFrame([]byte{byte(j)}, time.Now())
				tr.SetMQTTConnected(j%2 == 0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = FormatJSON(tr.Snapshot())
				tr.Frame()
			}
		}()
	}
	wg.Wait()
}
