package main

import (
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/analog-sensor/internal/adc"
	"github.com/sweeney/analog-sensor/internal/mqtt"
	"github.com/sweeney/analog-sensor/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants — not the other way around.
func TestEnvVarNames(t *testing.T) {
	// These are the canonical names from pi-helper.
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	if info.Type != "wifi" {
		t.Errorf("Type: got %q, want wifi", info.Type)
	}
	if info.IP != "192.168.1.100" {
		t.Errorf("IP: got %q", info.IP)
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q", info.Status)
	}
	if info.SSID != "MyNetwork" {
		t.Errorf("SSID: got %q", info.SSID)
	}
}

func TestReadNetworkInfoUnset(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil without NETWORK_STATUS, got %+v", info)
	}
}

func TestResolveWSBroker(t *testing.T) {
	if got := resolveWSBroker("off", "tcp://host:1883"); got != "" {
		t.Errorf("off: got %q, want empty", got)
	}
	if got := resolveWSBroker("ws://elsewhere:9001", "tcp://host:1883"); got != "ws://elsewhere:9001" {
		t.Errorf("explicit: got %q", got)
	}
	if got := resolveWSBroker("=broker", "tcp://192.168.1.200:1883"); got != "ws://192.168.1.200:9001" {
		t.Errorf("derived: got %q", got)
	}
}

func TestNewSmootherFromConfig(t *testing.T) {
	cfg := daemonConfig{
		snapMultiplier:    0.5,
		activityThreshold: 8,
		resolution:        4096,
		disableSleep:      true,
		disableEdgeSnap:   true,
	}
	s := newSmoother(cfg)

	// Sleep disabled: a huge jump must land immediately and the sleeping
	// flag must never engage.
	for i := 0; i < 20; i++ {
		s.Update(2000)
	}
	if s.IsSleeping() {
		t.Error("sleeping despite disable-sleep")
	}
	if s.Value() != 2000 {
		t.Errorf("value: got %d, want 2000 (resolution 4096)", s.Value())
	}
}

// startLoop runs runLoop against fakes, returning channels to drive it and
// a done channel that yields the loop's return value.
func startLoop(reader adc.Reader, publisher *mqtt.FakePublisher, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, cfg daemonConfig) (chan time.Time, chan os.Signal, chan error) {
	tick := make(chan time.Time)
	sig := make(chan os.Signal)
	done := make(chan error, 1)
	smoother := newSmoother(cfg)
	go func() {
		done <- runLoop(reader, smoother, publisher, publisher, tracker, nil, heartbeat, now, tick, sig)
	}()
	return tick, sig, done
}

func TestRunLoopPublishesOnChange(t *testing.T) {
	reader := adc.NewFakeReader([]int{512})
	publisher := mqtt.NewFakePublisher()
	now := func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }

	tick, sig, done := startLoop(reader, publisher, nil, 0, now, daemonConfig{
		snapMultiplier: 0.01,
		resolution:     1024,
		disableSleep:   true,
	})

	// First tick moves 0 -> 512; the repeated sample then holds steady.
	tick <- time.Time{}
	tick <- time.Time{}
	tick <- time.Time{}
	sig <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	if len(publisher.Readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(publisher.Readings))
	}
	if publisher.Readings[0].Value != 512 {
		t.Errorf("reading value: got %d, want 512", publisher.Readings[0].Value)
	}
	if publisher.Readings[0].Raw != 512 {
		t.Errorf("reading raw: got %d, want 512", publisher.Readings[0].Raw)
	}

	if len(publisher.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(publisher.SystemEvents))
	}
	shutdown := publisher.SystemEvents[0]
	if shutdown.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", shutdown.Event)
	}
	if shutdown.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", shutdown.Reason)
	}
	if !shutdown.Retained {
		t.Error("shutdown event should be retained")
	}
}

func TestRunLoopSleepWakeEvents(t *testing.T) {
	// Hold at 500 long enough to sleep, then jump to 600 to wake.
	samples := make([]int, 0, 18)
	for i := 0; i < 15; i++ {
		samples = append(samples, 500)
	}
	samples = append(samples, 600, 600, 600)

	reader := adc.NewFakeReader(samples)
	publisher := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Now(), status.Config{})
	now := time.Now

	tick, sig, done := startLoop(reader, publisher, tracker, 0, now, daemonConfig{
		snapMultiplier:    0.01,
		activityThreshold: 4,
		resolution:        1024,
	})

	for range samples {
		tick <- time.Time{}
	}
	sig <- syscall.SIGINT

	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	var names []string
	for _, e := range publisher.SystemEvents {
		names = append(names, e.Event)
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "SLEEP,") {
		t.Errorf("missing SLEEP event before shutdown: %v", names)
	}
	if !strings.Contains(joined, "WAKE") {
		t.Errorf("missing WAKE event: %v", names)
	}
	if names[len(names)-1] != "SHUTDOWN" {
		t.Errorf("last event: got %q, want SHUTDOWN", names[len(names)-1])
	}

	// 0 -> 500 and 500 -> 600 are the only output moves.
	if len(publisher.Readings) != 2 {
		t.Fatalf("expected 2 readings, got %d: %+v", len(publisher.Readings), publisher.Readings)
	}
	if publisher.Readings[0].Value != 500 || publisher.Readings[1].Value != 600 {
		t.Errorf("reading values: got %d, %d", publisher.Readings[0].Value, publisher.Readings[1].Value)
	}

	snap := tracker.Snapshot()
	if snap.Counts.Sleeps != 1 {
		t.Errorf("sleeps: got %d, want 1", snap.Counts.Sleeps)
	}
	if snap.Counts.Wakes != 1 {
		t.Errorf("wakes: got %d, want 1", snap.Counts.Wakes)
	}
	if snap.Counts.Changes != 2 {
		t.Errorf("changes: got %d, want 2", snap.Counts.Changes)
	}
	if snap.Value != 600 {
		t.Errorf("tracker value: got %d, want 600", snap.Value)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	reader := adc.NewFakeReader([]int{100})
	publisher := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Now(), status.Config{})

	// Clock advances one second per tick. Guarded by a mutex because the
	// loop goroutine reads it while the test advances it.
	var mu sync.Mutex
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	advance := func(d time.Duration) {
		mu.Lock()
		current = current.Add(d)
		mu.Unlock()
	}

	tick, sig, done := startLoop(reader, publisher, tracker, 5*time.Second, now, daemonConfig{
		snapMultiplier:    0.01,
		activityThreshold: 4,
		resolution:        1024,
	})

	for i := 0; i < 6; i++ {
		advance(time.Second)
		tick <- time.Time{}
	}
	sig <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	heartbeats := 0
	for _, e := range publisher.SystemEvents {
		if e.Event == "HEARTBEAT" {
			heartbeats++
			if e.RawPayload == nil {
				t.Error("heartbeat missing status snapshot payload")
			} else if !strings.Contains(string(e.RawPayload), `"event":"HEARTBEAT"`) {
				t.Errorf("heartbeat payload: %s", e.RawPayload)
			}
		}
	}
	if heartbeats != 1 {
		t.Errorf("heartbeats: got %d, want 1", heartbeats)
	}
}

func TestRunLoopReadErrorSkipsTick(t *testing.T) {
	reader := adc.NewFakeReader([]int{512})
	reader.ReadError = os.ErrDeadlineExceeded
	publisher := mqtt.NewFakePublisher()

	tick, sig, done := startLoop(reader, publisher, nil, 0, time.Now, daemonConfig{
		snapMultiplier: 0.01,
		resolution:     1024,
		disableSleep:   true,
	})

	tick <- time.Time{}
	tick <- time.Time{}
	sig <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	if len(publisher.Readings) != 0 {
		t.Errorf("expected no readings on read errors, got %d", len(publisher.Readings))
	}
	// Shutdown is still published.
	if len(publisher.SystemEvents) != 1 || publisher.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("system events: %+v", publisher.SystemEvents)
	}
}

func TestRunLoopPublishErrorTolerated(t *testing.T) {
	reader := adc.NewFakeReader([]int{512})
	publisher := mqtt.NewFakePublisher()
	publisher.PublishError = os.ErrClosed

	tick, sig, done := startLoop(reader, publisher, nil, 0, time.Now, daemonConfig{
		snapMultiplier: 0.01,
		resolution:     1024,
		disableSleep:   true,
	})

	tick <- time.Time{}
	sig <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("runLoop must not fail on publish errors: %v", err)
	}
}
