package indicator

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/ledsched/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRoot lays out a device tree model and LED class entries under a temp dir.
func fakeRoot(t *testing.T, model string, entries ...string) string {
	t.Helper()
	root := t.TempDir()
	if model != "" {
		path := filepath.Join(root, deviceTreeModel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(model+"\x00"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range entries {
		if err := os.MkdirAll(filepath.Join(root, sysfsLEDPath, e), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readAttr(t *testing.T, root, entry, attr string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, sysfsLEDPath, entry, attr))
	if err != nil {
		t.Fatalf("read %s/%s: %v", entry, attr, err)
	}
	return string(data)
}

func TestDetectBoard(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		wantNoop  bool
		available []string
	}{
		{name: "raspberry pi", model: "Raspberry Pi 4 Model B Rev 1.4", available: []string{"power", "status"}},
		{name: "nanopc", model: "FriendlyElec NanoPC-T6", available: []string{"status", "user"}},
		{name: "orange pi", model: "Orange Pi 5", available: []string{"blue", "status"}},
		{name: "unknown board", model: "Generic x86", wantNoop: true, available: []string{}},
		{name: "no device tree", wantNoop: true, available: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := detect(fakeRoot(t, tt.model), discardLogger())
			_, isNoop := ctrl.(*noop)
			if isNoop != tt.wantNoop {
				t.Fatalf("detect() = %T, want noop=%v", ctrl, tt.wantNoop)
			}
			if got := ctrl.Available(); !slices.Equal(got, tt.available) {
				t.Errorf("Available() = %v, want %v", got, tt.available)
			}
		})
	}
}

func TestSysfsSetModes(t *testing.T) {
	root := fakeRoot(t, "Raspberry Pi 4", "ACT")
	ctrl := detect(root, nil)

	tests := []struct {
		mode  Mode
		attrs map[string]string
	}{
		{ModeSolid, map[string]string{"trigger": "none", "brightness": "1"}},
		{ModeOff, map[string]string{"trigger": "none", "brightness": "0"}},
		{ModeBlink, map[string]string{"trigger": "timer", "delay_on": "250", "delay_off": "250"}},
		{ModeHeartbeat, map[string]string{"trigger": "heartbeat"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if err := ctrl.Set(StatusLED, tt.mode); err != nil {
				t.Fatalf("Set(%s) error: %v", tt.mode, err)
			}
			for attr, want := range tt.attrs {
				if got := readAttr(t, root, "ACT", attr); got != want {
					t.Errorf("%s = %q, want %q", attr, got, want)
				}
			}
		})
	}
}

func TestSysfsSetErrors(t *testing.T) {
	root := fakeRoot(t, "Raspberry Pi 4", "ACT")
	ctrl := detect(root, nil)

	if err := ctrl.Set("nonexistent", ModeSolid); err == nil {
		t.Error("Set() with unknown LED should fail")
	}
	if err := ctrl.Set("power", ModeSolid); err == nil {
		t.Error("Set() with missing sysfs entry should fail")
	}
	if err := ctrl.Set(StatusLED, Mode("strobe")); err == nil {
		t.Error("Set() with unknown mode should fail")
	}
}

func TestNoopController(t *testing.T) {
	ctrl := newNoop(discardLogger())
	if err := ctrl.Set(StatusLED, ModeSolid); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if got := ctrl.Available(); got == nil || len(got) != 0 {
		t.Errorf("Available() = %v, want empty slice", got)
	}
}

type recordingController struct {
	mu    sync.Mutex
	modes []Mode
}

func (r *recordingController) Set(_ string, mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
	return nil
}

func (r *recordingController) Available() []string { return []string{StatusLED} }

func (r *recordingController) last() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.modes) == 0 {
		return ""
	}
	return r.modes[len(r.modes)-1]
}

func waitMode(t *testing.T, mgr *Manager, want Mode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mgr.Mode() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status LED mode = %q, want %q", mgr.Mode(), want)
}

func TestManagerFollowsSchedulerState(t *testing.T) {
	ctrl := &recordingController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, discardLogger())
	mgr.Start()

	steps := []struct {
		state string
		want  Mode
	}{
		{"waiting", ModeBlink},
		{"running", ModeSolid},
		{"paused", ModeBlink},
		{"stopped", ModeOff},
	}
	for _, s := range steps {
		bus.Publish(events.SchedulerStateChangedEvent{State: s.state})
		waitMode(t, mgr, s.want)
	}

	mgr.Stop()
	if got := ctrl.last(); got != ModeOff {
		t.Errorf("after Stop last mode = %q, want off", got)
	}
}

func TestManagerHardwareErrorHeartbeat(t *testing.T) {
	ctrl := &recordingController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, discardLogger())
	mgr.Start()
	defer mgr.Stop()

	bus.Publish(events.SchedulerStateChangedEvent{State: "running"})
	waitMode(t, mgr, ModeSolid)

	bus.Publish(events.HardwareErrorEvent{Kind: "TIMEOUT"})
	waitMode(t, mgr, ModeHeartbeat)

	bus.Publish(events.LEDStateChangedEvent{Count: 1})
	waitMode(t, mgr, ModeSolid)
}

func TestManagerController(t *testing.T) {
	ctrl := &recordingController{}
	mgr := NewManager(ctrl, events.New(), nil)
	if mgr.Controller() != ctrl {
		t.Error("Controller() did not return the original controller")
	}
}
