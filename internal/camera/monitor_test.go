package camera

import (
	"context"
	"errors"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestMonitorNilSafety(t *testing.T) {
	var m *Monitor
	m.Stop()
	if m.Running() {
		t.Fatal("nil monitor must not report running")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor should return nil, got %v", err)
	}
}

func TestMonitorStopBeforeStart(t *testing.T) {
	m := NewMonitor(nil, nil)
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Fatal("expected monitor stopped")
	}
}

func TestMonitorStartReturnsConnectError(t *testing.T) {
	m := NewMonitor(nil, nil)
	denied := errors.New("socket: operation not permitted")
	m.dial = func() (*netlink.UEventConn, error) { return nil, denied }

	err := m.Start(context.Background())
	if !errors.Is(err, denied) {
		t.Fatalf("expected connect error from Start, got %v", err)
	}
	if m.Running() {
		t.Fatal("monitor must not report running after a failed connect")
	}
	m.Stop()
}

func TestBuildMatcher(t *testing.T) {
	matcher := buildMatcher()

	add := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "video4linux"}}
	if !matcher.Evaluate(add) {
		t.Error("expected add event to match")
	}
	remove := netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"SUBSYSTEM": "video4linux"}}
	if !matcher.Evaluate(remove) {
		t.Error("expected remove event to match")
	}
	change := netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"SUBSYSTEM": "video4linux"}}
	if matcher.Evaluate(change) {
		t.Error("expected change event to be ignored")
	}
	block := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}}
	if matcher.Evaluate(block) {
		t.Error("expected block event to be ignored")
	}
}

func TestHandleEventDeliversDevicePath(t *testing.T) {
	var got []HotplugEvent
	m := NewMonitor(nil, func(e HotplugEvent) { got = append(got, e) })

	m.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{}})
	m.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVNAME": "video0"}})
	m.handleEvent(netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/video4linux/video2"}})

	if len(got) != 2 {
		t.Fatalf("expected two events, got %v", got)
	}
	if got[0].Device != "/dev/video0" || got[0].Action != "add" {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if got[1].Device != "/dev/video2" || got[1].Action != "remove" {
		t.Fatalf("unexpected second event %+v", got[1])
	}
}
