package camera

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"
)

type fakeStream struct{ closed atomic.Int32 }

func (f *fakeStream) Close() error {
	f.closed.Add(1)
	return nil
}

type fakeOpener struct {
	stream *fakeStream
	err    error
}

func (f *fakeOpener) Open(context.Context, Device, func(string), func(error)) (Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func TestDeviceLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireDevice(dir, "/dev/video0")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := AcquireDevice(dir, "/dev/video0"); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("expected ErrDeviceBusy, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("double release: %v", err)
	}
	again, err := AcquireDevice(dir, "/dev/video0")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestStartSessionReleasesLockWhenOpenFails(t *testing.T) {
	dir := t.TempDir()
	device := Device{Path: "/dev/video0"}
	opener := &fakeOpener{err: errors.New("VIDIOC_STREAMON: device busy")}

	if _, err := StartSession(context.Background(), dir, device, opener, func(string) {}, nil, nil); err == nil {
		t.Fatal("expected open failure")
	}
	lock, err := AcquireDevice(dir, device.Path)
	if err != nil {
		t.Fatalf("lock must be released after failed open: %v", err)
	}
	_ = lock.Release()
}

func TestSessionHoldsDeviceUntilStopped(t *testing.T) {
	dir := t.TempDir()
	device := Device{Path: "/dev/video0"}
	stream := &fakeStream{}

	session, err := StartSession(context.Background(), dir, device, &fakeOpener{stream: stream}, func(string) {}, nil, nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected session id")
	}
	if _, err := StartSession(context.Background(), dir, device, &fakeOpener{stream: &fakeStream{}}, func(string) {}, nil, nil); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("second session must fail with ErrDeviceBusy, got %v", err)
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if stream.closed.Load() != 1 {
		t.Fatalf("stream closed %d times", stream.closed.Load())
	}
	lock, err := AcquireDevice(dir, device.Path)
	if err != nil {
		t.Fatalf("device should be free after Stop: %v", err)
	}
	_ = lock.Release()
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decoder.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandOpenerStreamsDecodedLines(t *testing.T) {
	script := writeScript(t, "echo \"device=$1\" >&2\necho 'QR-Code:0042'\necho ''\necho '0043'\nexec sleep 30\n")
	decoded := make(chan string, 4)
	opener := CommandOpener{Template: script + " {device}", StartupGrace: 50 * time.Millisecond}

	stream, err := opener.Open(context.Background(), Device{Path: "/dev/video0"}, func(text string) { decoded <- text }, func(err error) {
		t.Errorf("unexpected onError after normal close: %v", err)
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var got []string
	for len(got) < 2 {
		select {
		case text := <-decoded:
			got = append(got, text)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for decodes, got %v", got)
		}
	}
	if got[0] != "0042" || got[1] != "0043" {
		t.Fatalf("unexpected decodes %v", got)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCommandOpenerSkipsOversizedLines(t *testing.T) {
	script := writeScript(t, "head -c 70000 /dev/zero | tr '\\0' 'x'\necho\necho 'QR-Code:MEMBER1'\nexec sleep 30\n")
	decoded := make(chan string, 4)
	opener := CommandOpener{Template: script + " {device}", StartupGrace: 50 * time.Millisecond}

	stream, err := opener.Open(context.Background(), Device{Path: "/dev/video0"}, func(text string) { decoded <- text }, func(err error) {
		t.Errorf("unexpected onError: %v", err)
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	select {
	case text := <-decoded:
		if text != "MEMBER1" {
			t.Fatalf("expected MEMBER1 after the oversized line, got %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("decoder output stalled after an oversized line")
	}
}

func TestReadDecodedLines(t *testing.T) {
	input := "0123456789abcdefghijklmnop\n0042\r\nzzzzzzzzzzzzzzzzzzzzzzzz\ntail"
	var got []string
	if err := readDecodedLines(strings.NewReader(input), 16, func(line string) { got = append(got, line) }); err != nil {
		t.Fatalf("readDecodedLines: %v", err)
	}
	if len(got) != 2 || got[0] != "0042" || got[1] != "tail" {
		t.Fatalf("unexpected lines %q", got)
	}

	boom := errors.New("read /dev/stdout: input/output error")
	got = nil
	err := readDecodedLines(io.MultiReader(strings.NewReader("0043\n"), iotest.ErrReader(boom)), 16, func(line string) { got = append(got, line) })
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
	if len(got) != 1 || got[0] != "0043" {
		t.Fatalf("lines before the error must still be delivered, got %q", got)
	}
}

func TestCommandOpenerFailsWhenDecoderExitsImmediately(t *testing.T) {
	script := writeScript(t, "echo 'cannot open /dev/video0' >&2\nexit 1\n")
	opener := CommandOpener{Template: script + " {device}", StartupGrace: 2 * time.Second}

	_, err := opener.Open(context.Background(), Device{Path: "/dev/video0"}, func(string) {}, func(err error) {
		t.Errorf("onError must not fire when Open already failed: %v", err)
	})
	if err == nil {
		t.Fatal("expected open failure")
	}
}

func TestCommandOpenerReportsLaterExit(t *testing.T) {
	script := writeScript(t, "sleep 0.2\nexit 3\n")
	opener := CommandOpener{Template: script + " {device}", StartupGrace: 20 * time.Millisecond}
	errs := make(chan error, 1)

	stream, err := opener.Open(context.Background(), Device{Path: "/dev/video0"}, func(string) {}, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("expected non-nil stream error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream error")
	}
}
