package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// DeviceLock is an advisory, cross-process lock on one capture device.
type DeviceLock struct {
	device string
	lock   *flock.Flock
}

// AcquireDevice takes the lock for device under lockDir without blocking.
// A held lock returns ErrDeviceBusy.
func AcquireDevice(lockDir, device string) (*DeviceLock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(filepath.Join(lockDir, lockName(device)))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", device, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, device)
	}
	return &DeviceLock{device: device, lock: fl}, nil
}

// Release unlocks the device. Releasing twice is a no-op.
func (l *DeviceLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	return err
}

func lockName(device string) string {
	name := strings.Trim(strings.ReplaceAll(device, "/", "_"), "_")
	if name == "" {
		name = "camera"
	}
	return name + ".lock"
}
