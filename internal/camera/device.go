package camera

import (
	"errors"
	"path/filepath"
	"strings"
)

// Availability is the tri-state outcome of probing for a camera.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityAvailable
	AvailabilityUnavailable
)

func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

var (
	// ErrNoDevice means enumeration found no capture device.
	ErrNoDevice = errors.New("no capture device found")
	// ErrEnumerationUnsupported means the platform cannot list devices.
	ErrEnumerationUnsupported = errors.New("device enumeration unsupported")
	// ErrDeviceBusy means another scan session holds the device.
	ErrDeviceBusy = errors.New("capture device is in use")
)

// Device is one video4linux node.
type Device struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	KObj  string `json:"kobj,omitempty"`
	Index int    `json:"index"`
	// Accessible is set by the probe when the process can open the node read/write.
	Accessible bool `json:"accessible"`
}

// Capture reports whether this node is the primary capture interface. Cameras
// expose extra metadata nodes with a non-zero index.
func (d Device) Capture() bool {
	return d.Index == 0
}

// Label is a short display name.
func (d Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return filepath.Base(d.Path)
}

func devicePath(devname string) string {
	devname = strings.TrimSpace(devname)
	if devname == "" {
		return ""
	}
	if strings.HasPrefix(devname, "/dev/") {
		return devname
	}
	return "/dev/" + strings.TrimPrefix(devname, "/")
}
