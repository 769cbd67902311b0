package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"asamblea/internal/logging"
)

// ProbeResult is the outcome of one probe run.
type ProbeResult struct {
	Availability Availability `json:"availability"`
	Devices      []Device     `json:"devices"`
	Selected     Device       `json:"selected"`
	Reason       string       `json:"reason,omitempty"`
	Err          error        `json:"-"`
}

// Usable reports whether a scanner may be started.
func (r ProbeResult) Usable() bool {
	return r.Availability == AvailabilityAvailable && r.Selected.Path != ""
}

// Probe decides whether a camera can be offered to the operator.
type Probe struct {
	enumerator Enumerator
	preferred  string
	timeout    time.Duration
	access     func(path string) error
	logger     *slog.Logger
}

// ProbeOption customizes a Probe.
type ProbeOption func(*Probe)

// WithPreferredDevice pins the probe to one device path.
func WithPreferredDevice(path string) ProbeOption {
	return func(p *Probe) { p.preferred = devicePath(path) }
}

// WithTimeout bounds enumeration.
func WithTimeout(d time.Duration) ProbeOption {
	return func(p *Probe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithAccessCheck replaces the read/write permission check.
func WithAccessCheck(fn func(path string) error) ProbeOption {
	return func(p *Probe) {
		if fn != nil {
			p.access = fn
		}
	}
}

// NewProbe builds a probe. A nil enumerator makes every run report Unavailable.
func NewProbe(enumerator Enumerator, logger *slog.Logger, opts ...ProbeOption) *Probe {
	p := &Probe{
		enumerator: enumerator,
		timeout:    3 * time.Second,
		access:     func(path string) error { return unix.Access(path, unix.R_OK|unix.W_OK) },
		logger:     logging.NewComponentLogger(logger, "camera-probe"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run enumerates devices and selects one. It never returns Unknown: any
// failure, including a panic inside the enumerator, yields Unavailable.
func (p *Probe) Run(ctx context.Context) (result ProbeResult) {
	result = ProbeResult{Availability: AvailabilityUnavailable}
	if p == nil || p.enumerator == nil {
		result.Err = ErrEnumerationUnsupported
		result.Reason = "camera enumeration is not available on this system"
		return result
	}
	defer func() {
		if r := recover(); r != nil {
			result = ProbeResult{
				Availability: AvailabilityUnavailable,
				Err:          fmt.Errorf("%w: probe panicked: %v", ErrEnumerationUnsupported, r),
				Reason:       "camera probe failed",
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	devices, err := p.enumerator.Enumerate(ctx)
	if err != nil {
		result.Err = err
		result.Reason = "could not list cameras"
		if errors.Is(err, ErrEnumerationUnsupported) {
			result.Reason = "camera enumeration is not available on this system"
		}
		return result
	}

	for i := range devices {
		devices[i].Accessible = p.access(devices[i].Path) == nil
	}
	result.Devices = devices

	selected, reason, err := p.choose(devices)
	if err != nil {
		result.Err = err
		result.Reason = reason
		return result
	}
	result.Selected = selected
	result.Availability = AvailabilityAvailable

	p.logger.Debug("camera probe selected device",
		logging.String(logging.FieldDevice, selected.Path),
		logging.String("name", selected.Name),
		logging.Int("candidates", len(devices)),
	)
	return result
}

func (p *Probe) choose(devices []Device) (Device, string, error) {
	if len(devices) == 0 {
		return Device{}, "no camera connected", ErrNoDevice
	}
	if p.preferred != "" {
		for _, d := range devices {
			if d.Path != p.preferred {
				continue
			}
			if !d.Accessible {
				return Device{}, "permission denied for " + d.Path, fmt.Errorf("access %s: %w", d.Path, unix.EACCES)
			}
			return d, "", nil
		}
		return Device{}, "configured camera " + p.preferred + " not found", fmt.Errorf("%w: %s", ErrNoDevice, p.preferred)
	}

	denied := ""
	for _, d := range devices {
		if !d.Capture() {
			continue
		}
		if d.Accessible {
			return d, "", nil
		}
		if denied == "" {
			denied = d.Path
		}
	}
	if denied != "" {
		return Device{}, "permission denied for " + denied + " (add the user to the video group)", fmt.Errorf("access %s: %w", denied, unix.EACCES)
	}
	return Device{}, "no capture-capable camera connected", ErrNoDevice
}
