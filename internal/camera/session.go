package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"asamblea/internal/logging"
)

// Session is one exclusive use of a capture device by a decoder stream.
type Session struct {
	ID      string
	Device  Device
	Started time.Time

	lock   *DeviceLock
	stream Stream
	logger *slog.Logger

	once    sync.Once
	stopErr error
}

// StartSession locks device, opens a decode stream on it, and returns the
// running session. If any step fails, everything acquired so far is released
// before returning.
func StartSession(ctx context.Context, lockDir string, device Device, opener Opener, onDecode func(string), onError func(error), logger *slog.Logger) (_ *Session, err error) {
	if opener == nil {
		return nil, errors.New("no decoder configured")
	}
	id := uuid.NewString()
	logger = logging.NewComponentLogger(logger, "scan-session").With(
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldDevice, device.Path),
	)

	lock, err := AcquireDevice(lockDir, device.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = lock.Release()
		}
		if r := recover(); r != nil {
			_ = lock.Release()
			panic(r)
		}
	}()

	stream, err := opener.Open(logging.WithSessionID(ctx, id), device, onDecode, onError)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device.Path, err)
	}

	s := &Session{
		ID:      id,
		Device:  device,
		Started: time.Now(),
		lock:    lock,
		stream:  stream,
		logger:  logger,
	}
	logger.Info("scan session started", logging.String(logging.FieldEventType, "scan_session_started"))
	return s, nil
}

// Stop closes the stream and releases the device. It is safe to call more than once.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		var errs []error
		if s.stream != nil {
			if err := s.stream.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close stream: %w", err))
			}
		}
		if err := s.lock.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release device: %w", err))
		}
		s.stopErr = errors.Join(errs...)
		s.logger.Info("scan session stopped",
			logging.String(logging.FieldEventType, "scan_session_stopped"),
			logging.Duration("uptime", time.Since(s.Started).Round(time.Second)),
		)
	})
	return s.stopErr
}
