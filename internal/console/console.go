package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"

	"asamblea/internal/attendance"
	"asamblea/internal/backend"
	"asamblea/internal/camera"
	"asamblea/internal/config"
	"asamblea/internal/journal"
	"asamblea/internal/logging"
	"asamblea/internal/meeting"
	"asamblea/internal/notifications"
)

// Recorder journals remote calls.
type Recorder interface {
	Append(ctx context.Context, rec journal.Record) (int64, error)
}

// Options wires a Console. Config and Backend are required.
type Options struct {
	Config   *config.Config
	Backend  backend.Service
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Notifier notifications.Service
	Recorder Recorder
	// Probe decides camera availability. Nil builds a udev probe from Config.
	Probe *camera.Probe
	// Opener opens decode streams. Nil runs Config.Scanner.DecoderCommand.
	Opener camera.Opener
	// SkipLock disables the single-instance lock.
	SkipLock bool
}

// Console is the meeting-day event loop.
type Console struct {
	cfg       *config.Config
	backend   backend.Service
	clock     clockwork.Clock
	logger    *slog.Logger
	notifier  notifications.Service
	recorder  Recorder
	registrar *attendance.Registrar
	probe     *camera.Probe
	opener    camera.Opener
	monitor   *camera.Monitor
	lock      *flock.Flock

	started  atomic.Bool
	running  atomic.Bool
	baseCtx  context.Context
	events   chan func()
	quit     chan struct{}
	quitOnce sync.Once
	closing  chan struct{}
	done     chan struct{}

	// Loop-owned state.
	startedAt   time.Time
	lastTick    time.Time
	meeting     *meeting.Meeting
	guard       *meeting.Guard
	snapshot    meeting.Snapshot
	roster      *attendance.Roster
	rosterAt    time.Time
	debouncer   *attendance.Debouncer
	cam         camera.ProbeResult
	camNotified bool
	session     *camera.Session
	sessionGen  uint64
	sessionStop chan struct{}
	notices     []Notice
}

// New builds a console. It does not touch the network or the camera until Start.
func New(opts Options) (*Console, error) {
	if opts.Config == nil {
		return nil, errors.New("console requires config")
	}
	if opts.Backend == nil {
		return nil, errors.New("console requires backend")
	}
	cfg := opts.Config
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := logging.NewComponentLogger(opts.Logger, "console")
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	probe := opts.Probe
	if probe == nil {
		probe = camera.NewProbe(camera.UdevEnumerator{}, opts.Logger,
			camera.WithPreferredDevice(cfg.Scanner.Device),
			camera.WithTimeout(cfg.ProbeTimeout()),
		)
	}
	opener := opts.Opener
	if opener == nil {
		opener = camera.CommandOpener{Template: cfg.Scanner.DecoderCommand, Logger: opts.Logger}
	}

	c := &Console{
		cfg:       cfg,
		backend:   opts.Backend,
		clock:     clock,
		logger:    logger,
		notifier:  notifier,
		recorder:  opts.Recorder,
		registrar: attendance.NewRegistrar(opts.Backend, cfg.Location(), opts.Logger),
		probe:     probe,
		opener:    opener,
		roster:    attendance.NewRoster(nil),
		debouncer: attendance.NewDebouncer(clock, cfg.ScanCooldown(), cfg.Scanner.PerIdentifier),
		events:    make(chan func(), 64),
		quit:      make(chan struct{}),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
		cam:       camera.ProbeResult{Availability: camera.AvailabilityUnknown},
	}
	if !opts.SkipLock {
		c.lock = flock.New(cfg.LockPath())
	}
	return c, nil
}

// Start loads today's meeting, probes the camera, and launches the loop. A
// console runs once; build a new one to run again.
func (c *Console) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := c.acquire(); err != nil {
		close(c.done)
		return err
	}

	c.baseCtx = context.WithoutCancel(ctx)
	c.startedAt = c.clock.Now()
	// Accept posts before the loop starts; the buffered channel holds them.
	c.running.Store(true)

	c.loadMeeting(ctx)
	c.initialProbe(ctx)

	if c.cfg.Scanner.Enabled && c.cfg.Scanner.Hotplug {
		c.monitor = camera.NewMonitor(c.logger, c.onHotplug)
		if err := c.monitor.Start(ctx); err != nil {
			logging.WarnWithContext(c.logger, "camera hotplug monitor unavailable", "hotplug_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "cameras connected later need a console restart"),
				logging.String(logging.FieldImpact, "camera changes are not detected"),
			)
			c.monitor = nil
		}
	}

	ticker := c.clock.NewTicker(c.cfg.TickInterval())
	go c.loop(ctx, ticker)

	c.logger.Info("console started",
		logging.String(logging.FieldEventType, "console_started"),
		logging.String("camera", c.cam.Availability.String()),
		logging.Bool("meeting", c.meeting != nil),
	)
	return nil
}

func (c *Console) acquire() error {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	if c.lock == nil {
		return nil
	}
	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Stop terminates the loop and waits for it to release the camera and lock.
func (c *Console) Stop() {
	if !c.started.Load() {
		return
	}
	c.quitOnce.Do(func() { close(c.quit) })
	<-c.done
}

// Done is closed once the loop has exited.
func (c *Console) Done() <-chan struct{} {
	return c.done
}

// Running reports whether the loop is accepting events.
func (c *Console) Running() bool {
	return c.running.Load()
}

func (c *Console) loop(ctx context.Context, ticker clockwork.Ticker) {
	defer close(c.done)
	defer ticker.Stop()

	c.tick(c.clock.Now())
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-c.quit:
			c.shutdown()
			return
		case <-ticker.Chan():
			c.tick(c.clock.Now())
		case fn := <-c.events:
			fn()
		}
	}
}

func (c *Console) shutdown() {
	c.running.Store(false)
	close(c.closing)
	c.stopScanner("console stopped")
	if c.monitor != nil {
		c.monitor.Stop()
	}
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			logging.WarnWithContext(c.logger, "failed to release console lock", "lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove "+c.cfg.LockPath()+" if the next start fails"),
				logging.String(logging.FieldImpact, "next start may report another console running"),
			)
		}
	}
	c.logger.Info("console stopped", logging.String(logging.FieldEventType, "console_stopped"))
}

// post schedules fn on the loop. It reports false once the console is closing.
func (c *Console) post(fn func()) bool {
	return c.postUnless(fn, nil)
}

func (c *Console) postUnless(fn func(), abort <-chan struct{}) bool {
	if !c.running.Load() {
		return false
	}
	select {
	case c.events <- fn:
		return true
	case <-c.closing:
		return false
	case <-abort:
		return false
	}
}

// call runs fn on the loop and waits for it to finish.
func (c *Console) call(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	if !c.post(func() { fn(); close(reply) }) {
		return ErrNotRunning
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closing:
		return ErrNotRunning
	}
}

func (c *Console) tick(now time.Time) {
	c.lastTick = now
	if c.meeting == nil {
		return
	}
	c.snapshot = meeting.Derive(c.meeting.ScheduledStart, c.cfg.MeetingDuration(), now)
	c.guard.Observe(c.snapshot.Phase)
	c.reconcileScanner()
}

// loadMeeting fetches today's meeting synchronously before the loop starts.
func (c *Console) loadMeeting(ctx context.Context) {
	var m meeting.Meeting
	err := c.remote(ctx, journal.KindMeeting, "", "", func(ctx context.Context) (string, error) {
		var err error
		m, err = c.backend.MeetingOfToday(ctx)
		return m.ID, err
	})
	switch {
	case errors.Is(err, backend.ErrNoMeeting):
		c.notify(LevelInfo, "No hay asamblea programada para hoy")
	case err != nil:
		c.notify(LevelError, "No se pudo obtener la asamblea de hoy: "+attendance.UserMessage(err, err.Error()))
		logging.WarnWithContext(c.logger, "meeting fetch failed", "meeting_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend.base_url, then run asamblea refresh"),
			logging.String(logging.FieldImpact, "phase clock idle until a meeting is loaded"),
		)
	default:
		c.installMeeting(m)
		c.fetchRoster(m.ID, nil)
	}
}

func (c *Console) installMeeting(m meeting.Meeting) {
	c.meeting = &m
	c.guard = meeting.NewGuard(m.ID, m.RemotePhase, guardEffects{c: c}, c.logger)
	c.logger.Info("meeting loaded",
		logging.String(logging.FieldEventType, "meeting_loaded"),
		logging.String(logging.FieldMeetingID, m.ID),
		logging.String("title", m.Title()),
		logging.Time("scheduled_start", m.ScheduledStart),
		logging.String("remote_phase", m.RemotePhase.String()),
	)
}
