package console_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"asamblea/internal/attendance"
	"asamblea/internal/backend"
	"asamblea/internal/camera"
	"asamblea/internal/config"
	"asamblea/internal/console"
	"asamblea/internal/journal"
	"asamblea/internal/meeting"
	"asamblea/internal/testsupport"
)

var base = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type fakeOpener struct {
	mu       sync.Mutex
	onDecode func(string)
	onError  func(error)
	opened   int
	closed   int
	fail     error
}

func (o *fakeOpener) Open(_ context.Context, _ camera.Device, onDecode func(string), onError func(error)) (camera.Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return nil, o.fail
	}
	o.onDecode = onDecode
	o.onError = onError
	o.opened++
	return &fakeStream{o: o}, nil
}

func (o *fakeOpener) emit(text string) {
	o.mu.Lock()
	fn := o.onDecode
	o.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (o *fakeOpener) crash(err error) {
	o.mu.Lock()
	fn := o.onError
	o.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (o *fakeOpener) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened, o.closed
}

type fakeStream struct {
	o    *fakeOpener
	once sync.Once
}

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		s.o.mu.Lock()
		s.o.closed++
		s.o.onDecode = nil
		s.o.onError = nil
		s.o.mu.Unlock()
	})
	return nil
}

type harness struct {
	t       *testing.T
	cfg     *config.Config
	backend *testsupport.FakeBackend
	clock   *clockwork.FakeClock
	opener  *fakeOpener
	journal *journal.Store
	console *console.Console
}

func newHarness(t *testing.T, devices []camera.Device) *harness {
	t.Helper()
	fb := testsupport.NewFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(fb.URL()), testsupport.WithScanner(""))
	h := &harness{
		t:       t,
		cfg:     cfg,
		backend: fb,
		clock:   clockwork.NewFakeClockAt(base),
		opener:  &fakeOpener{},
		journal: testsupport.MustOpenJournal(t, cfg),
	}
	probe := camera.NewProbe(camera.EnumeratorFunc(func(context.Context) ([]camera.Device, error) {
		return append([]camera.Device(nil), devices...), nil
	}), nil, camera.WithAccessCheck(func(string) error { return nil }))

	c, err := console.New(console.Options{
		Config:   cfg,
		Backend:  backend.NewFromConfig(cfg),
		Clock:    h.clock,
		Recorder: h.journal,
		Probe:    probe,
		Opener:   h.opener,
	})
	if err != nil {
		t.Fatalf("console.New: %v", err)
	}
	h.console = c
	return h
}

func (h *harness) start() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.console.Start(context.Background()); err != nil {
		h.t.Fatalf("Start: %v", err)
	}
	h.t.Cleanup(h.console.Stop)
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		h.t.Fatalf("ticker never registered: %v", err)
	}
}

func (h *harness) status() console.Status {
	h.t.Helper()
	st, err := h.console.Status(context.Background())
	if err != nil {
		h.t.Fatalf("Status: %v", err)
	}
	return st
}

func (h *harness) roster(query string) []attendance.Entry {
	h.t.Helper()
	entries, err := h.console.Roster(context.Background(), query)
	if err != nil {
		h.t.Fatalf("Roster: %v", err)
	}
	return entries
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func seedRoster(fb *testsupport.FakeBackend) {
	fb.SetRoster(
		testsupport.Member{ID: "10", Name: "Rosa", LastName: "Quispe", Status: "AUSENTE"},
		testsupport.Member{ID: "2", Name: "José", LastName: "Mamani", Status: "AUSENTE"},
		testsupport.Member{ID: "7", Name: "Ana", LastName: "Condori", Status: "JUSTIFICADO", Justification: "sick leave"},
	)
}

var webcam = []camera.Device{{Path: "/dev/video0", Name: "USB Camera"}}

func hasNotice(notices []console.Notice, fragment string) int {
	n := 0
	for _, notice := range notices {
		if strings.Contains(notice.Message, fragment) {
			n++
		}
	}
	return n
}

func TestConsoleMirrorsEachTransitionOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.SetMeeting("m-1", base.Add(2*time.Second), "SCHEDULED")
	seedRoster(h.backend)
	h.start()

	if st := h.status(); st.Phase != meeting.PhaseScheduled || st.Confirmed != meeting.PhaseScheduled {
		t.Fatalf("expected scheduled before start, got %+v", st)
	}

	h.clock.Advance(time.Second)
	h.clock.Advance(time.Second)
	eventually(t, "IN_PROGRESS mirror", func() bool { return len(h.backend.Phases()) == 1 })
	eventually(t, "roster generation", func() bool { return len(h.backend.Generated()) == 1 })

	h.clock.Advance(time.Second)
	h.clock.Advance(2 * time.Hour)
	eventually(t, "FINISHED mirror", func() bool { return len(h.backend.Phases()) == 2 })
	h.clock.Advance(time.Second)

	if got := h.backend.Phases(); got[0] != "IN_PROGRESS" || got[1] != "FINISHED" {
		t.Fatalf("unexpected phase writes: %v", got)
	}
	if got := h.backend.Generated(); len(got) != 1 || got[0] != "m-1" {
		t.Fatalf("unexpected generation calls: %v", got)
	}
	if st := h.status(); st.Confirmed != meeting.PhaseFinished || st.TimeToEnd != 0 {
		t.Fatalf("expected finished, got %+v", st)
	}

	eventually(t, "journaled calls", func() bool {
		records, err := h.journal.List(context.Background(), 0)
		if err != nil {
			t.Fatalf("journal List: %v", err)
		}
		kinds := map[journal.Kind]int{}
		for _, rec := range records {
			kinds[rec.Kind]++
		}
		return kinds[journal.KindPhase] == 2 && kinds[journal.KindGenerate] == 1 && kinds[journal.KindMeeting] == 1
	})
}

func TestConsoleMirrorFailureKeepsGuardAdvanced(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.SetMeeting("m-1", base.Add(time.Second), "SCHEDULED")
	h.backend.FailPhase(http.StatusServiceUnavailable, "mantenimiento")
	h.start()

	h.clock.Advance(time.Second)
	eventually(t, "generation despite mirror failure", func() bool { return len(h.backend.Generated()) == 1 })
	eventually(t, "mirror failure notice", func() bool {
		return hasNotice(h.status().Notices, "No se pudo registrar la fase") == 1
	})

	h.clock.Advance(time.Second)
	st := h.status()
	if st.Confirmed != meeting.PhaseInProgress {
		t.Fatalf("guard should stay advanced, got %s", st.Confirmed)
	}
	if hasNotice(st.Notices, "No se pudo registrar la fase") != 1 {
		t.Fatalf("mirror must not be retried on later ticks: %+v", st.Notices)
	}
}

func TestConsoleScannerRegistersWithDebounce(t *testing.T) {
	h := newHarness(t, webcam)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	seedRoster(h.backend)
	h.start()

	eventually(t, "roster load", func() bool { return len(h.roster("")) == 3 })
	eventually(t, "scanner start", func() bool { opened, _ := h.opener.counts(); return opened == 1 })
	if got := h.backend.Phases(); len(got) != 0 {
		t.Fatalf("seeded guard must not re-mirror: %v", got)
	}

	h.opener.emit("2")
	h.opener.emit("2")
	h.opener.emit(" 2 ")
	eventually(t, "first registration", func() bool { return len(h.backend.Registrations()) == 1 })

	h.opener.emit("10")
	eventually(t, "second member registration", func() bool { return len(h.backend.Registrations()) == 2 })

	h.clock.Advance(6 * time.Second)
	h.opener.emit("10")
	eventually(t, "registration after cooldown", func() bool { return len(h.backend.Registrations()) == 3 })

	calls := h.backend.Registrations()
	if calls[0].Identifier != "2" || calls[0].MeetingID != "m-1" || calls[0].Date != "2026-03-14" || calls[0].Status != "" {
		t.Fatalf("unexpected scan registration: %+v", calls[0])
	}
	eventually(t, "roster patched", func() bool {
		entries := h.roster("mamani")
		return len(entries) == 1 && entries[0].Status == attendance.StatusPresent && entries[0].Present
	})

	entries := h.roster("")
	if entries[0].MemberID != "2" || entries[1].MemberID != "7" || entries[2].MemberID != "10" {
		t.Fatalf("roster not sorted by numeric id: %+v", entries)
	}
}

func TestConsoleStopsScannerWhenFinished(t *testing.T) {
	h := newHarness(t, webcam)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	h.start()

	eventually(t, "scanner start", func() bool { opened, _ := h.opener.counts(); return opened == 1 })
	if !h.status().Scanning {
		t.Fatal("expected scanning while in progress")
	}

	h.clock.Advance(2 * time.Hour)
	eventually(t, "scanner stop", func() bool { _, closed := h.opener.counts(); return closed == 1 })
	eventually(t, "FINISHED mirror", func() bool { return len(h.backend.Phases()) == 1 })
	if st := h.status(); st.Scanning {
		t.Fatalf("scanner should be stopped after finish: %+v", st)
	}
}

func TestConsoleDecoderCrashDegradesToManual(t *testing.T) {
	h := newHarness(t, webcam)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	h.start()

	eventually(t, "scanner start", func() bool { opened, _ := h.opener.counts(); return opened == 1 })
	h.opener.crash(errors.New("device unplugged"))

	eventually(t, "manual-only mode", func() bool {
		st := h.status()
		return !st.Scanning && st.Camera == camera.AvailabilityUnavailable
	})
	h.clock.Advance(time.Second)
	h.clock.Advance(time.Second)

	st := h.status()
	if n := hasNotice(st.Notices, "Cámara no disponible"); n != 1 {
		t.Fatalf("camera failure must be surfaced once, got %d", n)
	}
	if opened, _ := h.opener.counts(); opened != 1 {
		t.Fatalf("scanner must not restart without a new probe, opened=%d", opened)
	}
}

func TestConsoleBusyDeviceFallsBackToManual(t *testing.T) {
	h := newHarness(t, webcam)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	held, err := camera.AcquireDevice(h.cfg.LockDir(), webcam[0].Path)
	if err != nil {
		t.Fatalf("AcquireDevice: %v", err)
	}
	t.Cleanup(func() { _ = held.Release() })
	h.start()

	eventually(t, "manual-only mode", func() bool {
		st := h.status()
		return !st.Scanning && st.Camera == camera.AvailabilityUnavailable
	})
	h.clock.Advance(time.Second)
	h.clock.Advance(time.Second)

	st := h.status()
	if !strings.Contains(st.CameraReason, webcam[0].Path) {
		t.Fatalf("reason should name the busy device, got %q", st.CameraReason)
	}
	if n := hasNotice(st.Notices, "Cámara no disponible"); n != 1 {
		t.Fatalf("busy camera must be surfaced once, got %d", n)
	}
	if opened, _ := h.opener.counts(); opened != 0 {
		t.Fatalf("no stream may open while another process holds the device, opened=%d", opened)
	}
}

func TestConsoleManualOnlyWithoutCamera(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	seedRoster(h.backend)
	h.start()

	eventually(t, "roster load", func() bool { return len(h.roster("")) == 3 })
	st := h.status()
	if st.Camera != camera.AvailabilityUnavailable || st.Scanning {
		t.Fatalf("expected manual-only mode, got %+v", st)
	}
	if opened, _ := h.opener.counts(); opened != 0 {
		t.Fatalf("no stream should open without a camera, opened=%d", opened)
	}

	res, err := h.console.Mark(context.Background(), attendance.Mark{MemberID: "7", Present: false})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !res.OK || res.Entry.Status != attendance.StatusAbsent || res.Entry.Present || res.Entry.Justification != "" {
		t.Fatalf("unexpected mark result: %+v", res)
	}
	calls := h.backend.Registrations()
	if len(calls) != 1 || calls[0].Status != "AUSENTE" || calls[0].Justification != "" {
		t.Fatalf("unexpected register call: %+v", calls)
	}
	row := h.roster("condori")
	if len(row) != 1 || row[0].Status != attendance.StatusAbsent || row[0].Justification != "" {
		t.Fatalf("roster row not patched: %+v", row)
	}
}

func TestConsoleMarkPresentWithStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	seedRoster(h.backend)
	h.start()
	eventually(t, "roster load", func() bool { return len(h.roster("")) == 3 })

	res, err := h.console.Mark(context.Background(), attendance.Mark{MemberID: "10", Present: true, Status: attendance.StatusLate})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !res.OK || res.Entry.Status != attendance.StatusLate || !res.Entry.Present {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := h.console.Mark(context.Background(), attendance.Mark{MemberID: "99", Present: true}); !errors.Is(err, console.ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
	if _, err := h.console.Mark(context.Background(), attendance.Mark{MemberID: "10", Present: true, Status: attendance.StatusAbsent}); !errors.Is(err, attendance.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if got := len(h.backend.Registrations()); got != 1 {
		t.Fatalf("rejected marks must not reach the backend, got %d calls", got)
	}
}

func TestConsoleRegistrationFailureLeavesRow(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	seedRoster(h.backend)
	h.backend.FailRegistration("2", http.StatusUnprocessableEntity, "Socio suspendido")
	h.start()
	eventually(t, "roster load", func() bool { return len(h.roster("")) == 3 })

	out, err := h.console.Scan(context.Background(), "2")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out.Suppressed || out.Result.OK || out.Result.Message != "Socio suspendido" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	row := h.roster("mamani")
	if len(row) != 1 || row[0].Status != attendance.StatusAbsent {
		t.Fatalf("failed registration must leave row untouched: %+v", row)
	}

	again, err := h.console.Scan(context.Background(), "2")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !again.Suppressed {
		t.Fatalf("repeat inside cooldown should be suppressed: %+v", again)
	}
}

func TestConsoleTemporaryRegistrationFailureSuggestsRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	seedRoster(h.backend)
	h.backend.FailRegistration("2", http.StatusServiceUnavailable, "Servicio en mantenimiento")
	h.start()
	eventually(t, "roster load", func() bool { return len(h.roster("")) == 3 })

	out, err := h.console.Scan(context.Background(), "2")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out.Result.OK || !out.Result.Retryable {
		t.Fatalf("expected retryable failure: %+v", out)
	}
	if !strings.Contains(out.Result.Message, "Servicio en mantenimiento") || !strings.Contains(out.Result.Message, attendance.RetryHint) {
		t.Fatalf("unexpected message %q", out.Result.Message)
	}
}

func TestConsoleWithoutMeetingThenRefresh(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	st := h.status()
	if st.Meeting != nil {
		t.Fatalf("expected no meeting, got %+v", st.Meeting)
	}
	if _, err := h.console.Scan(context.Background(), "2"); !errors.Is(err, console.ErrNoMeeting) {
		t.Fatalf("expected ErrNoMeeting, got %v", err)
	}
	if _, err := h.console.Mark(context.Background(), attendance.Mark{MemberID: "2", Present: true}); !errors.Is(err, console.ErrNoMeeting) {
		t.Fatalf("expected ErrNoMeeting, got %v", err)
	}

	h.backend.SetMeeting("m-2", base.Add(time.Hour), "")
	seedRoster(h.backend)
	n, err := h.console.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 roster entries, got %d", n)
	}
	st = h.status()
	if st.Meeting == nil || st.Meeting.ID != "m-2" || st.Phase != meeting.PhaseScheduled {
		t.Fatalf("meeting not installed: %+v", st)
	}
	eventually(t, "first phase mirror from unset", func() bool {
		got := h.backend.Phases()
		return len(got) == 1 && got[0] == "SCHEDULED"
	})
}

func TestConsoleCommandsAfterStop(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.SetMeeting("m-1", base.Add(-time.Minute), "IN_PROGRESS")
	seedRoster(h.backend)
	h.start()
	eventually(t, "roster load", func() bool { return len(h.roster("")) == 3 })

	h.backend.Hold()
	errs := make(chan error, 1)
	go func() {
		_, err := h.console.Scan(context.Background(), "2")
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)

	h.console.Stop()
	if err := <-errs; !errors.Is(err, console.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning for in-flight scan, got %v", err)
	}
	h.backend.Release()

	if _, err := h.console.Status(context.Background()); !errors.Is(err, console.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after stop, got %v", err)
	}
}

func TestConsoleSingleInstance(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	second, err := console.New(console.Options{Config: h.cfg, Backend: backend.NewFromConfig(h.cfg), Clock: h.clock})
	if err != nil {
		t.Fatalf("console.New: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, console.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	second.Stop()
}
