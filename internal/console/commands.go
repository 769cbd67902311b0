package console

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"asamblea/internal/attendance"
	"asamblea/internal/camera"
	"asamblea/internal/journal"
	"asamblea/internal/meeting"
)

// Status is a point-in-time view of the console.
type Status struct {
	Running      bool
	StartedAt    time.Time
	Now          time.Time
	Meeting      *meeting.Meeting
	Phase        meeting.Phase
	Confirmed    meeting.Phase
	TimeToStart  time.Duration
	TimeToEnd    time.Duration
	Camera       camera.Availability
	CameraReason string
	Device       string
	Scanning     bool
	SessionID    string
	CoolingDown  []string
	RosterSize   int
	RosterAt     time.Time
	Counts       map[attendance.Status]int
	Notices      []Notice
}

// ScanOutcome is the result of a typed credential code.
type ScanOutcome struct {
	Identifier string
	Suppressed bool
	Result     attendance.Result
}

const statusNotices = 10

// Status snapshots the loop state.
func (c *Console) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.call(ctx, func() {
		st = Status{
			Running:      true,
			StartedAt:    c.startedAt,
			Now:          c.lastTick,
			Camera:       c.cam.Availability,
			CameraReason: c.cam.Reason,
			Device:       c.cam.Selected.Path,
			RosterSize:   c.roster.Len(),
			RosterAt:     c.rosterAt,
			Counts:       c.roster.Counts(),
			Notices:      c.recentNotices(statusNotices),
		}
		if c.debouncer != nil {
			st.CoolingDown = c.debouncer.Suppressed()
			slices.Sort(st.CoolingDown)
		}
		if c.meeting != nil {
			m := *c.meeting
			st.Meeting = &m
			st.Phase = c.snapshot.Phase
			st.Confirmed = c.guard.Last()
			st.TimeToStart = c.snapshot.TimeToStart
			st.TimeToEnd = c.snapshot.TimeToEnd
		}
		if c.session != nil {
			st.Scanning = true
			st.SessionID = c.session.ID
			st.Device = c.session.Device.Path
		}
	})
	return st, err
}

// Roster returns the sorted roster filtered by query.
func (c *Console) Roster(ctx context.Context, query string) ([]attendance.Entry, error) {
	var entries []attendance.Entry
	err := c.call(ctx, func() {
		entries = c.roster.Search(query)
	})
	return entries, err
}

// Notices returns the most recent n notices, oldest first.
func (c *Console) Notices(ctx context.Context, n int) ([]Notice, error) {
	var out []Notice
	err := c.call(ctx, func() {
		out = c.recentNotices(n)
	})
	return out, err
}

// Mark toggles a member's presence and waits for the backend's answer.
func (c *Console) Mark(ctx context.Context, mark attendance.Mark) (attendance.Result, error) {
	mark.MemberID = strings.TrimSpace(mark.MemberID)
	if _, _, err := mark.Requested(); err != nil {
		return attendance.Result{}, err
	}

	reply := make(chan registrationOutcome, 1)
	var precheck error
	err := c.call(ctx, func() {
		if c.meeting == nil {
			precheck = ErrNoMeeting
			return
		}
		if _, ok := c.roster.Get(mark.MemberID); !ok {
			precheck = fmt.Errorf("%w: %s", ErrUnknownMember, mark.MemberID)
			return
		}
		meetingID := c.meeting.ID
		now := c.clock.Now()
		c.register(meetingID, mark.MemberID, func(ctx context.Context) attendance.Result {
			return c.registrar.Mark(ctx, mark, meetingID, now)
		}, reply)
	})
	if err != nil {
		return attendance.Result{}, err
	}
	if precheck != nil {
		return attendance.Result{}, precheck
	}
	out, err := await(ctx, c, reply)
	return out.result, err
}

// Scan feeds a typed credential code through the same path as camera decodes.
func (c *Console) Scan(ctx context.Context, code string) (ScanOutcome, error) {
	reply := make(chan registrationOutcome, 1)
	if err := c.call(ctx, func() { c.submitScan(code, reply) }); err != nil {
		return ScanOutcome{}, err
	}
	out, err := await(ctx, c, reply)
	if err != nil {
		return ScanOutcome{}, err
	}
	if errors.Is(out.result.Err, ErrNoMeeting) || errors.Is(out.result.Err, ErrEmptyCode) {
		return ScanOutcome{}, out.result.Err
	}
	return ScanOutcome{
		Identifier: out.result.Identifier,
		Suppressed: out.suppressed,
		Result:     out.result,
	}, nil
}

// Refresh replaces the roster from the backend. With no meeting loaded it
// first asks the backend for today's meeting again.
func (c *Console) Refresh(ctx context.Context) (int, error) {
	reply := make(chan refreshOutcome, 1)
	needMeeting := false
	err := c.call(ctx, func() {
		if c.meeting == nil {
			needMeeting = true
			return
		}
		c.fetchRoster(c.meeting.ID, reply)
	})
	if err != nil {
		return 0, err
	}
	if needMeeting {
		return c.reloadMeeting(ctx)
	}
	out, err := await(ctx, c, reply)
	if err != nil {
		return 0, err
	}
	return out.count, out.err
}

func (c *Console) reloadMeeting(ctx context.Context) (int, error) {
	var m meeting.Meeting
	err := c.remote(ctx, journal.KindMeeting, "", "", func(ctx context.Context) (string, error) {
		var err error
		m, err = c.backend.MeetingOfToday(ctx)
		return m.ID, err
	})
	if err != nil {
		return 0, err
	}

	reply := make(chan refreshOutcome, 1)
	err = c.call(ctx, func() {
		if c.meeting == nil {
			c.installMeeting(m)
			c.notify(LevelInfo, "Asamblea cargada: "+m.Title())
			c.tick(c.clock.Now())
		}
		c.fetchRoster(c.meeting.ID, reply)
	})
	if err != nil {
		return 0, err
	}
	out, err := await(ctx, c, reply)
	if err != nil {
		return 0, err
	}
	return out.count, out.err
}

func await[T any](ctx context.Context, c *Console, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.closing:
		return zero, ErrNotRunning
	}
}
