package console

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"asamblea/internal/attendance"
	"asamblea/internal/journal"
	"asamblea/internal/logging"
	"asamblea/internal/meeting"
	"asamblea/internal/notifications"
)

// remote runs one backend call with a timeout and journals it. fn returns a
// short description of the outcome for the journal. It runs off the loop.
func (c *Console) remote(ctx context.Context, kind journal.Kind, meetingID, identifier string, fn func(ctx context.Context) (string, error)) error {
	ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	if meetingID != "" {
		ctx = logging.WithMeetingID(ctx, meetingID)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.BackendTimeout())
	defer cancel()

	started := time.Now()
	message, err := fn(callCtx)
	took := time.Since(started)
	if err != nil {
		message = err.Error()
	}
	c.record(ctx, journal.Record{
		Kind:       kind,
		MeetingID:  meetingID,
		Identifier: identifier,
		OK:         err == nil,
		Message:    message,
		Duration:   took,
		CreatedAt:  c.clock.Now(),
	})
	return err
}

func (c *Console) record(ctx context.Context, rec journal.Record) {
	if c.recorder == nil {
		return
	}
	if id, ok := logging.CorrelationID(ctx); ok {
		rec.CorrelationID = id
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := c.recorder.Append(ctx, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "journal write failed", "journal_write_failed",
			logging.String("kind", string(rec.Kind)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space in the state directory"),
			logging.String(logging.FieldImpact, "call missing from asamblea journal"),
		)
	}
}

// guardEffects dispatches guard side effects in the background.
type guardEffects struct {
	c *Console
}

func (e guardEffects) MirrorPhase(meetingID string, phase meeting.Phase) {
	c := e.c
	go func() {
		err := c.remote(c.baseCtx, journal.KindPhase, meetingID, "", func(ctx context.Context) (string, error) {
			return phase.String(), c.backend.UpdatePhase(ctx, meetingID, phase)
		})
		c.post(func() { c.phaseMirrored(phase, err) })
	}()
}

func (e guardEffects) GenerateRoster(meetingID string) {
	c := e.c
	go func() {
		err := c.remote(c.baseCtx, journal.KindGenerate, meetingID, "", func(ctx context.Context) (string, error) {
			return "roster generated", c.backend.GenerateRoster(ctx, meetingID)
		})
		c.post(func() { c.rosterGenerated(meetingID, err) })
	}()
}

func (c *Console) phaseMirrored(phase meeting.Phase, err error) {
	if err != nil {
		c.notify(LevelWarn, "No se pudo registrar la fase "+phase.Label()+": "+attendance.UserMessage(err, err.Error()))
		logging.WarnWithContext(c.logger, "phase mirror failed", "phase_mirror_failed",
			logging.String(logging.FieldPhase, phase.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next transition writes the current phase again"),
			logging.String(logging.FieldImpact, "backend shows a stale phase"),
		)
		c.publish(notifications.EventPhaseMirrorFailed, notifications.Payload{"phase": phase.String(), "error": err})
		return
	}
	c.notify(LevelInfo, "Fase: "+phase.Label())
	c.publish(notifications.EventPhaseChanged, notifications.Payload{"phase": phase.String(), "label": phase.Label()})
}

func (c *Console) rosterGenerated(meetingID string, err error) {
	if err != nil {
		c.notify(LevelWarn, "No se pudo generar la lista de asistencia: "+attendance.UserMessage(err, err.Error()))
		logging.WarnWithContext(c.logger, "roster generation failed", "roster_generation_failed",
			logging.String(logging.FieldMeetingID, meetingID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run asamblea refresh once the backend recovers"),
			logging.String(logging.FieldImpact, "roster empty until refreshed"),
		)
		c.publish(notifications.EventRosterFailed, notifications.Payload{"error": err})
		return
	}
	c.notify(LevelInfo, "Lista de asistencia generada")
	c.publish(notifications.EventRosterGenerated, nil)
	c.fetchRoster(meetingID, nil)
}

type refreshOutcome struct {
	count int
	err   error
}

// fetchRoster replaces the roster from the backend. reply, when set, receives
// the outcome after the roster has been replaced.
func (c *Console) fetchRoster(meetingID string, reply chan<- refreshOutcome) {
	go func() {
		var entries []attendance.Entry
		err := c.remote(c.baseCtx, journal.KindRoster, meetingID, "", func(ctx context.Context) (string, error) {
			var err error
			entries, err = c.backend.Roster(ctx, meetingID)
			return "", err
		})
		c.post(func() {
			out := c.rosterFetched(meetingID, entries, err)
			if reply != nil {
				reply <- out
			}
		})
	}()
}

func (c *Console) rosterFetched(meetingID string, entries []attendance.Entry, err error) refreshOutcome {
	if err != nil {
		c.notify(LevelWarn, "No se pudo cargar la lista de asistencia: "+attendance.UserMessage(err, err.Error()))
		logging.WarnWithContext(c.logger, "roster fetch failed", "roster_fetch_failed",
			logging.String(logging.FieldMeetingID, meetingID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run asamblea refresh"),
			logging.String(logging.FieldImpact, "roster shows the previous snapshot"),
		)
		return refreshOutcome{err: err}
	}
	if c.meeting == nil || c.meeting.ID != meetingID {
		return refreshOutcome{err: errors.New("meeting changed during roster fetch")}
	}
	c.roster.Replace(entries)
	c.rosterAt = c.clock.Now()
	c.logger.Info("roster loaded",
		logging.String(logging.FieldEventType, "roster_loaded"),
		logging.Int("entries", c.roster.Len()),
	)
	return refreshOutcome{count: c.roster.Len()}
}

type registrationOutcome struct {
	result     attendance.Result
	suppressed bool
}

// register issues a scan or manual registration off the loop.
func (c *Console) register(meetingID, identifier string, call func(ctx context.Context) attendance.Result, reply chan<- registrationOutcome) {
	go func() {
		var res attendance.Result
		_ = c.remote(c.baseCtx, journal.KindRegister, meetingID, identifier, func(ctx context.Context) (string, error) {
			res = call(ctx)
			return res.Message, res.Err
		})
		c.post(func() {
			c.registered(res)
			if reply != nil {
				reply <- registrationOutcome{result: res}
			}
		})
	}()
}

func (c *Console) registered(res attendance.Result) {
	if !res.OK {
		c.notify(LevelError, res.Identifier+": "+res.Message)
		c.publish(notifications.EventRegistrationFailed, notifications.Payload{
			"identifier": res.Identifier,
			"message":    res.Message,
		})
		return
	}
	if !res.ApplyTo(c.roster) {
		c.logger.Debug("registered member not on local roster",
			logging.String(logging.FieldMemberID, res.Entry.MemberID),
		)
	}
	c.notify(LevelInfo, res.Message)
	c.publish(notifications.EventRegistered, notifications.Payload{
		"member": res.Entry.FullName(),
		"status": string(res.Entry.Status),
		"source": string(res.Source),
	})
}
