package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"asamblea/internal/logging"
)

// Source identifies what triggered a registration.
type Source string

const (
	SourceScan   Source = "scan"
	SourceManual Source = "manual"
)

// GenericFailureMessage is shown when the backend gives no usable explanation.
const GenericFailureMessage = "No se pudo registrar la asistencia"

// Registration is one call to the backend's register endpoint. Status and
// Justification are empty for scans, letting the backend decide on-time or late.
type Registration struct {
	Identifier    string `json:"identifier"`
	MeetingID     string `json:"meeting_id"`
	Date          string `json:"date"`
	Status        Status `json:"status,omitempty"`
	Justification string `json:"justification,omitempty"`
}

// Remote registers attendance with the backend.
type Remote interface {
	Register(ctx context.Context, reg Registration) (Entry, error)
}

// UserMessenger is implemented by errors that carry a message fit for the operator.
type UserMessenger interface {
	UserMessage() string
}

// Temporary is implemented by errors that may clear on a later attempt.
type Temporary interface {
	Temporary() bool
}

// RetryHint is appended to failure messages for temporary backend errors.
const RetryHint = "reintente en un momento"

// Mark is a manual presence toggle from the roster view.
type Mark struct {
	MemberID      string `json:"member_id"`
	Present       bool   `json:"present"`
	Status        Status `json:"status,omitempty"`
	Justification string `json:"justification,omitempty"`
}

// Requested returns the status and justification to send for the toggle.
// Toggling absent always sends AUSENTE with no justification.
func (m Mark) Requested() (Status, string, error) {
	if !m.Present {
		return StatusAbsent, "", nil
	}
	status := m.Status
	if status == "" {
		status = StatusPresent
	}
	if !status.Attending() {
		return "", "", fmt.Errorf("%w: %s cannot mark a member present", ErrInvalidStatus, status)
	}
	justification := ""
	if status == StatusJustified {
		justification = strings.TrimSpace(m.Justification)
	}
	return status, justification, nil
}

// Result is the outcome of one registration attempt.
type Result struct {
	Source     Source
	Identifier string
	Entry      Entry
	OK         bool
	Message    string
	Err        error
	Duration   time.Duration
	// Retryable is set when the backend failure was temporary. The registrar
	// still makes a single attempt; the operator decides whether to rescan.
	Retryable bool
}

// ApplyTo reconciles a successful result into the roster. Failed results
// leave the roster untouched. It reports whether a row changed.
func (res Result) ApplyTo(roster *Roster) bool {
	if !res.OK || roster == nil {
		return false
	}
	return roster.Apply(res.Entry)
}

// Registrar issues registration calls. Calls are attempted once; the next scan
// or toggle is the only retry.
type Registrar struct {
	remote Remote
	loc    *time.Location
	logger *slog.Logger
}

// NewRegistrar builds a registrar stamping dates in loc.
func NewRegistrar(remote Remote, loc *time.Location, logger *slog.Logger) *Registrar {
	if loc == nil {
		loc = time.Local
	}
	return &Registrar{remote: remote, loc: loc, logger: logging.NewComponentLogger(logger, "registrar")}
}

// DateStamp formats now as the registration date.
func (r *Registrar) DateStamp(now time.Time) string {
	return now.In(r.loc).Format(time.DateOnly)
}

// Scan registers a decoded credential.
func (r *Registrar) Scan(ctx context.Context, identifier, meetingID string, now time.Time) Result {
	reg := Registration{
		Identifier: strings.TrimSpace(identifier),
		MeetingID:  meetingID,
		Date:       r.DateStamp(now),
	}
	return r.do(ctx, SourceScan, reg, true)
}

// Mark registers a manual toggle. An invalid toggle fails without a remote call.
func (r *Registrar) Mark(ctx context.Context, mark Mark, meetingID string, now time.Time) Result {
	status, justification, err := mark.Requested()
	if err != nil {
		return Result{Source: SourceManual, Identifier: mark.MemberID, Message: err.Error(), Err: err}
	}
	reg := Registration{
		Identifier:    strings.TrimSpace(mark.MemberID),
		MeetingID:     meetingID,
		Date:          r.DateStamp(now),
		Status:        status,
		Justification: justification,
	}
	return r.do(ctx, SourceManual, reg, mark.Present)
}

func (r *Registrar) do(ctx context.Context, source Source, reg Registration, present bool) Result {
	res := Result{Source: source, Identifier: reg.Identifier}
	if r.remote == nil {
		res.Err = errors.New("registrar has no backend")
		res.Message = GenericFailureMessage
		return res
	}

	started := time.Now()
	entry, err := r.remote.Register(ctx, reg)
	res.Duration = time.Since(started)
	if err != nil {
		res.Err = err
		res.Message = UserMessage(err, GenericFailureMessage)
		if IsTemporary(err) {
			res.Retryable = true
			res.Message = fmt.Sprintf("%s (%s)", res.Message, RetryHint)
		}
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "attendance registration failed", "registration_failed",
			logging.String("source", string(source)),
			logging.String(logging.FieldIdentifier, reg.Identifier),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "scan again or mark the member manually"),
			logging.String(logging.FieldImpact, "roster row left unchanged"),
		)
		return res
	}

	if entry.MemberID == "" {
		entry.MemberID = reg.Identifier
	}
	if source == SourceManual {
		entry.Present = present
	}
	res.Entry = entry.Normalize()
	res.OK = true
	res.Message = fmt.Sprintf("%s: %s", displayName(res.Entry), res.Entry.Status)
	r.logger.Info("attendance registered",
		logging.String(logging.FieldEventType, "registration_ok"),
		logging.String("source", string(source)),
		logging.String(logging.FieldMemberID, res.Entry.MemberID),
		logging.String("status", string(res.Entry.Status)),
		logging.Duration("took", res.Duration),
	)
	return res
}

func displayName(e Entry) string {
	if name := e.FullName(); name != "" {
		return name
	}
	return e.MemberID
}

// IsTemporary reports whether err says a later attempt may succeed.
func IsTemporary(err error) bool {
	var t Temporary
	return errors.As(err, &t) && t.Temporary()
}

// UserMessage extracts an operator-facing message from err, or fallback.
func UserMessage(err error, fallback string) string {
	var um UserMessenger
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}
