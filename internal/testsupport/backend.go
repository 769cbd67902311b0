package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// Member is one roster row held by FakeBackend.
type Member struct {
	ID            string `json:"member_id"`
	Name          string `json:"name"`
	LastName      string `json:"last_name"`
	Status        string `json:"status"`
	Justification string `json:"justification,omitempty"`
}

// RegisterCall records one POST /attendance/register body.
type RegisterCall struct {
	Identifier    string `json:"identifier"`
	MeetingID     string `json:"meeting_id"`
	Date          string `json:"date"`
	Status        string `json:"status,omitempty"`
	Justification string `json:"justification,omitempty"`
}

type failure struct {
	status  int
	message string
}

// FakeBackend is an in-memory committee backend served over httptest.
type FakeBackend struct {
	Server *httptest.Server

	mu            sync.Mutex
	meeting       map[string]any
	members       []Member
	phases        []string
	generated     []string
	registrations []RegisterCall
	rosterCalls   int
	failPhase     *failure
	failGenerate  *failure
	failRegister  map[string]failure
	hold          chan struct{}
}

// NewFakeBackend starts a backend with no meeting scheduled.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{failRegister: make(map[string]failure)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /meetings/today", f.handleToday)
	mux.HandleFunc("PUT /meetings/{id}/phase", f.handlePhase)
	mux.HandleFunc("POST /attendance/generate", f.handleGenerate)
	mux.HandleFunc("POST /attendance/register", f.handleRegister)
	mux.HandleFunc("GET /attendance/roster", f.handleRoster)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		f.Release()
		f.Server.Close()
	})
	return f
}

// URL returns the server base URL.
func (f *FakeBackend) URL() string { return f.Server.URL }

// SetMeeting schedules today's meeting. phase may be empty.
func (f *FakeBackend) SetMeeting(id string, start time.Time, phase string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meeting = map[string]any{
		"id":              id,
		"type":            "Ordinaria",
		"description":     "Asamblea mensual",
		"location":        "Salón comunal",
		"scheduled_start": start.Format(time.RFC3339),
		"phase":           phase,
	}
}

// SetRoster replaces the roster.
func (f *FakeBackend) SetRoster(members ...Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = append([]Member(nil), members...)
}

// FailPhase makes phase updates fail with status and message.
func (f *FakeBackend) FailPhase(status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPhase = &failure{status: status, message: message}
}

// FailGenerate makes roster generation fail with status and message.
func (f *FakeBackend) FailGenerate(status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGenerate = &failure{status: status, message: message}
}

// FailRegistration makes registration of identifier fail with status and message.
func (f *FakeBackend) FailRegistration(identifier string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRegister[identifier] = failure{status: status, message: message}
}

// Hold blocks every request until Release is called.
func (f *FakeBackend) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold == nil {
		f.hold = make(chan struct{})
	}
}

// Release unblocks requests parked by Hold.
func (f *FakeBackend) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold != nil {
		close(f.hold)
		f.hold = nil
	}
}

// Phases returns the phases written, in order.
func (f *FakeBackend) Phases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.phases...)
}

// Generated returns the meeting ids roster generation was requested for.
func (f *FakeBackend) Generated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.generated...)
}

// Registrations returns every register call received.
func (f *FakeBackend) Registrations() []RegisterCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RegisterCall(nil), f.registrations...)
}

// RosterCalls counts roster fetches.
func (f *FakeBackend) RosterCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rosterCalls
}

func (f *FakeBackend) wait(r *http.Request) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if hold == nil {
		return
	}
	select {
	case <-hold:
	case <-r.Context().Done():
	}
}

func (f *FakeBackend) handleToday(w http.ResponseWriter, r *http.Request) {
	f.wait(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meeting == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, f.meeting)
}

func (f *FakeBackend) handlePhase(w http.ResponseWriter, r *http.Request) {
	f.wait(r)
	var body struct {
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPhase != nil {
		writeJSON(w, f.failPhase.status, map[string]string{"message": f.failPhase.message})
		return
	}
	f.phases = append(f.phases, body.Phase)
	if f.meeting != nil {
		f.meeting["phase"] = body.Phase
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	f.wait(r)
	var body struct {
		MeetingID string `json:"meeting_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGenerate != nil {
		writeJSON(w, f.failGenerate.status, map[string]string{"message": f.failGenerate.message})
		return
	}
	f.generated = append(f.generated, body.MeetingID)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	f.wait(r)
	var call RegisterCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, call)

	if fail, ok := f.failRegister[call.Identifier]; ok {
		writeJSON(w, fail.status, map[string]string{"message": fail.message})
		return
	}
	for i := range f.members {
		if f.members[i].ID != call.Identifier {
			continue
		}
		status := strings.TrimSpace(call.Status)
		if status == "" {
			status = "PRESENTE"
		}
		f.members[i].Status = status
		f.members[i].Justification = call.Justification
		writeJSON(w, http.StatusOK, f.members[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Socio no encontrado"})
}

func (f *FakeBackend) handleRoster(w http.ResponseWriter, r *http.Request) {
	f.wait(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	members := f.members
	if members == nil {
		members = []Member{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": members})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
