package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"asamblea/internal/config"
)

const userAgent = "asamblea/0.1"

// Event identifies a console occurrence worth pushing.
type Event string

const (
	EventPhaseChanged       Event = "phase_changed"
	EventPhaseMirrorFailed  Event = "phase_mirror_failed"
	EventRosterGenerated    Event = "roster_generated"
	EventRosterFailed       Event = "roster_failed"
	EventRegistered         Event = "registered"
	EventRegistrationFailed Event = "registration_failed"
	EventCameraUnavailable  Event = "camera_unavailable"
	EventCameraAvailable    Event = "camera_available"
	EventError              Event = "error"
	EventTest               Event = "test"
)

// Payload carries event-specific fields.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case error:
		return strings.TrimSpace(typed.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		toggles:  cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventPhaseChanged, EventRosterGenerated:
		return n.toggles.Phase
	case EventRegistered:
		return n.toggles.Registration
	case EventCameraUnavailable, EventCameraAvailable:
		return n.toggles.Camera
	case EventPhaseMirrorFailed, EventRosterFailed, EventRegistrationFailed, EventError:
		return n.toggles.Errors
	case EventTest:
		return true
	default:
		return false
	}
}

func format(event Event, p Payload) (message, bool) {
	meetingTitle := p.str("meeting")
	if meetingTitle == "" {
		meetingTitle = "Asamblea"
	}
	switch event {
	case EventPhaseChanged:
		return message{
			title: "Asamblea - " + p.str("label"),
			body:  fmt.Sprintf("%s: %s", meetingTitle, p.str("label")),
			tags:  []string{"asamblea", "phase", strings.ToLower(p.str("phase"))},
		}, true
	case EventPhaseMirrorFailed:
		return message{
			title:    "Asamblea - Fase no sincronizada",
			body:     fmt.Sprintf("No se pudo registrar la fase %s: %s", p.str("phase"), p.str("error")),
			tags:     []string{"asamblea", "phase", "warning"},
			priority: "high",
		}, true
	case EventRosterGenerated:
		return message{
			title: "Asamblea - Lista generada",
			body:  fmt.Sprintf("Lista de asistencia generada para %s", meetingTitle),
			tags:  []string{"asamblea", "roster"},
		}, true
	case EventRosterFailed:
		return message{
			title:    "Asamblea - Lista no generada",
			body:     fmt.Sprintf("No se pudo generar la lista de asistencia: %s", p.str("error")),
			tags:     []string{"asamblea", "roster", "warning"},
			priority: "high",
		}, true
	case EventRegistered:
		return message{
			title: "Asamblea - Asistencia",
			body:  fmt.Sprintf("%s: %s", p.str("member"), p.str("status")),
			tags:  []string{"asamblea", "attendance", p.str("source")},
		}, true
	case EventRegistrationFailed:
		return message{
			title: "Asamblea - Registro fallido",
			body:  fmt.Sprintf("%s: %s", p.str("identifier"), p.str("message")),
			tags:  []string{"asamblea", "attendance", "warning"},
		}, true
	case EventCameraUnavailable:
		return message{
			title: "Asamblea - Sin cámara",
			body:  fmt.Sprintf("Registro manual solamente: %s", p.str("reason")),
			tags:  []string{"asamblea", "camera", "warning"},
		}, true
	case EventCameraAvailable:
		return message{
			title: "Asamblea - Cámara lista",
			body:  fmt.Sprintf("Escáner activo en %s", p.str("device")),
			tags:  []string{"asamblea", "camera"},
		}, true
	case EventError:
		body := "Error"
		if label := p.str("context"); label != "" {
			body += " en " + label
		}
		errText := p.str("error")
		if errText == "" {
			errText = "desconocido"
		}
		return message{
			title:    "Asamblea - Error",
			body:     body + ": " + errText,
			tags:     []string{"asamblea", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Asamblea - Prueba",
			body:     "Prueba del sistema de notificaciones",
			tags:     []string{"asamblea", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if tags := compactTags(msg.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func compactTags(tags []string) []string {
	out := tags[:0:0]
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
