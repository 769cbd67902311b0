package console

import (
	"context"
	"time"

	"asamblea/internal/logging"
	"asamblea/internal/notifications"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is a transient message for the operator.
type Notice struct {
	At      time.Time `json:"at"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

const maxNotices = 50

// notify appends a notice. Loop only.
func (c *Console) notify(level Level, msg string) {
	n := Notice{At: c.clock.Now(), Level: level, Message: msg}
	c.notices = append(c.notices, n)
	if over := len(c.notices) - maxNotices; over > 0 {
		c.notices = append(c.notices[:0:0], c.notices[over:]...)
	}
	c.logger.Info("notice",
		logging.String(logging.FieldEventType, "notice"),
		logging.String("level", string(level)),
		logging.String("message", msg),
	)
}

func (c *Console) recentNotices(n int) []Notice {
	if n <= 0 || n > len(c.notices) {
		n = len(c.notices)
	}
	out := make([]Notice, n)
	copy(out, c.notices[len(c.notices)-n:])
	return out
}

// publish pushes an event without blocking the loop.
func (c *Console) publish(event notifications.Event, payload notifications.Payload) {
	if c.notifier == nil {
		return
	}
	if c.meeting != nil {
		if payload == nil {
			payload = notifications.Payload{}
		}
		if _, ok := payload["meeting"]; !ok {
			payload["meeting"] = c.meeting.Title()
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(c.baseCtx, 15*time.Second)
		defer cancel()
		if err := c.notifier.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(c.logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "phone notification not delivered"),
			)
		}
	}()
}
