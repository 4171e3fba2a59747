package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// defaultAlertWindow suppresses repeats of the same alert. Health
// checks run every few minutes, so without a window a stuck source
// would page on every tick.
const defaultAlertWindow = 6 * time.Hour

// Throttled wraps a Notifier and drops duplicate alerts inside a time
// window, keyed by alert title+message. Briefings pass through
// untouched. When redis is unreachable the alert is sent anyway:
// losing dedup beats losing the alert.
type Throttled struct {
	next   ports.Notifier
	rdb    *redis.Client
	window time.Duration
	logger *slog.Logger
}

var _ ports.Notifier = (*Throttled)(nil)

// NewThrottled wraps next with a redis-backed alert window. A zero
// window uses the default.
func NewThrottled(next ports.Notifier, rdb *redis.Client, window time.Duration, logger *slog.Logger) *Throttled {
	if window <= 0 {
		window = defaultAlertWindow
	}
	return &Throttled{next: next, rdb: rdb, window: window, logger: logger}
}

// SendBriefing delegates without throttling.
func (t *Throttled) SendBriefing(ctx context.Context, briefing *domain.Briefing) error {
	return t.next.SendBriefing(ctx, briefing)
}

// SendAlert delivers the alert unless an identical one was sent inside
// the window.
func (t *Throttled) SendAlert(ctx context.Context, title, message string) error {
	if t.rdb != nil {
		key := alertKey(title, message)
		set, err := t.rdb.SetNX(ctx, key, 1, t.window).Result()
		if err == nil && !set {
			if t.logger != nil {
				t.logger.Debug("duplicate alert suppressed", "title", title)
			}
			return nil
		}
		if err != nil && t.logger != nil {
			t.logger.Warn("alert throttle unavailable, sending anyway", "error", err)
		}
	}
	return t.next.SendAlert(ctx, title, message)
}

func alertKey(title, message string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + message))
	return "alert:" + hex.EncodeToString(sum[:8])
}
