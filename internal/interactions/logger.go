package interactions

import (
	"context"

	"github.com/clinicasanmiguel/riley/pkg/logging"
)

// Logger records interactions best-effort. A failed append gets one local
// retry; after that the loss is logged operationally and the surrounding
// operation continues. Conversation flow never fails because the audit row
// did.
type Logger struct {
	store  Store
	logger *logging.Logger
}

func NewLogger(store Store, logger *logging.Logger) *Logger {
	if store == nil {
		panic("interactions: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Logger{store: store, logger: logger}
}

func (l *Logger) Log(ctx context.Context, rec *Interaction) {
	if err := l.store.Append(ctx, rec); err == nil {
		return
	}
	if err := l.store.Append(ctx, rec); err != nil {
		l.logger.Warn("interaction log dropped",
			"channel", rec.Channel,
			"direction", rec.Direction,
			"session_id", rec.SessionID,
			"error", err,
		)
	}
}
