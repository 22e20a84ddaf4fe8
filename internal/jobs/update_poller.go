package jobs

import (
	"context"
	"time"

	"channelgate/internal/models"

	"go.uber.org/zap"
)

// UpdateSource is the slice of the platform client the poller consumes.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]models.Update, error)
}

// UpdateHandler processes one platform event. It must be idempotent, since
// the poller's cursor is process-local and restarts re-deliver history.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update models.Update) error
}

// UpdatePoller owns the event cursor. It is a single sequential worker:
// every event of a batch is dispatched in arrival order before the next
// long-poll, and a fetch failure retries after a fixed backoff without
// advancing the cursor.
type UpdatePoller struct {
	source         UpdateSource
	handler        UpdateHandler
	logger         *zap.Logger
	timeoutSeconds int
	retryBackoff   time.Duration

	lastUpdateID int64
}

func NewUpdatePoller(source UpdateSource, handler UpdateHandler, timeoutSeconds int, retryBackoff time.Duration, logger *zap.Logger) *UpdatePoller {
	return &UpdatePoller{
		source:         source,
		handler:        handler,
		logger:         logger,
		timeoutSeconds: timeoutSeconds,
		retryBackoff:   retryBackoff,
	}
}

// Run polls until ctx is cancelled. It never terminates on a processing
// error: an unprocessable event is logged and the loop moves on.
func (p *UpdatePoller) Run(ctx context.Context) {
	p.logger.Info("update poller started", zap.Int("long_poll_seconds", p.timeoutSeconds))

	for {
		if ctx.Err() != nil {
			p.logger.Info("update poller stopped")
			return
		}

		updates, err := p.source.GetUpdates(ctx, p.lastUpdateID+1, p.timeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("update poller stopped")
				return
			}
			p.logger.Warn("fetching updates failed; retrying", zap.Error(err))
			select {
			case <-time.After(p.retryBackoff):
			case <-ctx.Done():
				p.logger.Info("update poller stopped")
				return
			}
			continue
		}

		for _, update := range updates {
			p.lastUpdateID = update.UpdateID
			if err := p.handler.HandleUpdate(ctx, update); err != nil {
				p.logger.Warn("event processing failed",
					zap.Int64("update_id", update.UpdateID),
					zap.Error(err))
			}
		}
	}
}
