package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
)

type Counter interface {
	CountAccountsByRole(ctx context.Context, role domain.Role) (int64, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, update domain.StudentCountUpdate) error
}

// Notifier recomputes the student count after account changes and hands it to a Broadcaster.
type Notifier struct {
	counter     Counter
	broadcaster Broadcaster
	logger      *slog.Logger
	now         func() time.Time
}

func NewNotifier(counter Counter, broadcaster Broadcaster, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		counter:     counter,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// Current returns the present student count, stamped with the current time.
func (n *Notifier) Current(ctx context.Context) (domain.StudentCountUpdate, error) {
	count, err := n.counter.CountAccountsByRole(ctx, domain.RoleStudent)
	if err != nil {
		return domain.StudentCountUpdate{}, fmt.Errorf("count students: %w", err)
	}
	return domain.StudentCountUpdate{Count: count, Timestamp: n.now().UTC()}, nil
}

// StudentCountChanged is best-effort: failures are logged and never reach the caller.
func (n *Notifier) StudentCountChanged(ctx context.Context) {
	update, err := n.Current(ctx)
	if err != nil {
		n.logger.Error("failed to refresh student count", "error", err)
		return
	}

	if err := n.broadcaster.Broadcast(ctx, update); err != nil {
		n.logger.Error("failed to broadcast student count", "count", update.Count, "error", err)
		return
	}
	n.logger.Debug("student count broadcast", "count", update.Count)
}
