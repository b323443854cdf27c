package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/pkg/logger"
)

// Notifier dispatches push notifications. Fire and forget: failures are
// logged by implementations and never propagate to the triggering operation.
type Notifier interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, title, body string, data map[string]string)
}

type logNotifier struct {
	log logger.Logger
}

// NewLogNotifier returns a Notifier that only records the dispatch. The real
// push transport lives outside this service.
func NewLogNotifier(log logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) Notify(ctx context.Context, userIDs []uuid.UUID, title, body string, data map[string]string) {
	n.log.Info("notification dispatched", "recipients", len(userIDs), "title", title)
}
