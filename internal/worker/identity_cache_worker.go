package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/user-api/internal/events"
)

// IdentityInvalidator drops cached identities.
type IdentityInvalidator interface {
	Invalidate(ctx context.Context, usernames ...string) error
}

// StartIdentityCacheWorker evicts cached identities whenever a user changes or is removed,
// so a role change or deletion is seen by the next authenticated request.
func StartIdentityCacheWorker(dispatcher events.Dispatcher, cache IdentityInvalidator, logger *zap.Logger) {
	if dispatcher == nil || cache == nil {
		return
	}
	handler := func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.UserChangedPayload)
		if !ok {
			return nil
		}
		if err := cache.Invalidate(ctx, payload.Username, payload.PreviousUsername); err != nil {
			logger.Warn("identity cache invalidation failed",
				zap.String("event", string(event.Type)),
				zap.String("user_id", event.UserID),
				zap.Error(err),
			)
			return err
		}
		return nil
	}
	dispatcher.Subscribe(events.EventUserUpdated, handler)
	dispatcher.Subscribe(events.EventUserDeleted, handler)
}
