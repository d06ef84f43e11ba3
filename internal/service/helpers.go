package service

import (
	"context"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/logger"
)

// now is the service clock. Stored timestamps keep whole seconds, so the
// clock does too; an entity read back equals the one that was written.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// checkVersion fails with ErrConflict when the caller's expected version is
// stale. Zero skips the check.
func checkVersion(entity, id string, expected, actual int) error {
	if expected != 0 && expected != actual {
		return domain.Errorf(domain.ErrConflict, "%s %s is at version %d, not %d", entity, id, actual, expected)
	}
	return nil
}

// checkVisible allows the contract's parties and the system to read it.
func checkVisible(actor domain.Actor, c *domain.Contract) error {
	if actor.Role == domain.RoleSystem {
		return nil
	}
	if actor.UserID == "" || c.PartyRole(actor.UserID) != actor.Role {
		return domain.Errorf(domain.ErrAuthorization, "user %s is not a party to contract %s", actor.UserID, c.ID)
	}
	return nil
}

func publisherOrNoop(p events.Publisher) events.Publisher {
	if p == nil {
		return events.NoopPublisher{}
	}
	return p
}

// publishAll sends committed events. Delivery failures are logged; the
// change itself already happened.
func publishAll(ctx context.Context, pub events.Publisher, evs []events.Event) {
	for _, e := range evs {
		if err := pub.Publish(ctx, e); err != nil {
			logger.Warn(ctx, "publishing lifecycle event",
				"event_type", string(e.Type),
				"contract_id", e.ContractID,
				"error", err,
			)
		}
	}
}

func actorFields(actor domain.Actor, kv ...any) map[string]any {
	fields := map[string]any{
		"actor_id":   actor.UserID,
		"actor_role": string(actor.Role),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	return fields
}
