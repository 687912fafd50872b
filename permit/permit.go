// Package permit manages short-lived link-filter exemptions. A grant is
// consumed by at most one message: concurrent messages from the same user
// race for the grant and exactly one wins.
package permit

import (
	"context"
	"time"
)

// Store is the repository interface for permit grants.
type Store interface {
	// Grant creates or refreshes a permit for the user. A second grant
	// before consumption just extends the expiry.
	Grant(ctx context.Context, channel, userID, grantedBy string, ttl time.Duration) error
	// Consume atomically takes the grant if one is active. Returns true for
	// exactly one caller; every other concurrent caller sees false.
	Consume(ctx context.Context, channel, userID string) (bool, error)
	// Active reports whether an unexpired, unconsumed grant exists, without
	// consuming it.
	Active(ctx context.Context, channel, userID string) (bool, error)
}
