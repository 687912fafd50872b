package chat

import "time"

// Role is the sender's standing within a channel, as reported by the chat
// gateway. Roles are ordered: higher roles imply every lower role's
// privileges.
type Role int

const (
	RoleViewer Role = iota
	RoleSubscriber
	RoleVIP
	RoleModerator
	RoleBroadcaster
)

func (r Role) String() string {
	switch r {
	case RoleSubscriber:
		return "subscriber"
	case RoleVIP:
		return "vip"
	case RoleModerator:
		return "moderator"
	case RoleBroadcaster:
		return "broadcaster"
	default:
		return "viewer"
	}
}

// AtLeast reports whether the role grants the privileges of `min`.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// Message is one chat line as delivered by the gateway. Immutable after
// construction.
type Message struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	Subscriber  bool `json:"subscriber"`
	VIP         bool `json:"vip"`
	Moderator   bool `json:"moderator"`
	Broadcaster bool `json:"broadcaster"`
}

// Role collapses the gateway's flag set to the highest applicable role.
func (m *Message) Role() Role {
	switch {
	case m.Broadcaster:
		return RoleBroadcaster
	case m.Moderator:
		return RoleModerator
	case m.VIP:
		return RoleVIP
	case m.Subscriber:
		return RoleSubscriber
	default:
		return RoleViewer
	}
}

// Hydrate fills defensively-normalized defaults for fields the gateway may
// omit: a zero timestamp becomes now, an empty username falls back to the
// user id.
func (m *Message) Hydrate(now time.Time) {
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	if m.Username == "" {
		m.Username = m.UserID
	}
}
