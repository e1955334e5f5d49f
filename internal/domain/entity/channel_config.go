package entity

import "time"

// Connection statuses
const (
	ConnectionPending   = "pending"
	ConnectionConnected = "connected"
	ConnectionError     = "error"
	ConnectionSuspended = "suspended"
)

// Sync data kinds
const (
	SyncKindAvailability = "availability"
	SyncKindRates        = "rates"
	SyncKindRestrictions = "restrictions"
	SyncKindBookings     = "bookings"
)

// Sync directions
const (
	DirectionInbound       = "inbound"
	DirectionOutbound      = "outbound"
	DirectionBidirectional = "bidirectional"
)

// Inbound conflict resolution policies
const (
	PolicyManualReview = "manual_review"
	PolicyLocalWins    = "local_wins"
	PolicyRemoteWins   = "remote_wins"
)

// ChannelCredentials is what the remote client needs to authenticate
type ChannelCredentials struct {
	APIKey       string
	PropertyCode string
}

// ChannelConfiguration is the per-property connection to a channel manager
type ChannelConfiguration struct {
	ID          uint
	TenantID    string
	PropertyID  string
	ChannelCode string // e.g. "wubook"

	APIKey       string
	PropertyCode string

	ConnectionStatus string
	IsActive         bool

	SyncAvailability bool
	SyncRates        bool
	SyncRestrictions bool
	SyncBookings     bool

	SyncIntervalMinutes int

	// RoomMappings maps channel room codes to internal room ids
	RoomMappings map[string]string
	// ConflictPolicies maps a sync kind to its inbound conflict policy
	ConflictPolicies map[string]string
	// Extra holds channel-specific passthrough settings we do not interpret
	Extra map[string]string

	LastSyncAt      *time.Time
	LastSyncMessage string
	ErrorCount      int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsReady reports whether the configuration can be used for sync
func (c *ChannelConfiguration) IsReady() bool {
	return c.IsActive &&
		c.ConnectionStatus == ConnectionConnected &&
		c.APIKey != "" &&
		c.PropertyCode != ""
}

// NeedsSync reports whether the sync interval has elapsed. A configuration
// that has never synced always needs one.
func (c *ChannelConfiguration) NeedsSync(now time.Time) bool {
	if c.LastSyncAt == nil {
		return true
	}
	interval := time.Duration(c.SyncIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	return now.Sub(*c.LastSyncAt) >= interval
}

// HasErrors reports whether the configuration accumulated sync errors
func (c *ChannelConfiguration) HasErrors() bool {
	return c.ErrorCount > 0
}

// KindEnabled reports whether a sync data kind is toggled on
func (c *ChannelConfiguration) KindEnabled(kind string) bool {
	switch kind {
	case SyncKindAvailability:
		return c.SyncAvailability
	case SyncKindRates:
		return c.SyncRates
	case SyncKindRestrictions:
		return c.SyncRestrictions
	case SyncKindBookings:
		return c.SyncBookings
	}
	return false
}

// EnabledKinds lists the toggled-on sync data kinds in a stable order
func (c *ChannelConfiguration) EnabledKinds() []string {
	kinds := make([]string, 0, 4)
	for _, k := range []string{SyncKindAvailability, SyncKindRates, SyncKindRestrictions, SyncKindBookings} {
		if c.KindEnabled(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// ConflictPolicyFor returns the inbound conflict policy for a data kind.
// Rates default to remote_wins since the channel is the distribution master
// for OTA rates; everything else defaults to manual review.
func (c *ChannelConfiguration) ConflictPolicyFor(kind string) string {
	if p, ok := c.ConflictPolicies[kind]; ok {
		switch p {
		case PolicyManualReview, PolicyLocalWins, PolicyRemoteWins:
			return p
		}
	}
	if kind == SyncKindRates {
		return PolicyRemoteWins
	}
	return PolicyManualReview
}

// Credentials extracts the key material handed to the remote client
func (c *ChannelConfiguration) Credentials() ChannelCredentials {
	return ChannelCredentials{APIKey: c.APIKey, PropertyCode: c.PropertyCode}
}

// RoomIDFor resolves a channel room code to the internal room id
func (c *ChannelConfiguration) RoomIDFor(code string) (string, bool) {
	id, ok := c.RoomMappings[code]
	return id, ok
}

// RoomCodeFor resolves an internal room id back to its channel code
func (c *ChannelConfiguration) RoomCodeFor(roomID string) (string, bool) {
	for code, id := range c.RoomMappings {
		if id == roomID {
			return code, true
		}
	}
	return "", false
}
