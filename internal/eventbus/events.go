package eventbus

import "time"

// Pipeline event types.
const (
	CastingReceived   = "casting.received"
	CastingIgnored    = "casting.ignored"    // Data: Ignored
	CastingDuplicate  = "casting.duplicate"  // Data: Stage
	CastingFormatted  = "casting.formatted"  // Data: Formatted
	CastingDone       = "casting.done"       // Data: Stage
	DeliveryBroadcast = "delivery.broadcast" // Data: Delivery
	DeliveryPersonal  = "delivery.personal"  // Data: Delivery
)

// Ignored says why a casting left the pipeline early.
type Ignored struct {
	RunID  string
	Reason string
}

type Stage struct {
	RunID string
	Took  time.Duration
}

type Formatted struct {
	RunID    string
	Outcome  string
	Attempts int
}

// Delivery reports one destination. Tier is the fallback tier that
// succeeded (0 when every tier failed).
type Delivery struct {
	RunID  string
	ChatID int64
	Tier   int
	Mode   string
	Err    string
	Took   time.Duration
}
