package metrics

import "sync/atomic"

// Counters tracks server-wide activity for monitoring and debugging.
// All methods are safe for concurrent use.
type Counters struct {
	ConnectionsOpened   int64
	ConnectionsClosed   int64
	Joins               int64
	JoinsRejected       int64
	MovesAccepted       int64
	MovesRejected       int64
	ChatsRelayed        int64
	SignalsRelayed      int64
	SignalsDropped      int64
	EventsDropped       int64
	RateLimited         int64
	PersistenceFailures int64
}

// New returns zeroed counters.
func New() *Counters {
	return &Counters{}
}

func (c *Counters) IncConnectionsOpened()   { atomic.AddInt64(&c.ConnectionsOpened, 1) }
func (c *Counters) IncConnectionsClosed()   { atomic.AddInt64(&c.ConnectionsClosed, 1) }
func (c *Counters) IncJoins()               { atomic.AddInt64(&c.Joins, 1) }
func (c *Counters) IncJoinsRejected()       { atomic.AddInt64(&c.JoinsRejected, 1) }
func (c *Counters) IncMovesAccepted()       { atomic.AddInt64(&c.MovesAccepted, 1) }
func (c *Counters) IncMovesRejected()       { atomic.AddInt64(&c.MovesRejected, 1) }
func (c *Counters) IncChatsRelayed()        { atomic.AddInt64(&c.ChatsRelayed, 1) }
func (c *Counters) IncSignalsRelayed()      { atomic.AddInt64(&c.SignalsRelayed, 1) }
func (c *Counters) IncSignalsDropped()      { atomic.AddInt64(&c.SignalsDropped, 1) }
func (c *Counters) IncEventsDropped()       { atomic.AddInt64(&c.EventsDropped, 1) }
func (c *Counters) IncRateLimited()         { atomic.AddInt64(&c.RateLimited, 1) }
func (c *Counters) IncPersistenceFailures() { atomic.AddInt64(&c.PersistenceFailures, 1) }

// Snapshot returns a read-only copy suitable for HTTP output.
func (c *Counters) Snapshot() map[string]int64 {
	opened := atomic.LoadInt64(&c.ConnectionsOpened)
	closed := atomic.LoadInt64(&c.ConnectionsClosed)
	return map[string]int64{
		"connections_opened":   opened,
		"connections_closed":   closed,
		"connections_active":   opened - closed,
		"joins":                atomic.LoadInt64(&c.Joins),
		"joins_rejected":       atomic.LoadInt64(&c.JoinsRejected),
		"moves_accepted":       atomic.LoadInt64(&c.MovesAccepted),
		"moves_rejected":       atomic.LoadInt64(&c.MovesRejected),
		"chats_relayed":        atomic.LoadInt64(&c.ChatsRelayed),
		"signals_relayed":      atomic.LoadInt64(&c.SignalsRelayed),
		"signals_dropped":      atomic.LoadInt64(&c.SignalsDropped),
		"events_dropped":       atomic.LoadInt64(&c.EventsDropped),
		"rate_limited":         atomic.LoadInt64(&c.RateLimited),
		"persistence_failures": atomic.LoadInt64(&c.PersistenceFailures),
	}
}
