// recovery/recovery.go
package recovery

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/snaphunt/models"
)

// Record is a disconnected player's state, keyed by the connection id it had
// when it dropped.
type Record struct {
	PriorID   string
	RoomID    string
	Player    models.Player
	ExpiresAt time.Time
}

// Cache holds records for a fixed TTL so a player who reconnects inside the
// grace window gets their score back. Take consumes: a record can be used at
// most once. Expired records are inert even before Sweep runs.
type Cache struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	records map[string]Record
}

func NewCache(clock clockwork.Clock, ttl time.Duration) *Cache {
	return &Cache{
		clock:   clock,
		ttl:     ttl,
		records: make(map[string]Record),
	}
}

// Put stores a snapshot under the player's prior connection id, replacing any
// earlier record for the same id.
func (c *Cache) Put(priorID, roomID string, snapshot models.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[priorID] = Record{
		PriorID:   priorID,
		RoomID:    roomID,
		Player:    snapshot.Clone(),
		ExpiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Take retrieves and removes in one step. A miss is returned for unknown and
// for expired ids alike.
func (c *Cache) Take(priorID string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[priorID]
	if !ok {
		return Record{}, false
	}
	delete(c.records, priorID)

	if !c.clock.Now().Before(rec.ExpiresAt) {
		return Record{}, false
	}
	return rec, true
}

// Sweep drops expired records; called periodically to bound memory.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for id, rec := range c.records {
		if !now.Before(rec.ExpiresAt) {
			delete(c.records, id)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
