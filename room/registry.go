// room/registry.go
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/wfunc/snaphunt/config"
	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/models"
	"github.com/wfunc/snaphunt/state"
	"github.com/wfunc/snaphunt/timer"
)

// Registry owns every live room. It is an instance, not ambient state, so
// tests can run isolated registries side by side.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	order []string // creation order, for oldest-first joinable scans

	rules       config.GameConfig
	clock       clockwork.Clock
	sched       *timer.Scheduler
	broadcaster Broadcaster
	items       ItemSource
	matcher     Matcher
}

func NewRegistry(rules config.GameConfig, clock clockwork.Clock, sched *timer.Scheduler,
	broadcaster Broadcaster, items ItemSource, matcher Matcher) *Registry {

	return &Registry{
		rooms:       make(map[string]*Room),
		rules:       rules,
		clock:       clock,
		sched:       sched,
		broadcaster: broadcaster,
		items:       items,
		matcher:     matcher,
	}
}

func (reg *Registry) CreateRoom() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	id := uuid.New().String()
	r := NewRoom(id, reg.rules, reg.clock, reg.sched, reg.broadcaster, reg.items, reg.matcher)
	reg.rooms[id] = r
	reg.order = append(reg.order, id)
	logger.Log.Infof("room %s created", id)
	return r
}

func (reg *Registry) GetRoom(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, exists := reg.rooms[id]
	return r, exists
}

// FindJoinable returns the oldest room that can take another player: not
// mid-round and below capacity. Nil when every room is closed to joins.
func (reg *Registry) FindJoinable() *Room {
	reg.mu.RLock()
	candidates := make([]*Room, 0, len(reg.order))
	for _, id := range reg.order {
		if r, ok := reg.rooms[id]; ok {
			candidates = append(candidates, r)
		}
	}
	reg.mu.RUnlock()

	for _, r := range candidates {
		if r.Joinable() {
			return r
		}
	}
	return nil
}

// JoinRoom adds the player and lets the room's state machine decide whether
// the start threshold is now met.
func (reg *Registry) JoinRoom(roomID string, p *models.Player) (*Room, error) {
	r, exists := reg.GetRoom(roomID)
	if !exists {
		return nil, ErrRoomNotFound
	}
	if err := r.AddPlayer(p); err != nil {
		return nil, err
	}
	return r, nil
}

// LeaveRoom removes the player and destroys the room once it empties.
func (reg *Registry) LeaveRoom(roomID, playerID string) int {
	r, exists := reg.GetRoom(roomID)
	if !exists {
		return 0
	}
	remaining, removed := r.RemovePlayer(playerID)
	if removed && remaining == 0 {
		reg.removeRoom(roomID)
	}
	return remaining
}

func (reg *Registry) removeRoom(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, exists := reg.rooms[id]
	if !exists {
		return
	}
	r.Close()
	delete(reg.rooms, id)
	for i, oid := range reg.order {
		if oid == id {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
	logger.Log.Infof("room %s destroyed", id)
}

// ReapInactive destroys rooms that sat non-Active past maxIdle. The scan is
// best-effort over a snapshot: a room joined mid-scan may be skipped until
// the next pass, which is fine on a periodic cadence.
func (reg *Registry) ReapInactive(maxIdle time.Duration) int {
	reg.mu.RLock()
	ids := append([]string(nil), reg.order...)
	reg.mu.RUnlock()

	reaped := 0
	for _, id := range ids {
		r, exists := reg.GetRoom(id)
		if !exists {
			continue
		}
		if r.IdleFor(maxIdle) {
			logger.Log.Infof("room %s reaped after idling", id)
			reg.removeRoom(id)
			reaped++
		}
	}
	return reaped
}

// Counts reports total rooms and how many are mid-round, for the status
// surface.
func (reg *Registry) Counts() (total, active int) {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	for _, r := range rooms {
		if r.Status() == state.StateActive {
			active++
		}
	}
	return len(rooms), active
}
