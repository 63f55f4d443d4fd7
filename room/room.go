// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/snaphunt/config"
	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/models"
	"github.com/wfunc/snaphunt/network"
	"github.com/wfunc/snaphunt/state"
	"github.com/wfunc/snaphunt/timer"
)

var (
	ErrRoomFull           = errors.New("room full")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomClosed         = errors.New("room closed")
	ErrGameNotRecoverable = errors.New("no game in progress to recover into")
)

// Room is one independent game. All mutation happens under mu: inbound
// events, player changes and fired timers are serialized, which is what lets
// the state machine run lock-free.
type Room struct {
	id        string
	createdAt time.Time

	mu             sync.Mutex
	players        []*models.Player
	machine        *state.Machine
	round          int
	target         string
	roundStartedAt time.Time
	lastActivity   time.Time
	destroyed      bool

	// at most one armed timer; arming replaces, transitions cancel
	timerHandle *timer.Handle
	timerGen    uint64

	rules       config.GameConfig
	clock       clockwork.Clock
	sched       *timer.Scheduler
	broadcaster Broadcaster
	items       ItemSource
	matcher     Matcher
}

func NewRoom(id string, rules config.GameConfig, clock clockwork.Clock, sched *timer.Scheduler,
	broadcaster Broadcaster, items ItemSource, matcher Matcher) *Room {

	r := &Room{
		id:           id,
		createdAt:    clock.Now(),
		lastActivity: clock.Now(),
		rules:        rules,
		clock:        clock,
		sched:        sched,
		broadcaster:  broadcaster,
		items:        items,
		matcher:      matcher,
	}
	r.machine = state.NewMachine(state.NewWaitingState(r))
	return r
}

// --- state.RoomContext; every method below runs with mu held ---

func (r *Room) ID() string               { return r.id }
func (r *Room) Rules() config.GameConfig { return r.rules }
func (r *Room) Now() time.Time           { return r.clock.Now() }

func (r *Room) Players() []*models.Player {
	players := make([]*models.Player, len(r.players))
	copy(players, r.players)
	return players
}

func (r *Room) GetPlayer(id string) (*models.Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) Round() int                { return r.round }
func (r *Room) SetRound(n int)            { r.round = n }
func (r *Room) Target() string            { return r.target }
func (r *Room) SetTarget(target string)   { r.target = target }
func (r *Room) RoundStartedAt() time.Time { return r.roundStartedAt }
func (r *Room) MarkRoundStarted()         { r.roundStartedAt = r.clock.Now() }

func (r *Room) NextTarget(round int) string {
	return r.items.NextTarget(round)
}

// ArmTimer replaces the room's armed timer. The callback re-locks the room
// and is dropped if the room transitioned or died while it was in flight,
// so a stale timer can never fire against since-reset state.
func (r *Room) ArmTimer(d time.Duration, fn func()) {
	r.cancelTimerLocked()
	r.timerGen++
	gen := r.timerGen
	r.timerHandle = r.sched.Schedule(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.destroyed || r.timerGen != gen {
			return
		}
		fn()
	})
}

func (r *Room) Broadcast(msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("room %s: failed to encode event %d: %v", r.id, msgID, err)
		return
	}
	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.ID)
	}
	r.broadcaster.BroadcastToPlayers(ids, msgID, data)
}

func (r *Room) ChangeState(next state.State) {
	r.cancelTimerLocked()
	r.machine.Transition(next)
}

func (r *Room) cancelTimerLocked() {
	if r.timerHandle != nil {
		r.timerHandle.Cancel()
		r.timerHandle = nil
	}
	r.timerGen++
}

// --- public API; each entry point takes the lock ---

func (r *Room) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.machine.Current().Name()
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Joinable reports whether a join attempt may target this room: not
// destroyed, not mid-round, below capacity.
func (r *Room) Joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.destroyed &&
		r.machine.Current().Name() != state.StateActive &&
		len(r.players) < r.rules.MaxPlayers
}

// AddPlayer appends in join order, announces the join and lets the current
// state re-evaluate the start threshold.
func (r *Room) AddPlayer(p *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrRoomNotFound
	}
	if len(r.players) >= r.rules.MaxPlayers {
		return ErrRoomFull
	}
	if _, exists := r.GetPlayer(p.ID); exists {
		logger.Log.Warnf("room %s: player %s joined twice, ignoring", r.id, p.ID)
		return nil
	}

	if p.JoinedAt.IsZero() {
		p.JoinedAt = r.clock.Now()
	}
	r.players = append(r.players, p)
	r.lastActivity = r.clock.Now()

	r.Broadcast(network.MsgTypePlayerJoined, models.PlayerJoinedEvent{
		PlayerID:       p.ID,
		Name:           p.Name,
		CurrentPlayers: r.playerInfosLocked(),
	})
	r.machine.Current().HandlePlayerChange()
	return nil
}

// RemovePlayer drops the player, announces it and lets the current state
// react (a drop below the minimum mid-game forces the game to end).
func (r *Room) RemovePlayer(playerID string) (remaining int, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(r.players), false
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.lastActivity = r.clock.Now()

	r.Broadcast(network.MsgTypePlayerLeft, models.PlayerLeftEvent{
		PlayerID:         playerID,
		RemainingPlayers: len(r.players),
	})
	r.machine.Current().HandlePlayerChange()
	return len(r.players), true
}

// Submit runs a claim through the current state. The room lock is released
// while the matcher verifies the claim; the per-player in-flight token taken
// by BeginSubmit is what rejects a duplicate arriving in that gap.
func (r *Room) Submit(playerID string, claim models.Claim) (models.ScoreResult, error) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return models.ScoreResult{}, ErrRoomNotFound
	}
	r.lastActivity = r.clock.Now()

	current := r.machine.Current()
	target, err := current.BeginSubmit(playerID, claim)
	if err != nil {
		r.mu.Unlock()
		return models.ScoreResult{}, err
	}
	r.mu.Unlock()

	matched := claim.Confidence >= r.rules.ConfidenceFloor && r.matcher.Match(target, claim)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return models.ScoreResult{}, ErrRoomNotFound
	}
	if r.machine.Current() != current {
		// the round ended while the claim was being verified
		return models.ScoreResult{}, state.ErrNotActive
	}
	return current.CompleteSubmit(playerID, claim, matched)
}

// RestorePlayer puts a recovered snapshot back into the room under the new
// connection id, preserving score, streak and round history. Only meaningful
// while a game is in progress; otherwise the client should join normally.
func (r *Room) RestorePlayer(newID string, snapshot models.Player) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return nil, ErrRoomNotFound
	}
	switch r.machine.Current().Name() {
	case state.StateCountdown, state.StateActive, state.StateBetweenRounds:
	default:
		return nil, ErrGameNotRecoverable
	}

	restored := snapshot.Clone()
	restored.ID = newID

	if stale, ok := r.GetPlayer(snapshot.ID); ok {
		// disconnect cleanup has not run yet; swap in place
		*stale = restored
	} else {
		if len(r.players) >= r.rules.MaxPlayers {
			return nil, ErrRoomFull
		}
		r.players = append(r.players, &restored)
	}
	r.lastActivity = r.clock.Now()

	restoredRef, _ := r.GetPlayer(newID)
	r.Broadcast(network.MsgTypePlayerJoined, models.PlayerJoinedEvent{
		PlayerID:       newID,
		Name:           restored.Name,
		CurrentPlayers: r.playerInfosLocked(),
	})
	r.machine.Current().HandlePlayerChange()
	return restoredRef, nil
}

// PlayerSnapshot clones a player's current state, taken at disconnect time
// for the recovery cache.
func (r *Room) PlayerSnapshot(playerID string) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.GetPlayer(playerID)
	if !ok {
		return models.Player{}, false
	}
	return p.Clone(), true
}

// Snapshot renders the room for a freshly recovered client.
func (r *Room) Snapshot(playerID string) models.GameSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := models.GameSnapshot{
		PlayerID: playerID,
		RoomID:   r.id,
		State:    r.machine.Current().Name(),
		Round:    r.round,
		Players:  r.playerInfosLocked(),
	}
	if snap.State == state.StateActive {
		snap.TargetItem = r.target
		deadline := r.roundStartedAt.Add(r.rules.RoundDuration)
		if remaining := deadline.Sub(r.clock.Now()); remaining > 0 {
			snap.RemainingMs = remaining.Milliseconds()
		}
	}
	return snap
}

// IdleFor reports whether the room has been non-Active and untouched longer
// than maxIdle.
func (r *Room) IdleFor(maxIdle time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || r.machine.Current().Name() == state.StateActive {
		return false
	}
	return r.clock.Now().Sub(r.lastActivity) > maxIdle
}

// Close marks the room dead and disarms its timer. Safe to call twice.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = true
	r.cancelTimerLocked()
}

func (r *Room) playerInfosLocked() []models.PlayerInfo {
	infos := make([]models.PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		infos = append(infos, p.Info())
	}
	return infos
}
