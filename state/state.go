package state

import (
	"time"

	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/models"
	"github.com/wfunc/snaphunt/network"
)

const countdownTickInterval = time.Second

// Canonical state names, also used as the room status on the wire.
const (
	StateWaiting       = "waiting"
	StateCountdown     = "countdown"
	StateActive        = "active"
	StateBetweenRounds = "between_rounds"
	StateEnded         = "ended"
)

// State is one phase of a room's round lifecycle. Submission is split in two
// so the room can release its lock while the external recognizer verifies a
// claim: BeginSubmit takes the per-player in-flight token and returns the
// round target, CompleteSubmit releases the token and applies scoring.
type State interface {
	Name() string
	OnEnter()
	OnExit()
	BeginSubmit(playerID string, claim models.Claim) (target string, err error)
	CompleteSubmit(playerID string, claim models.Claim, matched bool) (models.ScoreResult, error)
	HandlePlayerChange()
}

// Machine holds a room's current state. It has no lock of its own: each room
// confines its machine behind the room lock.
type Machine struct {
	current State
}

func NewMachine(initial State) *Machine {
	machine := &Machine{current: initial}
	initial.OnEnter()
	return machine
}

func (m *Machine) Current() State {
	return m.current
}

func (m *Machine) Transition(next State) {
	m.current.OnExit()
	m.current = next
	next.OnEnter()
}

// baseState supplies the defaults: submissions are rejected outside Active,
// player-count changes are ignored.
type baseState struct {
	name string
	room RoomContext
}

func (s *baseState) Name() string { return s.name }
func (s *baseState) OnEnter()     {}
func (s *baseState) OnExit()      {}

func (s *baseState) BeginSubmit(playerID string, claim models.Claim) (string, error) {
	return "", ErrNotActive
}

func (s *baseState) CompleteSubmit(playerID string, claim models.Claim, matched bool) (models.ScoreResult, error) {
	return models.ScoreResult{}, ErrNotActive
}

func (s *baseState) HandlePlayerChange() {}

// --- waiting ---

// WaitingState is the idle phase: the room accepts joins and starts a
// countdown once the minimum player threshold is met.
type WaitingState struct {
	baseState
}

func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{baseState{name: StateWaiting, room: room}}
}

func (s *WaitingState) OnEnter() {
	s.evaluateStart()
}

func (s *WaitingState) HandlePlayerChange() {
	s.evaluateStart()
}

func (s *WaitingState) evaluateStart() {
	if len(s.room.Players()) >= s.room.Rules().MinPlayers {
		s.room.ChangeState(NewCountdownState(s.room))
	}
}

// --- countdown ---

type CountdownState struct {
	baseState
	remaining int
}

func NewCountdownState(room RoomContext) *CountdownState {
	return &CountdownState{baseState: baseState{name: StateCountdown, room: room}}
}

func (s *CountdownState) OnEnter() {
	s.remaining = s.room.Rules().CountdownSeconds
	logger.Log.Infof("room %s starting countdown from %d", s.room.ID(), s.remaining)
	s.room.Broadcast(network.MsgTypeGameStarting, models.GameStartingEvent{Countdown: s.remaining})
	s.armTick()
}

func (s *CountdownState) HandlePlayerChange() {
	// losing the quorum cancels the countdown
	if len(s.room.Players()) < s.room.Rules().MinPlayers {
		logger.Log.Infof("room %s countdown aborted, players below minimum", s.room.ID())
		s.room.ChangeState(NewWaitingState(s.room))
	}
}

func (s *CountdownState) armTick() {
	s.room.ArmTimer(countdownTickInterval, s.tick)
}

func (s *CountdownState) tick() {
	s.remaining--
	if s.remaining > 0 {
		s.room.Broadcast(network.MsgTypeCountdown, models.CountdownEvent{Countdown: s.remaining})
		s.armTick()
		return
	}
	s.startGame()
}

func (s *CountdownState) startGame() {
	players := s.room.Players()
	for _, p := range players {
		p.Score = 0
		p.Streak = 0
		p.RoundScores = nil
	}

	infos := make([]models.PlayerInfo, 0, len(players))
	for _, p := range players {
		infos = append(infos, p.Info())
	}
	s.room.Broadcast(network.MsgTypeGameStarted, models.GameStartedEvent{Round: 1, Players: infos})
	s.room.ChangeState(NewActiveState(s.room, 1))
}
