// state/round_states.go
//
// The in-game states. Active owns the per-round submission bookkeeping;
// BetweenRounds decides whether the next round starts or the game ends;
// Ended resets the room back to Waiting so it can host another game.
package state

import (
	"time"

	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/models"
	"github.com/wfunc/snaphunt/network"
	"github.com/wfunc/snaphunt/scoring"
)

// Game-end reasons carried on the gameEnded event.
const (
	ReasonComplete            = "complete"
	ReasonInsufficientPlayers = "insufficient_players"
)

type verifiedEntry struct {
	points int
	at     time.Time
}

// ActiveState is one round in play. The round target, start time and round
// number live on the room; the per-round submission maps live here so they
// are discarded wholesale on every transition.
type ActiveState struct {
	baseState
	round    int
	inflight map[string]struct{}
	verified map[string]verifiedEntry
}

func NewActiveState(room RoomContext, round int) *ActiveState {
	return &ActiveState{
		baseState: baseState{name: StateActive, room: room},
		round:     round,
		inflight:  make(map[string]struct{}),
		verified:  make(map[string]verifiedEntry),
	}
}

func (s *ActiveState) OnEnter() {
	rules := s.room.Rules()
	target := s.room.NextTarget(s.round)

	s.room.SetRound(s.round)
	s.room.SetTarget(target)
	s.room.MarkRoundStarted()

	logger.Log.Infof("room %s round %d started, target %q", s.room.ID(), s.round, target)
	s.room.Broadcast(network.MsgTypeRoundStarted, models.RoundStartedEvent{
		Round:      s.round,
		TargetItem: target,
		DurationMs: rules.RoundDuration.Milliseconds(),
	})

	s.room.ArmTimer(rules.RoundDuration, func() {
		s.endRound("timeout")
	})
}

func (s *ActiveState) OnExit() {
	// roundTarget is null outside Active
	s.room.SetTarget("")
}

func (s *ActiveState) BeginSubmit(playerID string, claim models.Claim) (string, error) {
	if _, ok := s.room.GetPlayer(playerID); !ok {
		return "", ErrUnknownPlayer
	}
	if _, done := s.verified[playerID]; done {
		return "", ErrAlreadyScored
	}
	if _, busy := s.inflight[playerID]; busy {
		return "", ErrSubmissionInFlight
	}
	s.inflight[playerID] = struct{}{}
	return s.room.Target(), nil
}

func (s *ActiveState) CompleteSubmit(playerID string, claim models.Claim, matched bool) (models.ScoreResult, error) {
	delete(s.inflight, playerID)

	player, ok := s.room.GetPlayer(playerID)
	if !ok {
		// left while the claim was being verified
		return models.ScoreResult{}, ErrUnknownPlayer
	}

	if !matched {
		return models.ScoreResult{TotalScore: player.Score, Streak: player.Streak}, nil
	}

	rules := s.room.Rules()
	now := s.room.Now()
	elapsed := now.Sub(s.room.RoundStartedAt())
	points := scoring.Score(elapsed, rules.RoundDuration, s.round, player.Streak)

	player.Streak++
	player.Score += points
	s.verified[playerID] = verifiedEntry{points: points, at: now}

	s.room.Broadcast(network.MsgTypeItemVerified, models.ItemVerifiedEvent{
		PlayerID:   playerID,
		Score:      points,
		TotalScore: player.Score,
		Streak:     player.Streak,
	})

	result := models.ScoreResult{
		Matched:    true,
		Points:     points,
		TotalScore: player.Score,
		Streak:     player.Streak,
	}

	if s.allVerified() {
		s.endRound("all_verified")
	}
	return result, nil
}

func (s *ActiveState) HandlePlayerChange() {
	players := s.room.Players()
	if len(players) < s.room.Rules().MinPlayers {
		finishGame(s.room, ReasonInsufficientPlayers)
		return
	}
	// a leaver may have been the only player still searching
	if s.allVerified() {
		s.endRound("all_verified")
	}
}

func (s *ActiveState) allVerified() bool {
	players := s.room.Players()
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if _, ok := s.verified[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (s *ActiveState) endRound(reason string) {
	players := s.room.Players()

	standings := make([]scoring.RoundStanding, 0, len(players))
	for _, p := range players {
		entry, verified := s.verified[p.ID]
		standings = append(standings, scoring.RoundStanding{
			PlayerID:    p.ID,
			Name:        p.Name,
			Points:      entry.points,
			Verified:    verified,
			SubmittedAt: entry.at,
		})

		// a late joiner's earlier rounds read as zero
		for len(p.RoundScores) < s.round-1 {
			p.RoundScores = append(p.RoundScores, 0)
		}
		p.RoundScores = append(p.RoundScores, entry.points)
		if !verified {
			p.Streak = 0
		}
	}

	ranked := scoring.RankRound(standings)
	results := make([]models.RoundResult, 0, len(ranked))
	for _, st := range ranked {
		results = append(results, models.RoundResult{
			PlayerID: st.PlayerID,
			Name:     st.Name,
			Points:   st.Points,
			Rank:     st.Rank,
		})
	}

	logger.Log.Infof("room %s round %d ended (%s)", s.room.ID(), s.round, reason)
	s.room.Broadcast(network.MsgTypeRoundEnded, models.RoundEndedEvent{Round: s.round, Results: results})
	s.room.ChangeState(NewBetweenRoundsState(s.room, s.round))
}

// --- between rounds ---

type BetweenRoundsState struct {
	baseState
	played int
}

func NewBetweenRoundsState(room RoomContext, played int) *BetweenRoundsState {
	return &BetweenRoundsState{
		baseState: baseState{name: StateBetweenRounds, room: room},
		played:    played,
	}
}

func (s *BetweenRoundsState) OnEnter() {
	s.room.ArmTimer(s.room.Rules().BetweenRoundDelay, s.advance)
}

func (s *BetweenRoundsState) HandlePlayerChange() {
	if len(s.room.Players()) < s.room.Rules().MinPlayers {
		finishGame(s.room, ReasonInsufficientPlayers)
	}
}

func (s *BetweenRoundsState) advance() {
	rules := s.room.Rules()
	if s.played >= rules.RoundsPerGame {
		finishGame(s.room, ReasonComplete)
		return
	}
	if len(s.room.Players()) < rules.MinPlayers {
		finishGame(s.room, ReasonInsufficientPlayers)
		return
	}
	s.room.ChangeState(NewActiveState(s.room, s.played+1))
}

// --- ended ---

// EndedState lingers briefly so clients can show final results, then resets
// the room to Waiting. The room itself is reusable; only the scores die.
type EndedState struct {
	baseState
}

func NewEndedState(room RoomContext) *EndedState {
	return &EndedState{baseState{name: StateEnded, room: room}}
}

func (s *EndedState) OnEnter() {
	s.room.ArmTimer(s.room.Rules().EndedResetDelay, func() {
		s.room.ChangeState(NewWaitingState(s.room))
	})
}

// finishGame computes final rankings, broadcasts them and wipes per-game
// player state so the room can host another game without being destroyed.
func finishGame(room RoomContext, reason string) {
	players := room.Players()

	standings := make([]scoring.FinalStanding, 0, len(players))
	for _, p := range players {
		standings = append(standings, scoring.FinalStanding{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		})
	}
	ranked := scoring.RankFinal(standings)

	results := make([]models.FinalResult, 0, len(ranked))
	for _, st := range ranked {
		results = append(results, models.FinalResult{
			PlayerID: st.PlayerID,
			Name:     st.Name,
			Score:    st.Score,
			Rank:     st.Rank,
		})
	}

	logger.Log.Infof("room %s game ended (%s)", room.ID(), reason)
	room.Broadcast(network.MsgTypeGameEnded, models.GameEndedEvent{Reason: reason, Results: results})

	for _, p := range players {
		p.Score = 0
		p.Streak = 0
		p.RoundScores = nil
	}
	room.SetRound(0)
	room.ChangeState(NewEndedState(room))
}
