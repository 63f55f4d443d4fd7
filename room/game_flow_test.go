package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/snaphunt/models"
	"github.com/wfunc/snaphunt/network"
	"github.com/wfunc/snaphunt/state"
)

const (
	waitFor  = 2 * time.Second
	pollTick = 5 * time.Millisecond
)

// startRound drives a room with players a and b through the one-second
// countdown into round 1.
func startRound(t *testing.T, f *fixture) *Room {
	t.Helper()
	r := f.registry.CreateRoom()
	require.NoError(t, r.AddPlayer(&models.Player{ID: "a", Name: "alice"}))
	require.NoError(t, r.AddPlayer(&models.Player{ID: "b", Name: "bob"}))
	require.Equal(t, state.StateCountdown, r.Status())

	f.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return r.Status() == state.StateActive },
		waitFor, pollTick)
	return r
}

func waitForStatus(t *testing.T, r *Room, want string) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Status() == want },
		waitFor, pollTick, "room never reached %s", want)
}

func TestGameFlow_FullGame(t *testing.T) {
	f := newFixture(defaultRules())
	r := startRound(t, f)

	// round 1: alice finds the target instantly, bob guesses wrong
	result, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 150, result.Points)
	assert.Equal(t, 1, result.Streak)

	var verified models.ItemVerifiedEvent
	require.True(t, f.broadcaster.last(t, network.MsgTypeItemVerified, &verified))
	assert.Equal(t, "a", verified.PlayerID)
	assert.Equal(t, 150, verified.TotalScore)

	result, err = r.Submit("b", models.Claim{Label: "spoon", Confidence: 0.9})
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, 0, result.TotalScore)

	f.clock.Advance(60 * time.Second)
	waitForStatus(t, r, state.StateBetweenRounds)

	var roundEnded models.RoundEndedEvent
	require.True(t, f.broadcaster.last(t, network.MsgTypeRoundEnded, &roundEnded))
	assert.Equal(t, 1, roundEnded.Round)
	require.Len(t, roundEnded.Results, 2)
	assert.Equal(t, "a", roundEnded.Results[0].PlayerID)
	assert.Equal(t, 150, roundEnded.Results[0].Points)
	assert.Equal(t, 1, roundEnded.Results[0].Rank)
	assert.Equal(t, 0, roundEnded.Results[1].Points)

	// round 2 plays out with no submissions
	f.clock.Advance(5 * time.Second)
	waitForStatus(t, r, state.StateActive)
	f.clock.Advance(60 * time.Second)
	waitForStatus(t, r, state.StateBetweenRounds)

	// both rounds played: the game completes
	f.clock.Advance(5 * time.Second)
	waitForStatus(t, r, state.StateEnded)

	var gameEnded models.GameEndedEvent
	require.True(t, f.broadcaster.last(t, network.MsgTypeGameEnded, &gameEnded))
	assert.Equal(t, state.ReasonComplete, gameEnded.Reason)
	require.Len(t, gameEnded.Results, 2)
	assert.Equal(t, "a", gameEnded.Results[0].PlayerID)
	assert.Equal(t, 150, gameEnded.Results[0].Score)
	assert.Equal(t, 1, gameEnded.Results[0].Rank)

	// both players stayed, so the reset rolls straight into a new countdown
	f.clock.Advance(5 * time.Second)
	waitForStatus(t, r, state.StateCountdown)
}

func TestGameFlow_LowConfidenceClaimNotMatched(t *testing.T) {
	f := newFixture(defaultRules())
	r := startRound(t, f)

	result, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.3})
	require.NoError(t, err)
	assert.False(t, result.Matched)

	// the claim did not consume the player's chance
	result, err = r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
	require.NoError(t, err)
	assert.True(t, result.Matched)
}

func TestGameFlow_ResubmitAfterScoringRejected(t *testing.T) {
	f := newFixture(defaultRules())
	r := startRound(t, f)

	_, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
	require.NoError(t, err)

	_, err = r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
	assert.ErrorIs(t, err, state.ErrAlreadyScored)
}

func TestGameFlow_UnknownPlayerRejected(t *testing.T) {
	f := newFixture(defaultRules())
	r := startRound(t, f)

	_, err := r.Submit("ghost", models.Claim{Label: "cup", Confidence: 0.9})
	assert.ErrorIs(t, err, state.ErrUnknownPlayer)
}

func TestGameFlow_AllVerifiedEndsRoundEarly(t *testing.T) {
	f := newFixture(defaultRules())
	r := startRound(t, f)

	_, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
	require.NoError(t, err)
	assert.Equal(t, state.StateActive, r.Status())

	_, err = r.Submit("b", models.Claim{Label: "cup", Confidence: 0.9})
	require.NoError(t, err)

	// no clock advance needed: the last verification closes the round
	assert.Equal(t, state.StateBetweenRounds, r.Status())
}

// blockingMatcher parks inside Match until released, standing in for a slow
// recognizer round-trip.
type blockingMatcher struct {
	started chan struct{}
	release chan struct{}
}

func (m *blockingMatcher) Match(target string, claim models.Claim) bool {
	m.started <- struct{}{}
	<-m.release
	return true
}

func TestGameFlow_DuplicateSubmissionWhileVerifying(t *testing.T) {
	matcher := &blockingMatcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newMatcherFixture(defaultRules(), matcher)
	r := startRound(t, f)

	type submitResult struct {
		result models.ScoreResult
		err    error
	}
	first := make(chan submitResult, 1)
	go func() {
		res, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
		first <- submitResult{res, err}
	}()

	<-matcher.started

	// the first claim is still being verified; a second one bounces
	_, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
	assert.ErrorIs(t, err, state.ErrSubmissionInFlight)

	close(matcher.release)
	got := <-first
	require.NoError(t, got.err)
	assert.True(t, got.result.Matched)
	assert.Equal(t, 150, got.result.Points)
}

func TestGameFlow_SubmissionStaleAfterGameEnds(t *testing.T) {
	matcher := &blockingMatcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newMatcherFixture(defaultRules(), matcher)
	r := startRound(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
		done <- err
	}()

	<-matcher.started

	// bob leaves mid-verification and takes the quorum with him
	r.RemovePlayer("b")
	require.Equal(t, state.StateEnded, r.Status())

	close(matcher.release)
	assert.ErrorIs(t, <-done, state.ErrNotActive)
}

func TestGameFlow_QuorumLossEndsGameExactlyOnce(t *testing.T) {
	f := newFixture(defaultRules())
	r := startRound(t, f)

	r.RemovePlayer("b")
	waitForStatus(t, r, state.StateEnded)

	var gameEnded models.GameEndedEvent
	require.True(t, f.broadcaster.last(t, network.MsgTypeGameEnded, &gameEnded))
	assert.Equal(t, state.ReasonInsufficientPlayers, gameEnded.Reason)
	assert.Equal(t, 1, f.broadcaster.count(network.MsgTypeGameEnded))

	// the last player leaving destroys the room without a second gameEnded
	f.registry.LeaveRoom(r.ID(), "a")
	_, ok := f.registry.GetRoom(r.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, f.broadcaster.count(network.MsgTypeGameEnded))
}

func TestGameFlow_CountdownAbortSilencesStaleTimer(t *testing.T) {
	f := newFixture(defaultRules())
	r := f.registry.CreateRoom()
	require.NoError(t, r.AddPlayer(&models.Player{ID: "a", Name: "alice"}))
	require.NoError(t, r.AddPlayer(&models.Player{ID: "b", Name: "bob"}))
	require.Equal(t, state.StateCountdown, r.Status())

	r.RemovePlayer("b")
	require.Equal(t, state.StateWaiting, r.Status())

	// the canceled countdown tick must not fire after the abort
	f.clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, state.StateWaiting, r.Status())
}

func TestGameFlow_RejoinPreservesProgress(t *testing.T) {
	f := newFixture(defaultRules())
	r := f.registry.CreateRoom()
	require.NoError(t, r.AddPlayer(&models.Player{ID: "a", Name: "alice"}))
	require.NoError(t, r.AddPlayer(&models.Player{ID: "b", Name: "bob"}))
	require.NoError(t, r.AddPlayer(&models.Player{ID: "c", Name: "cara"}))
	f.clock.Advance(time.Second)
	waitForStatus(t, r, state.StateActive)

	_, err := r.Submit("a", models.Claim{Label: "cup", Confidence: 0.9})
	require.NoError(t, err)

	snapshot, ok := r.PlayerSnapshot("a")
	require.True(t, ok)
	r.RemovePlayer("a")
	require.Equal(t, state.StateActive, r.Status())

	restored, err := r.RestorePlayer("a2", snapshot)
	require.NoError(t, err)
	assert.Equal(t, "a2", restored.ID)
	assert.Equal(t, "alice", restored.Name)
	assert.Equal(t, 150, restored.Score)
	assert.Equal(t, 1, restored.Streak)

	snap := r.Snapshot("a2")
	assert.Equal(t, state.StateActive, snap.State)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, "cup", snap.TargetItem)
	assert.Equal(t, int64(60000), snap.RemainingMs)
	assert.Len(t, snap.Players, 3)
}

func TestGameFlow_RestoreRejectedOutsideGame(t *testing.T) {
	f := newFixture(defaultRules())
	r := f.registry.CreateRoom()
	require.NoError(t, r.AddPlayer(&models.Player{ID: "a", Name: "alice"}))

	_, err := r.RestorePlayer("a2", models.Player{ID: "a", Name: "alice", Score: 150})
	assert.ErrorIs(t, err, ErrGameNotRecoverable)
}

func TestGameFlow_RestoreSwapsStaleEntryInPlace(t *testing.T) {
	f := newFixture(defaultRules())
	r := startRound(t, f)

	// disconnect cleanup has not removed the old entry yet
	snapshot, ok := r.PlayerSnapshot("a")
	require.True(t, ok)

	restored, err := r.RestorePlayer("a2", snapshot)
	require.NoError(t, err)
	assert.Equal(t, "a2", restored.ID)
	assert.Equal(t, 2, r.PlayerCount())

	_, ok = r.PlayerSnapshot("a")
	assert.False(t, ok)
}
