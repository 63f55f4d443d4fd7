// scoring/scoring.go
package scoring

import (
	"math"
	"sort"
	"time"
)

const (
	basePoints   = 100
	maxTimeBonus = 50
	roundStep    = 0.5
	streakStep   = 0.1
	streakCap    = 0.5
)

// Score maps elapsed time, round number and streak to a point value.
// Deterministic, no side effects:
//
//	floor((100 + timeBonus) * roundMultiplier * streakMultiplier)
//
// where timeBonus decays linearly from 50 to 0 over the round.
func Score(elapsed, roundDuration time.Duration, round, streak int) int {
	frac := 1 - float64(elapsed)/float64(roundDuration)
	if frac < 0 {
		frac = 0
	}
	timeBonus := math.Floor(maxTimeBonus * frac)

	roundMult := 1 + float64(round-1)*roundStep

	streakMult := 1.0
	if streak > 0 {
		streakMult = 1 + math.Min(float64(streak)*streakStep, streakCap)
	}

	return int(math.Floor((basePoints + timeBonus) * roundMult * streakMult))
}

// RoundStanding is one player's line in a round ranking.
type RoundStanding struct {
	PlayerID    string
	Name        string
	Points      int
	Verified    bool
	SubmittedAt time.Time
	Rank        int
}

// RankRound orders standings by points descending, breaking ties by earlier
// submission. Non-submitters keep their relative (join) order at the bottom.
func RankRound(standings []RoundStanding) []RoundStanding {
	ranked := append([]RoundStanding(nil), standings...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		if ranked[i].Verified && ranked[j].Verified {
			return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
		}
		return false
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// FinalStanding is one player's line in the end-of-game ranking.
type FinalStanding struct {
	PlayerID string
	Name     string
	Score    int
	Rank     int
}

// RankFinal orders by total score descending; ties keep join order.
func RankFinal(standings []FinalStanding) []FinalStanding {
	ranked := append([]FinalStanding(nil), standings...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
