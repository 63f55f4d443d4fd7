// models/models.go
package models

import (
	"time"
)

// Player is the per-room game state of one participant. The ID is the live
// connection id; a recovered player keeps everything else but gets a new ID.
type Player struct {
	ID          string    `json:"playerId"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Streak      int       `json:"streak"`
	RoundScores []int     `json:"roundScores"`
	JoinedAt    time.Time `json:"-"`
}

// Clone returns a deep copy, used when snapshotting for session recovery.
func (p *Player) Clone() Player {
	cp := *p
	cp.RoundScores = append([]int(nil), p.RoundScores...)
	return cp
}

// Info strips a Player down to its broadcastable fields.
func (p *Player) Info() PlayerInfo {
	return PlayerInfo{ID: p.ID, Name: p.Name, Score: p.Score, Streak: p.Streak}
}

// Claim is what the on-device recognizer submits: its best label and how
// confident it is. Matching the claim against the round target is not done
// here; the server only consumes the result.
type Claim struct {
	Label      string
	Confidence float64
}

// ScoreResult is returned from a submission attempt.
type ScoreResult struct {
	Matched    bool `json:"matched"`
	Points     int  `json:"points"`
	TotalScore int  `json:"totalScore"`
	Streak     int  `json:"streak"`
}

type PlayerInfo struct {
	ID     string `json:"playerId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Streak int    `json:"streak"`
}
