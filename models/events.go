// models/events.go
//
// The closed set of message payloads that cross the websocket. One struct per
// event; anything not listed here is rejected at the gateway.
package models

// --- inbound ---

type JoinGameRequest struct {
	Name string `json:"name"`
}

type AttemptRejoinRequest struct {
	PlayerID string `json:"playerId"`
}

type SubmitItemRequest struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// --- outbound ---

type PlayerJoinedEvent struct {
	PlayerID       string       `json:"playerId"`
	Name           string       `json:"name"`
	CurrentPlayers []PlayerInfo `json:"currentPlayers"`
}

type PlayerLeftEvent struct {
	PlayerID         string `json:"playerId"`
	RemainingPlayers int    `json:"remainingPlayers"`
}

type GameStartingEvent struct {
	Countdown int `json:"countdown"`
}

type CountdownEvent struct {
	Countdown int `json:"countdown"`
}

type GameStartedEvent struct {
	Round   int          `json:"round"`
	Players []PlayerInfo `json:"players"`
}

type RoundStartedEvent struct {
	Round      int    `json:"round"`
	TargetItem string `json:"targetItem"`
	DurationMs int64  `json:"duration"`
}

type ItemVerifiedEvent struct {
	PlayerID   string `json:"playerId"`
	Score      int    `json:"score"`
	TotalScore int    `json:"totalScore"`
	Streak     int    `json:"streak"`
}

type RoundResult struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
}

type RoundEndedEvent struct {
	Round   int           `json:"round"`
	Results []RoundResult `json:"results"`
}

type FinalResult struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

type GameEndedEvent struct {
	Reason  string        `json:"reason"`
	Results []FinalResult `json:"results"`
}

// GameSnapshot is handed to a recovered player so the client can redraw
// mid-round.
type GameSnapshot struct {
	PlayerID    string       `json:"playerId"`
	RoomID      string       `json:"roomId"`
	State       string       `json:"state"`
	Round       int          `json:"round"`
	TargetItem  string       `json:"targetItem,omitempty"`
	RemainingMs int64        `json:"remainingMs"`
	Players     []PlayerInfo `json:"players"`
}

type RejoinResultEvent struct {
	Success   bool          `json:"success"`
	GameState *GameSnapshot `json:"gameState,omitempty"`
}

type ErrorEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RetryInMs int64  `json:"retryInMs,omitempty"`
}

// StatusReport backs the read-only /status endpoint and the ops RPC.
type StatusReport struct {
	ActiveRooms      int            `json:"activeRooms"`
	TotalRooms       int            `json:"totalRooms"`
	ConnectedPlayers int            `json:"connectedPlayers"`
	ArmedTimers      int            `json:"armedTimers"`
	RecoveryRecords  int            `json:"recoveryRecords"`
	RateWindows      map[string]int `json:"rateWindows"`
}
