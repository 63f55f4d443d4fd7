package room

import "github.com/wfunc/snaphunt/models"

// Broadcaster fans an encoded event out to a set of connections. Defined here
// to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte)
}

// ItemSource is the external item-selection collaborator: one opaque target
// per round, parameterized by round difficulty.
type ItemSource interface {
	NextTarget(round int) string
}

// Matcher decides whether a submitted claim is the round target. The real
// decision belongs to the recognizer; rooms only consume the boolean.
type Matcher interface {
	Match(target string, claim models.Claim) bool
}
