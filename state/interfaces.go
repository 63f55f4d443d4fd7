// state/interfaces.go
package state

import (
	"time"

	"github.com/wfunc/snaphunt/config"
	"github.com/wfunc/snaphunt/models"
)

// RoomContext is the view of a room that states operate on. It is defined
// here to break the import cycle between room and state.
//
// Every method is called with the owning room's lock held; the room
// serializes inbound events and fired timers, so states never need their own
// locking.
type RoomContext interface {
	ID() string
	Rules() config.GameConfig
	Now() time.Time

	Players() []*models.Player
	GetPlayer(id string) (*models.Player, bool)

	Round() int
	SetRound(n int)
	Target() string
	SetTarget(target string)
	RoundStartedAt() time.Time
	MarkRoundStarted()

	// NextTarget asks the item-selection collaborator for one opaque target.
	NextTarget(round int) string

	// ArmTimer schedules fn and replaces the room's single armed timer;
	// the previous timer, if any, is canceled first. fn runs relocked and
	// is skipped if the room transitioned or was destroyed in between.
	ArmTimer(d time.Duration, fn func())

	Broadcast(msgID uint16, payload interface{})
	ChangeState(next State)
}
