// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/session"
)

// Broadcaster fans encoded events out to sets of live connections.
type Broadcaster interface {
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte)
}

// RoomBroadcaster resolves player ids (= connection ids) through the session
// manager. A failed send is skipped; the connection's own read loop notices
// the dead socket and runs disconnect cleanup.
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{sessionManager: sessionManager}
}

func (b *RoomBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) {
	for _, id := range playerIDs {
		s, exists := b.sessionManager.Get(id)
		if !exists {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Debugf("broadcast to %s failed: %v", id, err)
		}
	}
}
