package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wfunc/snaphunt/network"
)

// mockConnection records sends instead of touching a real websocket.
type mockConnection struct {
	sent   []sentMessage
	closed bool
}

type sentMessage struct {
	msgID uint16
	data  []byte
}

func (m *mockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, sentMessage{msgID, data})
	return nil
}

func (m *mockConnection) Close() error {
	m.closed = true
	return nil
}

func (m *mockConnection) RemoteAddr() net.Addr                 { return nil }
func (m *mockConnection) SetHeartbeat(time.Duration)           {}
func (m *mockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestSession_SendForwardsToConnection(t *testing.T) {
	conn := &mockConnection{}
	sess := NewSession("sess-1", conn)

	err := sess.Send(201, []byte(`{"ok":true}`))
	assert.NoError(t, err)
	assert.Len(t, conn.sent, 1)
	assert.Equal(t, uint16(201), conn.sent[0].msgID)
}

func TestSession_TouchUpdatesLastActive(t *testing.T) {
	sess := NewSession("sess-1", &mockConnection{})
	before := sess.LastActive

	time.Sleep(5 * time.Millisecond)
	sess.Touch()
	assert.True(t, sess.LastActive.After(before))
}

func TestSession_CloseClosesConnection(t *testing.T) {
	conn := &mockConnection{}
	sess := NewSession("sess-1", conn)

	assert.NoError(t, sess.Close())
	assert.True(t, conn.closed)
}

func TestManager_AddGetRemove(t *testing.T) {
	manager := NewManager()
	sess := NewSession("sess-1", &mockConnection{})

	manager.Add(sess)
	assert.Equal(t, 1, manager.Len())

	got, ok := manager.Get("sess-1")
	assert.True(t, ok)
	assert.Equal(t, sess, got)

	_, ok = manager.Get("missing")
	assert.False(t, ok)

	manager.Remove("sess-1")
	assert.Equal(t, 0, manager.Len())
	_, ok = manager.Get("sess-1")
	assert.False(t, ok)
}

func TestManager_RemoveUnknownIsNoop(t *testing.T) {
	manager := NewManager()
	manager.Remove("never-added")
	assert.Equal(t, 0, manager.Len())
}
