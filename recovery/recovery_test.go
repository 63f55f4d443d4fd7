package recovery

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/wfunc/snaphunt/models"
)

func TestCache_TakeConsumes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache(clock, 30*time.Second)

	cache.Put("conn-1", "room-1", models.Player{ID: "conn-1", Name: "alice", Score: 250, Streak: 2})

	rec, ok := cache.Take("conn-1")
	assert.True(t, ok)
	assert.Equal(t, "room-1", rec.RoomID)
	assert.Equal(t, 250, rec.Player.Score)
	assert.Equal(t, 2, rec.Player.Streak)

	_, ok = cache.Take("conn-1")
	assert.False(t, ok)
}

func TestCache_UnknownIDMisses(t *testing.T) {
	cache := NewCache(clockwork.NewFakeClock(), 30*time.Second)
	_, ok := cache.Take("never-seen")
	assert.False(t, ok)
}

func TestCache_ExpiredRecordInertBeforeSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache(clock, 30*time.Second)

	cache.Put("conn-1", "room-1", models.Player{ID: "conn-1", Name: "alice"})
	clock.Advance(30 * time.Second)

	_, ok := cache.Take("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_PutReplacesEarlierRecord(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache(clock, 30*time.Second)

	cache.Put("conn-1", "room-1", models.Player{ID: "conn-1", Score: 10})
	cache.Put("conn-1", "room-2", models.Player{ID: "conn-1", Score: 90})

	rec, ok := cache.Take("conn-1")
	assert.True(t, ok)
	assert.Equal(t, "room-2", rec.RoomID)
	assert.Equal(t, 90, rec.Player.Score)
}

func TestCache_StoresSnapshotNotReference(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache(clock, 30*time.Second)

	player := models.Player{ID: "conn-1", Score: 100, RoundScores: []int{100}}
	cache.Put("conn-1", "room-1", player)
	player.RoundScores[0] = 0

	rec, _ := cache.Take("conn-1")
	assert.Equal(t, []int{100}, rec.Player.RoundScores)
}

func TestCache_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache(clock, 30*time.Second)

	cache.Put("old", "room-1", models.Player{ID: "old"})
	clock.Advance(20 * time.Second)
	cache.Put("fresh", "room-1", models.Player{ID: "fresh"})
	clock.Advance(15 * time.Second)

	cache.Sweep()
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Take("fresh")
	assert.True(t, ok)
}
