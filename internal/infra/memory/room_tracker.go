package memory

import (
	"context"
	"sort"
	"sync"
)

// RoomTracker is an in-memory app.RoomTracker.
type RoomTracker struct {
	mu    sync.RWMutex
	rooms map[int64]struct{}
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{rooms: make(map[int64]struct{})}
}

func (t *RoomTracker) RoomOpened(_ context.Context, competitionID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rooms[competitionID] = struct{}{}
}

func (t *RoomTracker) RoomClosed(_ context.Context, competitionID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms, competitionID)
}

func (t *RoomTracker) ActiveRooms(context.Context) ([]int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int64, 0, len(t.rooms))
	for id := range t.rooms {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
