package app

import "sync"

// Conn is the server side of one client connection.
type Conn interface {
	ID() string
	// Send queues an encoded frame for delivery. It must not block on the network.
	Send(frame []byte) error
	// Open reports whether the underlying socket can still take writes.
	Open() bool
}

// Registry maps a competition id to the connections subscribed to its room.
// Empty rooms are discarded so short-lived competitions leave nothing behind.
// It also counts how many joined connections each user holds in a room, so a
// reconnecting user is only reported gone when the last of them closes.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int64]map[string]Conn
	users map[int64]map[int64]int
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]map[string]Conn),
		users: make(map[int64]map[int64]int),
	}
}

// Register adds conn to the competition's room, replacing any entry with the
// same connection id. It reports whether this call created the room.
func (r *Registry) Register(competitionID int64, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[competitionID]
	if !ok {
		room = make(map[string]Conn)
		r.rooms[competitionID] = room
	}
	room[conn.ID()] = conn
	return !ok
}

// Deregister removes conn from the competition's room. It reports whether the
// room became empty and was discarded by this call.
func (r *Registry) Deregister(competitionID int64, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[competitionID]
	if !ok {
		return false
	}
	if _, member := room[conn.ID()]; !member {
		return false
	}
	delete(room, conn.ID())
	if len(room) == 0 {
		delete(r.rooms, competitionID)
		return true
	}
	return false
}

// BindUser records one more joined connection for userID in the room.
func (r *Registry) BindUser(competitionID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.users[competitionID]
	if !ok {
		room = make(map[int64]int)
		r.users[competitionID] = room
	}
	room[userID]++
}

// UnbindUser drops one joined connection for userID and returns how many the
// user still holds in the room.
func (r *Registry) UnbindUser(competitionID, userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.users[competitionID]
	if !ok || room[userID] == 0 {
		return 0
	}
	room[userID]--
	left := room[userID]
	if left == 0 {
		delete(room, userID)
		if len(room) == 0 {
			delete(r.users, competitionID)
		}
	}
	return left
}

// BroadcastTargets returns a snapshot of the room's connections.
func (r *Registry) BroadcastTargets(competitionID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[competitionID]
	targets := make([]Conn, 0, len(room))
	for _, conn := range room {
		targets = append(targets, conn)
	}
	return targets
}

// Contains reports whether conn is registered in the competition's room.
func (r *Registry) Contains(competitionID int64, conn Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[competitionID][conn.ID()]
	return ok
}

// Rooms returns the number of non-empty rooms.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// RoomIDs returns the ids of the non-empty rooms.
func (r *Registry) RoomIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}
