package registry

import (
	"errors"
	"sync"

	"github.com/peercall/peercall/internal/domain"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomRegistry owns the id -> room map. Rooms are created on the first
// successful create-join and removed once nobody is admitted or waiting.
type RoomRegistry interface {
	Get(id string) (*domain.Room, error)
	GetOrCreate(id, hostName string) *domain.Room
	Exists(id string) bool
	CleanupIfEmpty(id string)
	Delete(id string)
	List() []*domain.Room
}

type InMemoryRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		rooms: make(map[string]*domain.Room),
	}
}

func (r *InMemoryRegistry) Get(id string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// GetOrCreate returns the room for id, creating it with hostName as the
// recorded host if it does not exist yet.
func (r *InMemoryRegistry) GetOrCreate(id, hostName string) *domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		return room
	}
	room := domain.NewRoom(id, hostName)
	r.rooms[id] = room
	return room
}

// Exists reports whether id names a live room, i.e. one that still has
// members or pending requests.
func (r *InMemoryRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	return ok && !room.Empty()
}

// CleanupIfEmpty deletes the room when its member and pending sets are both
// empty. No-op otherwise.
func (r *InMemoryRegistry) CleanupIfEmpty(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if ok && room.Empty() {
		delete(r.rooms, id)
	}
}

func (r *InMemoryRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
}

func (r *InMemoryRegistry) List() []*domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room)
	}
	return result
}
