package domain

import (
	"sort"
	"time"
)

type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// Member is an admitted participant of a room, keyed by connection id.
type Member struct {
	ID   string
	Name string
	Role Role
}

// PendingRequest is a participant waiting for the host to admit it.
type PendingRequest struct {
	ID          string
	Name        string
	RequestedAt time.Time
}

// Room holds all live state of one meeting. Access is serialized by the
// coordinator; the struct itself carries no lock.
type Room struct {
	ID         string
	HostName   string
	HostConnID string
	Members    map[string]*Member
	Pending    map[string]*PendingRequest
	SharerID   string
}

// NewRoom creates an empty room whose host slot is reserved for hostName.
func NewRoom(id, hostName string) *Room {
	return &Room{
		ID:       id,
		HostName: hostName,
		Members:  make(map[string]*Member),
		Pending:  make(map[string]*PendingRequest),
	}
}

// Empty reports whether nobody is admitted or waiting. Empty rooms are
// deleted by the registry.
func (r *Room) Empty() bool {
	return len(r.Members) == 0 && len(r.Pending) == 0
}

// HasNameConflict reports whether nameKey collides with the host name, a
// member or a pending requester, ignoring ignoreID (the caller's own
// reconnect).
func (r *Room) HasNameConflict(nameKey string, ignoreID string) bool {
	if nameKey == NameKey(r.HostName) && r.HostConnID != ignoreID {
		return true
	}
	for id, member := range r.Members {
		if id == ignoreID {
			continue
		}
		if NameKey(member.Name) == nameKey {
			return true
		}
	}
	for id, pending := range r.Pending {
		if id == ignoreID {
			continue
		}
		if NameKey(pending.Name) == nameKey {
			return true
		}
	}
	return false
}

// Participants returns the member roster, host first, then by name.
func (r *Room) Participants() []ParticipantInfo {
	list := make([]ParticipantInfo, 0, len(r.Members))
	for id, member := range r.Members {
		list = append(list, ParticipantInfo{ID: id, Name: member.Name, Role: member.Role})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Role != list[j].Role {
			return list[i].Role == RoleHost
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// PeersFor returns every member except excludeID, the roster a freshly
// admitted connection must open peer connections to.
func (r *Room) PeersFor(excludeID string) []ParticipantInfo {
	list := make([]ParticipantInfo, 0, len(r.Members))
	for id, member := range r.Members {
		if id == excludeID {
			continue
		}
		list = append(list, ParticipantInfo{ID: id, Name: member.Name, Role: member.Role})
	}
	return list
}

// PendingList returns the waiting requests ordered by request time.
func (r *Room) PendingList() []PendingInfo {
	list := make([]PendingInfo, 0, len(r.Pending))
	for id, pending := range r.Pending {
		list = append(list, PendingInfo{ID: id, Name: pending.Name, RequestedAt: pending.RequestedAt})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].RequestedAt.Before(list[j].RequestedAt)
	})
	return list
}
