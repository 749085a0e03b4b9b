package service

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/peercall/peercall/internal/domain"
	"github.com/peercall/peercall/internal/registry"
)

const maxChatMessageLength = 4000

const (
	errInvalidRoomID   = "Invalid room ID. Use numbers from 1 to 999."
	errNameRequired    = "Please enter your name before joining."
	errNameTaken       = "This name is already in use in the room. Please choose a unique name."
	errHostOnlyAdmit   = "Only the host can admit participants."
	errHostOnlyEnd     = "Only the host can end the meeting."
	errRoomGone        = "Meeting room no longer exists."
	errNoLongerWaiting = "This participant is no longer waiting."
	errTargetGone      = "This participant disconnected."
	errNameNotUnique   = "Participant name is no longer unique."
	errAdmitRequest    = "Invalid participant admission request."
	reasonHostMoved    = "Host session moved to a new tab/window."
	reasonNameConflict = "Your name conflicts with someone already in the room."
)

// connState tracks which room a connection is admitted to or waiting for,
// mirroring the per-socket data the transport cannot be trusted to keep.
type connState struct {
	conn          ClientConn
	name          string
	roomID        string
	pendingRoomID string
}

// RoomService is the authoritative room session coordinator. Every handler
// runs to completion under a single mutex, so no partial room mutation is
// ever observable.
type RoomService struct {
	log   *slog.Logger
	rooms registry.RoomRegistry

	mu    sync.Mutex
	conns map[string]*connState
}

func NewRoomService(rooms registry.RoomRegistry, log *slog.Logger) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		log:   log,
		rooms: rooms,
		conns: make(map[string]*connState),
	}
}

func (s *RoomService) Connect(conn ClientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.ID()] = &connState{conn: conn}
	s.log.Info("connection registered", slog.String("conn_id", conn.ID()))
}

func (s *RoomService) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.conns[connID]
	if !ok {
		return
	}
	s.clearRoomState(state)
	delete(s.conns, connID)
	s.log.Info("connection gone", slog.String("conn_id", connID))
}

func (s *RoomService) RoomExists(connID string, req domain.RoomExistsRequest) domain.RoomExistsAck {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := domain.NormalizeRoomID(req.RoomID)
	if !ok {
		return domain.RoomExistsAck{Exists: false, Error: errInvalidRoomID}
	}
	return domain.RoomExistsAck{Exists: s.rooms.Exists(roomID)}
}

func (s *RoomService) JoinRoom(connID string, req domain.JoinRoomRequest) domain.JoinRoomAck {
	const op = "service.room.join"
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.conns[connID]
	if !ok {
		return domain.JoinRoomAck{Status: domain.JoinInvalidRoom, Error: "unknown connection"}
	}

	roomID, valid := domain.NormalizeRoomID(req.RoomID)
	if !valid {
		return domain.JoinRoomAck{Status: domain.JoinInvalidRoom, Error: errInvalidRoomID}
	}
	name := domain.NormalizeName(req.Name)
	if name == "" {
		return domain.JoinRoomAck{Status: domain.JoinInvalidName, Error: errNameRequired}
	}
	state.name = name

	log := s.log.With(
		slog.String("op", op),
		slog.String("conn_id", connID),
		slog.String("room_id", roomID),
		slog.String("name", name),
	)

	// Joining a different room implicitly leaves the previous one.
	if (state.roomID != "" && state.roomID != roomID) ||
		(state.pendingRoomID != "" && state.pendingRoomID != roomID) {
		s.clearRoomState(state)
	}

	room, err := s.rooms.Get(roomID)
	if err != nil {
		if req.Intent != domain.IntentCreate {
			return domain.JoinRoomAck{
				Status: domain.JoinRoomNotFound,
				Error:  "Meeting room " + roomID + " was not found.",
			}
		}
		room = s.rooms.GetOrCreate(roomID, name)
		log.Info("room created", slog.String("host_name", name))
	}

	nameKey := domain.NameKey(name)
	role := domain.RoleParticipant
	if nameKey == domain.NameKey(room.HostName) {
		role = domain.RoleHost
	}

	if role == domain.RoleParticipant {
		if room.HasNameConflict(nameKey, connID) {
			return domain.JoinRoomAck{Status: domain.JoinNameTaken, Error: errNameTaken}
		}

		room.Pending[connID] = &domain.PendingRequest{
			ID:          connID,
			Name:        name,
			RequestedAt: time.Now().UTC(),
		}
		state.pendingRoomID = roomID
		state.roomID = ""

		s.sendTo(connID, domain.NewEnvelope(domain.MsgEntryWaiting, domain.EntryWaiting{
			RoomID:     roomID,
			HostName:   room.HostName,
			HostOnline: s.hostOnline(room),
		}))
		s.emitPending(room)

		log.Info("participant waiting for admission")
		return domain.JoinRoomAck{
			Status:   domain.JoinWaiting,
			Role:     domain.RoleParticipant,
			HostName: room.HostName,
		}
	}

	// Host path: a second connection claiming the host name evicts the first.
	if room.HostConnID != "" && room.HostConnID != connID {
		previousID := room.HostConnID
		s.sendTo(previousID, domain.NewEnvelope(domain.MsgEntryRevoked, domain.EntryDenied{
			Reason: reasonHostMoved,
		}))
		if prev, ok := s.conns[previousID]; ok {
			prev.roomID = ""
		}
		delete(room.Members, previousID)
		room.HostConnID = ""
		s.broadcast(room, domain.NewEnvelope(domain.MsgPeerLeft, domain.PeerLeft{ID: previousID}))
		log.Info("previous host session revoked", slog.String("evicted_conn_id", previousID))
	}

	s.admit(state, room, name, domain.RoleHost)
	log.Info("host joined")
	return domain.JoinRoomAck{Status: domain.JoinJoined, Role: domain.RoleHost, HostName: room.HostName}
}

func (s *RoomService) AdmitParticipant(connID string, req domain.AdmitRequest) domain.OpAck {
	const op = "service.room.admit"
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, valid := domain.NormalizeRoomID(req.RoomID)
	if !valid || req.TargetID == "" {
		return domain.OpAck{OK: false, Error: errAdmitRequest}
	}

	room, err := s.rooms.Get(roomID)
	if err != nil {
		return domain.OpAck{OK: false, Error: errRoomGone}
	}
	if room.HostConnID != connID {
		return domain.OpAck{OK: false, Error: errHostOnlyAdmit}
	}

	pending, ok := room.Pending[req.TargetID]
	if !ok {
		s.emitPending(room)
		return domain.OpAck{OK: false, Error: errNoLongerWaiting}
	}

	target, ok := s.conns[req.TargetID]
	if !ok {
		delete(room.Pending, req.TargetID)
		s.emitPending(room)
		return domain.OpAck{OK: false, Error: errTargetGone}
	}

	// The room may have changed while the request waited; re-check the name.
	if room.HasNameConflict(domain.NameKey(pending.Name), req.TargetID) {
		delete(room.Pending, req.TargetID)
		s.sendTo(req.TargetID, domain.NewEnvelope(domain.MsgEntryDenied, domain.EntryDenied{
			Reason: reasonNameConflict,
		}))
		s.emitPending(room)
		return domain.OpAck{OK: false, Error: errNameNotUnique}
	}

	s.admit(target, room, pending.Name, domain.RoleParticipant)
	s.log.Info("participant admitted",
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("conn_id", req.TargetID),
		slog.String("name", pending.Name),
	)
	return domain.OpAck{OK: true}
}

func (s *RoomService) EndMeeting(connID string, req domain.EndMeetingRequest) domain.OpAck {
	const op = "service.room.end"
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, valid := domain.NormalizeRoomID(req.RoomID)
	if !valid {
		return domain.OpAck{OK: false, Error: "Invalid meeting room."}
	}
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return domain.OpAck{OK: false, Error: errRoomGone}
	}
	if room.HostConnID != connID {
		return domain.OpAck{OK: false, Error: errHostOnlyEnd}
	}

	ended := domain.NewEnvelope(domain.MsgMeetingEnded, domain.MeetingEnded{
		RoomID:   roomID,
		HostName: room.HostName,
	})

	for memberID := range room.Members {
		if memberID != connID {
			s.sendTo(memberID, ended)
		}
		if state, ok := s.conns[memberID]; ok {
			state.roomID = ""
			state.pendingRoomID = ""
		}
	}
	for pendingID := range room.Pending {
		s.sendTo(pendingID, ended)
		if state, ok := s.conns[pendingID]; ok {
			state.roomID = ""
			state.pendingRoomID = ""
		}
	}

	s.rooms.Delete(roomID)
	s.log.Info("meeting ended",
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("host_name", room.HostName),
	)
	return domain.OpAck{OK: true}
}

func (s *RoomService) LeaveRoom(connID string, req domain.LeaveRoomRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.conns[connID]
	if !ok {
		return
	}

	roomID, valid := domain.NormalizeRoomID(req.RoomID)
	if !valid {
		if state.roomID != "" {
			roomID = state.roomID
		} else if state.pendingRoomID != "" {
			roomID = state.pendingRoomID
		} else {
			return
		}
	}

	room, err := s.rooms.Get(roomID)
	if err != nil {
		return
	}

	if state.pendingRoomID == roomID {
		s.removePending(room, connID)
		state.pendingRoomID = ""
	}
	if state.roomID == roomID {
		s.removeMember(room, connID)
		state.roomID = ""
	}
}

func (s *RoomService) RelayOffer(connID string, payload domain.SessionDescriptionPayload) {
	s.relayDescription(domain.MsgOffer, connID, payload)
}

func (s *RoomService) RelayAnswer(connID string, payload domain.SessionDescriptionPayload) {
	s.relayDescription(domain.MsgAnswer, connID, payload)
}

func (s *RoomService) relayDescription(t domain.MessageType, connID string, payload domain.SessionDescriptionPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payload.To == "" || payload.SDP.SDP == "" {
		return
	}
	s.sendTo(payload.To, domain.NewEnvelope(t, domain.SessionDescriptionPayload{
		From: connID,
		SDP:  payload.SDP,
	}))
}

func (s *RoomService) RelayICECandidate(connID string, payload domain.ICECandidatePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payload.To == "" || payload.Candidate.Candidate == "" {
		return
	}
	s.sendTo(payload.To, domain.NewEnvelope(domain.MsgICECandidate, domain.ICECandidatePayload{
		From:      connID,
		Candidate: payload.Candidate,
	}))
}

// ScreenShare arbitrates the single sharer slot. A start always wins the
// slot, displacing any current sharer; a stop clears it only if the caller
// still holds it.
func (s *RoomService) ScreenShare(connID string, req domain.ScreenShareState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.memberRoom(connID, req.RoomID)
	if !ok {
		return
	}

	if req.IsSharing {
		room.SharerID = connID
		s.broadcast(room, domain.NewEnvelope(domain.MsgScreenSharer, domain.ScreenSharer{ID: &connID}))
	} else if room.SharerID == connID {
		room.SharerID = ""
		s.broadcast(room, domain.NewEnvelope(domain.MsgScreenSharer, domain.ScreenSharer{ID: nil}))
	}

	share := domain.NewEnvelope(domain.MsgScreenShare, domain.ScreenShareState{
		ID:        connID,
		IsSharing: req.IsSharing,
	})
	s.broadcastExcept(room, share, connID)
}

func (s *RoomService) VideoState(connID string, req domain.VideoState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.memberRoom(connID, req.RoomID)
	if !ok {
		return
	}
	s.broadcastExcept(room, domain.NewEnvelope(domain.MsgPeerVideoState, domain.PeerVideoState{
		PeerID:       connID,
		VideoEnabled: req.VideoEnabled,
	}), connID)
}

func (s *RoomService) ChatMessage(connID string, req domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message := strings.TrimSpace(req.Message)
	if message == "" || utf8.RuneCountInString(message) > maxChatMessageLength {
		return
	}
	room, ok := s.memberRoom(connID, req.RoomID)
	if !ok {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Guest"
	}

	s.broadcast(room, domain.NewEnvelope(domain.MsgChat, domain.ChatMessage{
		ID:        uuid.NewString(),
		Name:      name,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}))
}

// memberRoom resolves roomID and requires connID to be an admitted member.
func (s *RoomService) memberRoom(connID, rawRoomID string) (*domain.Room, bool) {
	roomID, valid := domain.NormalizeRoomID(rawRoomID)
	if !valid {
		return nil, false
	}
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return nil, false
	}
	if _, ok := room.Members[connID]; !ok {
		return nil, false
	}
	return room, true
}

// admit moves a connection into membership and plays the full admission
// sequence: roster and sharer snapshot to the newcomer, approval notice,
// peer-joined to the room, then refreshed participant and pending lists.
func (s *RoomService) admit(state *connState, room *domain.Room, name string, role domain.Role) {
	connID := state.conn.ID()

	if state.pendingRoomID == room.ID {
		delete(room.Pending, connID)
		state.pendingRoomID = ""
	}

	state.roomID = room.ID
	state.name = name
	room.Members[connID] = &domain.Member{ID: connID, Name: name, Role: role}
	if role == domain.RoleHost {
		room.HostConnID = connID
	}

	s.sendTo(connID, domain.NewEnvelope(domain.MsgPeers, domain.PeerList{Peers: room.PeersFor(connID)}))

	sharer := domain.ScreenSharer{}
	if room.SharerID != "" {
		id := room.SharerID
		sharer.ID = &id
	}
	s.sendTo(connID, domain.NewEnvelope(domain.MsgScreenSharer, sharer))

	s.sendTo(connID, domain.NewEnvelope(domain.MsgEntryApproved, domain.EntryApproved{
		RoomID:   room.ID,
		Role:     role,
		HostName: room.HostName,
	}))

	s.broadcastExcept(room, domain.NewEnvelope(domain.MsgPeerJoined, domain.ParticipantInfo{
		ID:   connID,
		Name: name,
		Role: role,
	}), connID)

	s.emitParticipants(room)
	s.emitPending(room)
}

// removeMember drops an admitted member, releasing the sharer slot and host
// occupancy it may hold, and deletes the room if it emptied.
func (s *RoomService) removeMember(room *domain.Room, connID string) {
	member, ok := room.Members[connID]
	if !ok {
		return
	}
	delete(room.Members, connID)

	if room.SharerID == connID {
		room.SharerID = ""
		s.broadcast(room, domain.NewEnvelope(domain.MsgScreenSharer, domain.ScreenSharer{ID: nil}))
	}
	if member.Role == domain.RoleHost && room.HostConnID == connID {
		room.HostConnID = ""
	}

	s.broadcast(room, domain.NewEnvelope(domain.MsgPeerLeft, domain.PeerLeft{ID: connID}))
	s.emitParticipants(room)
	s.emitPending(room)
	s.rooms.CleanupIfEmpty(room.ID)
}

func (s *RoomService) removePending(room *domain.Room, connID string) {
	if _, ok := room.Pending[connID]; !ok {
		return
	}
	delete(room.Pending, connID)
	s.emitPending(room)
	s.rooms.CleanupIfEmpty(room.ID)
}

func (s *RoomService) clearRoomState(state *connState) {
	if state.roomID != "" {
		if room, err := s.rooms.Get(state.roomID); err == nil {
			s.removeMember(room, state.conn.ID())
		}
		state.roomID = ""
	}
	if state.pendingRoomID != "" {
		if room, err := s.rooms.Get(state.pendingRoomID); err == nil {
			s.removePending(room, state.conn.ID())
		}
		state.pendingRoomID = ""
	}
}

func (s *RoomService) hostOnline(room *domain.Room) bool {
	if room.HostConnID == "" {
		return false
	}
	_, ok := s.conns[room.HostConnID]
	return ok
}

func (s *RoomService) emitParticipants(room *domain.Room) {
	s.broadcast(room, domain.NewEnvelope(domain.MsgParticipants, domain.ParticipantsUpdate{
		Participants: room.Participants(),
	}))
}

// emitPending refreshes the host's admission queue. Only the host ever sees
// the pending list.
func (s *RoomService) emitPending(room *domain.Room) {
	if room.HostConnID == "" {
		return
	}
	s.sendTo(room.HostConnID, domain.NewEnvelope(domain.MsgPendingRequests, domain.PendingUpdate{
		Requests:   room.PendingList(),
		HostOnline: true,
	}))
}

func (s *RoomService) broadcast(room *domain.Room, env domain.Envelope) {
	for memberID := range room.Members {
		s.sendTo(memberID, env)
	}
}

func (s *RoomService) broadcastExcept(room *domain.Room, env domain.Envelope, exclude string) {
	for memberID := range room.Members {
		if memberID == exclude {
			continue
		}
		s.sendTo(memberID, env)
	}
}

func (s *RoomService) sendTo(connID string, env domain.Envelope) {
	state, ok := s.conns[connID]
	if !ok {
		s.log.Debug("dropping event for unknown connection",
			slog.String("conn_id", connID),
			slog.String("type", string(env.Type)),
		)
		return
	}
	state.conn.Send(env)
}
