package service

import "github.com/peercall/peercall/internal/domain"

// ClientConn is one signaling connection as the coordinator sees it. Send
// must never block; the transport layer buffers behind it.
type ClientConn interface {
	ID() string
	Send(env domain.Envelope)
}

// Coordinator is the room session coordinator surface the transport layer
// dispatches into. Requests return their acknowledgement payload; everything
// else is fire-and-forget.
type Coordinator interface {
	Connect(conn ClientConn)
	Disconnect(connID string)

	RoomExists(connID string, req domain.RoomExistsRequest) domain.RoomExistsAck
	JoinRoom(connID string, req domain.JoinRoomRequest) domain.JoinRoomAck
	AdmitParticipant(connID string, req domain.AdmitRequest) domain.OpAck
	EndMeeting(connID string, req domain.EndMeetingRequest) domain.OpAck
	LeaveRoom(connID string, req domain.LeaveRoomRequest)

	RelayOffer(connID string, payload domain.SessionDescriptionPayload)
	RelayAnswer(connID string, payload domain.SessionDescriptionPayload)
	RelayICECandidate(connID string, payload domain.ICECandidatePayload)

	ScreenShare(connID string, req domain.ScreenShareState)
	VideoState(connID string, req domain.VideoState)
	ChatMessage(connID string, req domain.ChatMessage)
}
