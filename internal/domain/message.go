package domain

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v3"
)

// MessageType is the closed set of signaling message kinds. Sessions dispatch
// on it with an exhaustive switch; anything else is a protocol error.
type MessageType string

const (
	// client -> coordinator requests, acknowledged via MsgAck.
	MsgRoomExists MessageType = "room-exists"
	MsgJoinRoom   MessageType = "join-room"
	MsgAdmit      MessageType = "admit-participant"
	MsgEndMeeting MessageType = "end-meeting"

	// client -> coordinator, fire-and-forget.
	MsgLeaveRoom   MessageType = "leave-room"
	MsgScreenShare MessageType = "screen-share"
	MsgVideoState  MessageType = "video-state"
	MsgChat        MessageType = "chat-message"

	// client <-> client, relayed opaquely by the coordinator.
	MsgOffer        MessageType = "offer"
	MsgAnswer       MessageType = "answer"
	MsgICECandidate MessageType = "ice-candidate"

	// coordinator -> client notifications.
	MsgEntryApproved   MessageType = "room-entry-approved"
	MsgEntryWaiting    MessageType = "room-entry-waiting"
	MsgEntryDenied     MessageType = "room-entry-denied"
	MsgEntryRevoked    MessageType = "room-entry-revoked"
	MsgMeetingEnded    MessageType = "meeting-ended"
	MsgPeers           MessageType = "peers"
	MsgPeerJoined      MessageType = "peer-joined"
	MsgPeerLeft        MessageType = "peer-left"
	MsgParticipants    MessageType = "participants-update"
	MsgPendingRequests MessageType = "pending-requests"
	MsgScreenSharer    MessageType = "screen-sharer"
	MsgPeerVideoState  MessageType = "peer-video-state"

	// transport handshake: first frame on every connection, telling the
	// client its own connection id.
	MsgWelcome MessageType = "welcome"

	MsgAck MessageType = "ack"
)

// Envelope is the wire frame every signaling message travels in. Requests
// carry a caller-chosen Seq which the matching ack repeats.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope. A marshal failure here is a
// programming error, so it panics rather than returning it up every call site.
func NewEnvelope(t MessageType, payload any) Envelope {
	env := Envelope{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			panic("domain: unmarshalable payload for " + string(t) + ": " + err.Error())
		}
		env.Payload = raw
	}
	return env
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

type JoinStatus string

const (
	JoinJoined       JoinStatus = "joined"
	JoinWaiting      JoinStatus = "waiting"
	JoinRoomNotFound JoinStatus = "room-not-found"
	JoinNameTaken    JoinStatus = "name-taken"
	JoinInvalidRoom  JoinStatus = "invalid-room"
	JoinInvalidName  JoinStatus = "invalid-name"
)

type JoinIntent string

const (
	IntentCreate JoinIntent = "create"
	IntentJoin   JoinIntent = "join"
)

type Welcome struct {
	ID string `json:"id"`
}

type RoomExistsRequest struct {
	RoomID string `json:"roomId"`
}

type RoomExistsAck struct {
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

type JoinRoomRequest struct {
	RoomID string     `json:"roomId"`
	Name   string     `json:"name"`
	Intent JoinIntent `json:"intent,omitempty"`
}

type JoinRoomAck struct {
	Status   JoinStatus `json:"status"`
	Role     Role       `json:"role,omitempty"`
	HostName string     `json:"hostName,omitempty"`
	Error    string     `json:"error,omitempty"`
}

type AdmitRequest struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
}

type EndMeetingRequest struct {
	RoomID string `json:"roomId"`
}

// OpAck acknowledges admit-participant and end-meeting.
type OpAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
}

type EntryApproved struct {
	RoomID   string `json:"roomId"`
	Role     Role   `json:"role"`
	HostName string `json:"hostName"`
}

type EntryWaiting struct {
	RoomID     string `json:"roomId"`
	HostName   string `json:"hostName"`
	HostOnline bool   `json:"hostOnline"`
}

type EntryDenied struct {
	Reason string `json:"reason"`
}

type MeetingEnded struct {
	RoomID   string `json:"roomId"`
	HostName string `json:"hostName"`
}

type ParticipantInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type PeerList struct {
	Peers []ParticipantInfo `json:"peers"`
}

type PeerLeft struct {
	ID string `json:"id"`
}

type ParticipantsUpdate struct {
	Participants []ParticipantInfo `json:"participants"`
}

type PendingInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requestedAt"`
}

type PendingUpdate struct {
	Requests   []PendingInfo `json:"requests"`
	HostOnline bool          `json:"hostOnline"`
}

// SessionDescriptionPayload carries offers and answers. To is set by the
// sender, From is rewritten by the coordinator before relaying.
type SessionDescriptionPayload struct {
	To   string                    `json:"to,omitempty"`
	From string                    `json:"from,omitempty"`
	SDP  webrtc.SessionDescription `json:"sdp"`
}

type ICECandidatePayload struct {
	To        string                  `json:"to,omitempty"`
	From      string                  `json:"from,omitempty"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// ScreenShareState is both the client's start/stop notice (RoomID, IsSharing)
// and the coordinator's per-peer relay of it (ID, IsSharing).
type ScreenShareState struct {
	RoomID    string `json:"roomId,omitempty"`
	ID        string `json:"id,omitempty"`
	IsSharing bool   `json:"isSharing"`
}

// ScreenSharer announces the room's single sharer slot. A nil ID means the
// slot is free.
type ScreenSharer struct {
	ID *string `json:"id"`
}

type VideoState struct {
	RoomID       string `json:"roomId,omitempty"`
	VideoEnabled bool   `json:"videoEnabled"`
}

type PeerVideoState struct {
	PeerID       string `json:"peerId"`
	VideoEnabled bool   `json:"videoEnabled"`
}

type ChatMessage struct {
	RoomID    string    `json:"roomId,omitempty"`
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}
