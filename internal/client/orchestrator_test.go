package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/peercall/peercall/internal/domain"
	"github.com/peercall/peercall/internal/media"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"
)

var testSTUNServers = []string{"stun:stun.l.google.com:19302"}

// fakeSignaling records outbound traffic and lets tests inject coordinator
// events through the registered handler.
type fakeSignaling struct {
	connID string

	mu      sync.Mutex
	sent    []domain.Envelope
	handler EventHandler
	acks    map[domain.MessageType]any
}

func newFakeSignaling(connID string) *fakeSignaling {
	return &fakeSignaling{
		connID: connID,
		acks:   make(map[domain.MessageType]any),
	}
}

func (f *fakeSignaling) ConnID() string { return f.connID }

func (f *fakeSignaling) Request(_ context.Context, t domain.MessageType, payload any, ack any) error {
	f.record(domain.NewEnvelope(t, payload))

	f.mu.Lock()
	canned, ok := f.acks[t]
	f.mu.Unlock()
	if !ok || ack == nil {
		return nil
	}
	raw, err := json.Marshal(canned)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, ack)
}

func (f *fakeSignaling) Notify(t domain.MessageType, payload any) error {
	f.record(domain.NewEnvelope(t, payload))
	return nil
}

func (f *fakeSignaling) SetHandler(handler EventHandler) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
}

func (f *fakeSignaling) Close() error { return nil }

func (f *fakeSignaling) record(env domain.Envelope) {
	f.mu.Lock()
	f.sent = append(f.sent, env)
	f.mu.Unlock()
}

func (f *fakeSignaling) emit(t *testing.T, msgType domain.MessageType, payload any) {
	t.Helper()
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	require.NotNil(t, handler)
	handler(domain.NewEnvelope(msgType, payload))
}

func (f *fakeSignaling) sentOfType(msgType domain.MessageType) []domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Envelope
	for _, env := range f.sent {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

func decodeSent[T any](t *testing.T, env domain.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, env.Decode(&v))
	return v
}

func newTestOrchestrator(t *testing.T, sig *fakeSignaling, events Events) *Orchestrator {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := NewOrchestrator(sig, media.NewSyntheticCapture(), testSTUNServers, events, log)
	t.Cleanup(orch.Leave)
	require.NoError(t, orch.StartMedia("default", "default"))
	return orch
}

func (o *Orchestrator) linkFor(peerID string) *peerLink {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.links[peerID]
}

func (o *Orchestrator) linkCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.links)
}

func TestPeersPreparesWithoutOffering(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	sig.emit(t, domain.MsgPeers, domain.PeerList{Peers: []domain.ParticipantInfo{
		{ID: "p1", Name: "Bob", Role: domain.RoleHost},
	}})

	link := orch.linkFor("p1")
	require.NotNil(t, link)
	require.Equal(t, "Bob", link.name)
	require.NotNil(t, link.micSender, "baseline mic attaches eagerly")
	require.NotNil(t, link.cameraSender, "baseline camera attaches eagerly")
	require.True(t, link.stable())
	require.Empty(t, sig.sentOfType(domain.MsgOffer), "the newcomer waits to be offered to")
}

func TestPeerJoinedTriggersOffer(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	sig.emit(t, domain.MsgPeerJoined, domain.ParticipantInfo{ID: "p2", Name: "Carol"})

	offers := sig.sentOfType(domain.MsgOffer)
	require.Len(t, offers, 1)
	offer := decodeSent[domain.SessionDescriptionPayload](t, offers[0])
	require.Equal(t, "p2", offer.To)
	require.NotEmpty(t, offer.SDP.SDP)

	link := orch.linkFor("p2")
	require.NotNil(t, link)
	require.False(t, link.stable(), "an offer in flight leaves the link mid-negotiation")
}

func TestStartScreenShareSkipsMidNegotiationLinks(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	sig.emit(t, domain.MsgPeers, domain.PeerList{Peers: []domain.ParticipantInfo{{ID: "p1", Name: "Bob"}}})
	sig.emit(t, domain.MsgPeerJoined, domain.ParticipantInfo{ID: "p2", Name: "Carol"})

	skipped, err := orch.StartScreenShare()
	require.NoError(t, err)
	require.Equal(t, 1, skipped, "only the link already negotiating is skipped")
	require.True(t, orch.Sharing())

	require.NotNil(t, orch.linkFor("p1").screenSender)
	require.Nil(t, orch.linkFor("p2").screenSender)

	shares := sig.sentOfType(domain.MsgScreenShare)
	require.NotEmpty(t, shares)
	require.True(t, decodeSent[domain.ScreenShareState](t, shares[len(shares)-1]).IsSharing)
}

func TestStopScreenShare(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	skipped, err := orch.StartScreenShare()
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.True(t, orch.Sharing())

	_, err = orch.StopScreenShare()
	require.NoError(t, err)
	require.False(t, orch.Sharing())

	shares := sig.sentOfType(domain.MsgScreenShare)
	require.Len(t, shares, 2)
	require.False(t, decodeSent[domain.ScreenShareState](t, shares[1]).IsSharing)

	// Stopping again changes nothing.
	_, err = orch.StopScreenShare()
	require.NoError(t, err)
	require.Len(t, sig.sentOfType(domain.MsgScreenShare), 2)
}

func TestSharerVerdictPreemptsLocalShare(t *testing.T) {
	sig := newFakeSignaling("me")
	previews := make(chan bool, 4)
	orch := newTestOrchestrator(t, sig, Events{
		OnLocalPreview: func(screen bool) { previews <- screen },
	})

	_, err := orch.StartScreenShare()
	require.NoError(t, err)
	require.True(t, <-previews)

	rival := "rival"
	sig.emit(t, domain.MsgScreenSharer, domain.ScreenSharer{ID: &rival})

	require.False(t, orch.Sharing())
	require.Equal(t, "rival", orch.SharerID())
	require.False(t, orch.IsLocalSharer())
	require.False(t, <-previews)

	shares := sig.sentOfType(domain.MsgScreenShare)
	require.False(t, decodeSent[domain.ScreenShareState](t, shares[len(shares)-1]).IsSharing)
}

func TestSharerVerdictForSelfKeepsShare(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	_, err := orch.StartScreenShare()
	require.NoError(t, err)

	self := "me"
	sig.emit(t, domain.MsgScreenSharer, domain.ScreenSharer{ID: &self})

	require.True(t, orch.Sharing())
	require.True(t, orch.IsLocalSharer())
}

func TestDeviceSwitchKeepsSenderSlots(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	sig.emit(t, domain.MsgPeers, domain.PeerList{Peers: []domain.ParticipantInfo{{ID: "p1", Name: "Bob"}}})
	link := orch.linkFor("p1")
	require.NotNil(t, link)
	micSender := link.micSender
	oldTrack := orch.micSlot.Track()

	require.NoError(t, orch.SwitchMicrophone("usb-mic"))

	require.Same(t, micSender, orch.linkFor("p1").micSender, "the sender survives the device swap")
	require.NotSame(t, oldTrack, orch.micSlot.Track())
	require.Empty(t, sig.sentOfType(domain.MsgOffer), "replacing a track needs no renegotiation")
}

func TestMuteTogglesSlotWithoutSignaling(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	orch.SetMuted(true)
	require.False(t, orch.micSlot.Enabled())
	orch.SetMuted(false)
	require.True(t, orch.micSlot.Enabled())
	require.Empty(t, sig.sentOfType(domain.MsgVideoState))
}

func TestVideoToggleNotifiesRoom(t *testing.T) {
	sig := newFakeSignaling("me")
	sig.acks[domain.MsgJoinRoom] = domain.JoinRoomAck{Status: domain.JoinJoined, Role: domain.RoleHost, HostName: "Alice"}
	orch := newTestOrchestrator(t, sig, Events{})

	ack, err := orch.Join(context.Background(), "42", "Alice", domain.IntentCreate)
	require.NoError(t, err)
	require.Equal(t, domain.JoinJoined, ack.Status)

	// Joining announces the current media state.
	states := sig.sentOfType(domain.MsgVideoState)
	require.Len(t, states, 1)
	require.True(t, decodeSent[domain.VideoState](t, states[0]).VideoEnabled)

	orch.SetVideoEnabled(false)
	require.False(t, orch.cameraSlot.Enabled())
	states = sig.sentOfType(domain.MsgVideoState)
	require.Len(t, states, 2)
	state := decodeSent[domain.VideoState](t, states[1])
	require.Equal(t, "42", state.RoomID)
	require.False(t, state.VideoEnabled)
}

func TestWaitingJoinDefersMediaAnnouncement(t *testing.T) {
	sig := newFakeSignaling("me")
	sig.acks[domain.MsgJoinRoom] = domain.JoinRoomAck{Status: domain.JoinWaiting, HostName: "Alice"}
	orch := newTestOrchestrator(t, sig, Events{})

	ack, err := orch.Join(context.Background(), "42", "Bob", domain.IntentJoin)
	require.NoError(t, err)
	require.Equal(t, domain.JoinWaiting, ack.Status)
	require.Empty(t, sig.sentOfType(domain.MsgVideoState))

	sig.emit(t, domain.MsgEntryApproved, domain.EntryApproved{RoomID: "42", Role: domain.RoleParticipant, HostName: "Alice"})

	states := sig.sentOfType(domain.MsgVideoState)
	require.Len(t, states, 1)
	require.Equal(t, "42", decodeSent[domain.VideoState](t, states[0]).RoomID)
}

func TestOfferDuringOwnOfferIsIgnored(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	sig.emit(t, domain.MsgPeerJoined, domain.ParticipantInfo{ID: "p1", Name: "Bob"})
	require.False(t, orch.linkFor("p1").stable())

	sig.emit(t, domain.MsgOffer, domain.SessionDescriptionPayload{
		From: "p1",
		SDP:  mustOffer(t),
	})
	require.Empty(t, sig.sentOfType(domain.MsgAnswer), "glare resolves by ignoring the crossing offer")
}

func TestIncomingOfferIsAnswered(t *testing.T) {
	sig := newFakeSignaling("me")
	orch := newTestOrchestrator(t, sig, Events{})

	sig.emit(t, domain.MsgOffer, domain.SessionDescriptionPayload{
		From: "p1",
		SDP:  mustOffer(t),
	})

	require.NotNil(t, orch.linkFor("p1"))
	answers := sig.sentOfType(domain.MsgAnswer)
	require.Len(t, answers, 1)
	answer := decodeSent[domain.SessionDescriptionPayload](t, answers[0])
	require.Equal(t, "p1", answer.To)
	require.NotEmpty(t, answer.SDP.SDP)
}

func TestPeerLeftPurgesLink(t *testing.T) {
	sig := newFakeSignaling("me")
	closed := make(chan string, 2)
	orch := newTestOrchestrator(t, sig, Events{
		OnPeerClosed: func(peerID string) { closed <- peerID },
	})

	sig.emit(t, domain.MsgPeers, domain.PeerList{Peers: []domain.ParticipantInfo{{ID: "p1", Name: "Bob"}}})
	require.Equal(t, 1, orch.linkCount())

	sig.emit(t, domain.MsgPeerLeft, domain.PeerLeft{ID: "p1"})
	require.Zero(t, orch.linkCount())
	require.Equal(t, "p1", <-closed)

	sig.emit(t, domain.MsgPeerLeft, domain.PeerLeft{ID: "p1"})
	select {
	case <-closed:
		t.Fatal("closing a purged link must not fire the callback again")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMeetingEndedTearsEverythingDown(t *testing.T) {
	sig := newFakeSignaling("me")
	ended := make(chan domain.MeetingEnded, 1)
	orch := newTestOrchestrator(t, sig, Events{
		OnMeetingEnded: func(e domain.MeetingEnded) { ended <- e },
	})

	sig.emit(t, domain.MsgPeers, domain.PeerList{Peers: []domain.ParticipantInfo{{ID: "p1", Name: "Bob"}}})
	_, err := orch.StartScreenShare()
	require.NoError(t, err)

	sig.emit(t, domain.MsgMeetingEnded, domain.MeetingEnded{RoomID: "42", HostName: "Alice"})

	require.Zero(t, orch.linkCount())
	require.False(t, orch.Sharing())
	require.Equal(t, "Alice", (<-ended).HostName)

	// With no room there is nothing to chat into.
	orch.SendChat("hello?")
	require.Empty(t, sig.sentOfType(domain.MsgChat))
}

func TestPeerScreenShareStateDrivesClassification(t *testing.T) {
	sig := newFakeSignaling("me")
	screenEnded := make(chan string, 1)
	orch := newTestOrchestrator(t, sig, Events{
		OnRemoteScreenEnded: func(peerID string) { screenEnded <- peerID },
	})

	sig.emit(t, domain.MsgPeers, domain.PeerList{Peers: []domain.ParticipantInfo{{ID: "p1", Name: "Bob"}}})

	sig.emit(t, domain.MsgScreenShare, domain.ScreenShareState{ID: "p1", IsSharing: true})
	link := orch.linkFor("p1")
	require.True(t, link.sharing)
	require.True(t, link.expectingScreen)

	sig.emit(t, domain.MsgScreenShare, domain.ScreenShareState{ID: "p1", IsSharing: false})
	require.False(t, link.sharing)
	require.False(t, link.expectingScreen)
	require.Equal(t, "p1", <-screenEnded)
}

func TestLeaveNotifiesAndResets(t *testing.T) {
	sig := newFakeSignaling("me")
	sig.acks[domain.MsgJoinRoom] = domain.JoinRoomAck{Status: domain.JoinJoined, Role: domain.RoleHost}
	orch := newTestOrchestrator(t, sig, Events{})

	_, err := orch.Join(context.Background(), "42", "Alice", domain.IntentCreate)
	require.NoError(t, err)
	sig.emit(t, domain.MsgPeers, domain.PeerList{Peers: []domain.ParticipantInfo{{ID: "p1", Name: "Bob"}}})

	orch.Leave()

	leaves := sig.sentOfType(domain.MsgLeaveRoom)
	require.Len(t, leaves, 1)
	require.Equal(t, "42", decodeSent[domain.LeaveRoomRequest](t, leaves[0]).RoomID)
	require.Zero(t, orch.linkCount())
	require.False(t, orch.Sharing())

	// Leaving twice must not re-notify.
	orch.Leave()
	require.Len(t, sig.sentOfType(domain.MsgLeaveRoom), 1)
}

// mustOffer builds a real offer from a throwaway connection so remote
// descriptions in tests carry valid SDP.
func mustOffer(t *testing.T) webrtc.SessionDescription {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	defer pc.Close()

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
		t.Fatal(err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo); err != nil {
		t.Fatal(err)
	}
	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	return offer
}
