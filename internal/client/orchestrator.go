package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/peercall/peercall/internal/domain"
	"github.com/peercall/peercall/internal/media"
	"github.com/peercall/peercall/lib/logger/sl"
)

// Events are the optional callbacks the embedding application receives.
// Unset callbacks are skipped.
type Events struct {
	OnRemoteCamera      func(peerID string, track *webrtc.TrackRemote)
	OnRemoteScreen      func(peerID string, track *webrtc.TrackRemote)
	OnRemoteScreenEnded func(peerID string)
	OnPeerClosed        func(peerID string)
	OnPeerVideoState    func(peerID string, videoEnabled bool)
	OnParticipants      func(participants []domain.ParticipantInfo)
	OnPendingRequests   func(update domain.PendingUpdate)
	OnChat              func(msg domain.ChatMessage)
	OnMeetingEnded      func(ended domain.MeetingEnded)
	OnEntryApproved     func(approved domain.EntryApproved)
	OnEntryWaiting      func(waiting domain.EntryWaiting)
	OnEntryDenied       func(reason string, revoked bool)
	OnLocalPreview      func(screen bool)
}

// Orchestrator owns one negotiated peer connection per remote participant:
// it drives offer/answer/ICE through the signaling channel, attaches and
// renegotiates local tracks, and classifies what arrives.
type Orchestrator struct {
	log     *slog.Logger
	sig     Signaling
	capture media.Capture
	rtc     webrtc.Configuration
	events  Events

	mu         sync.Mutex
	roomID     string
	name       string
	links      map[string]*peerLink
	micSlot    *media.TrackSlot
	cameraSlot *media.TrackSlot
	screenSlot *media.TrackSlot
	sharing    bool
	sharerID   string
	muted      bool
	videoOn    bool
}

func NewOrchestrator(sig Signaling, capture media.Capture, stunServers []string, events Events, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	o := &Orchestrator{
		log:     log,
		sig:     sig,
		capture: capture,
		rtc: webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{{URLs: stunServers}},
		},
		events:  events,
		links:   make(map[string]*peerLink),
		videoOn: true,
	}
	sig.SetHandler(o.handleEvent)
	return o
}

// StartMedia acquires the baseline microphone and camera feeds every peer
// connection is created with.
func (o *Orchestrator) StartMedia(micDeviceID, cameraDeviceID string) error {
	mic, err := o.capture.Microphone(micDeviceID)
	if err != nil {
		return err
	}
	camera, err := o.capture.Camera(cameraDeviceID)
	if err != nil {
		mic.Close()
		return err
	}

	o.mu.Lock()
	o.micSlot = media.NewTrackSlot(media.SlotMicrophone, mic)
	o.cameraSlot = media.NewTrackSlot(media.SlotCamera, camera)
	o.mu.Unlock()
	return nil
}

// RoomExists asks the coordinator whether a room is live. The context bounds
// the wait; callers treat expiry as failure and may retry.
func (o *Orchestrator) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var ack domain.RoomExistsAck
	err := o.sig.Request(ctx, domain.MsgRoomExists, domain.RoomExistsRequest{RoomID: roomID}, &ack)
	if err != nil {
		return false, err
	}
	return ack.Exists, nil
}

// Join requests room entry. On "joined" the current media state is announced
// right away; on "waiting" the coordinator drives the rest via events.
func (o *Orchestrator) Join(ctx context.Context, roomID, name string, intent domain.JoinIntent) (domain.JoinRoomAck, error) {
	var ack domain.JoinRoomAck
	err := o.sig.Request(ctx, domain.MsgJoinRoom, domain.JoinRoomRequest{
		RoomID: roomID,
		Name:   name,
		Intent: intent,
	}, &ack)
	if err != nil {
		return ack, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch ack.Status {
	case domain.JoinJoined, domain.JoinWaiting:
		o.roomID = roomID
		o.name = name
	default:
		return ack, nil
	}

	if ack.Status == domain.JoinJoined {
		o.announceMediaState()
	}
	return ack, nil
}

func (o *Orchestrator) announceMediaState() {
	_ = o.sig.Notify(domain.MsgVideoState, domain.VideoState{
		RoomID:       o.roomID,
		VideoEnabled: o.videoOn,
	})
	if o.sharing {
		_ = o.sig.Notify(domain.MsgScreenShare, domain.ScreenShareState{
			RoomID:    o.roomID,
			IsSharing: true,
		})
	}
}

// Leave tears the whole session down: every peer connection, every capture
// slot, and the coordinator-side membership. Leave is all-or-nothing.
func (o *Orchestrator) Leave() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.roomID != "" {
		_ = o.sig.Notify(domain.MsgLeaveRoom, domain.LeaveRoomRequest{RoomID: o.roomID})
	}

	for peerID := range o.links {
		o.closeLinkLocked(peerID)
	}
	if o.screenSlot != nil {
		o.screenSlot.Close()
		o.screenSlot = nil
	}
	if o.cameraSlot != nil {
		o.cameraSlot.Close()
		o.cameraSlot = nil
	}
	if o.micSlot != nil {
		o.micSlot.Close()
		o.micSlot = nil
	}
	o.sharing = false
	o.sharerID = ""
	o.roomID = ""
}

func (o *Orchestrator) SendChat(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.roomID == "" {
		return
	}
	_ = o.sig.Notify(domain.MsgChat, domain.ChatMessage{
		RoomID:  o.roomID,
		Name:    o.name,
		Message: message,
	})
}

func (o *Orchestrator) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = muted
	if o.micSlot != nil {
		o.micSlot.SetEnabled(!muted)
	}
}

func (o *Orchestrator) SetVideoEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.videoOn = enabled
	if o.cameraSlot != nil {
		o.cameraSlot.SetEnabled(enabled)
	}
	if o.roomID != "" {
		_ = o.sig.Notify(domain.MsgVideoState, domain.VideoState{
			RoomID:       o.roomID,
			VideoEnabled: enabled,
		})
	}
}

// SwitchMicrophone swaps the mic device. Senders keep their slot, so no
// renegotiation happens; every connection observes the new track at once.
func (o *Orchestrator) SwitchMicrophone(deviceID string) error {
	track, err := o.capture.Microphone(deviceID)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.switchSlot(o.micSlot, track, func(l *peerLink) *webrtc.RTPSender { return l.micSender })
}

func (o *Orchestrator) SwitchCamera(deviceID string) error {
	track, err := o.capture.Camera(deviceID)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.switchSlot(o.cameraSlot, track, func(l *peerLink) *webrtc.RTPSender { return l.cameraSender })
}

func (o *Orchestrator) switchSlot(slot *media.TrackSlot, track media.CaptureTrack, sender func(*peerLink) *webrtc.RTPSender) error {
	if slot == nil {
		track.Close()
		return media.ErrNoTrack
	}
	previous, err := slot.Replace(track)
	if err != nil {
		track.Close()
		return err
	}
	for _, link := range o.links {
		s := sender(link)
		if s == nil {
			continue
		}
		if err := s.ReplaceTrack(track); err != nil {
			o.log.Debug("track replace failed", slog.String("peer_id", link.id), sl.Err(err))
		}
	}
	return previous.Close()
}

// StartScreenShare acquires a screen track, claims the room's sharer slot
// and renegotiates every stable link. It returns how many links were skipped
// because they were mid-negotiation.
func (o *Orchestrator) StartScreenShare() (skipped int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sharing {
		return 0, nil
	}
	track, err := o.capture.Screen()
	if err != nil {
		return 0, err
	}

	o.screenSlot = media.NewTrackSlot(media.SlotScreen, track)
	o.sharing = true
	_ = o.sig.Notify(domain.MsgScreenShare, domain.ScreenShareState{
		RoomID:    o.roomID,
		IsSharing: true,
	})
	o.emitLocalPreview(true)

	// Native "stop sharing" affordance runs the same stop sequence. The
	// goroutine avoids re-entering the mutex when we close the track
	// ourselves.
	track.OnEnded(func() {
		go o.StopScreenShare()
	})

	for _, link := range o.links {
		if !link.stable() {
			skipped++
			continue
		}
		if err := o.attachScreenLocked(link); err != nil {
			o.log.Debug("screen attach failed", slog.String("peer_id", link.id), sl.Err(err))
		}
	}
	return skipped, nil
}

// StopScreenShare stops the capture, renegotiates removal on every stable
// link and releases the sharer slot. Safe to call when not sharing.
func (o *Orchestrator) StopScreenShare() (skipped int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopScreenShareLocked(), nil
}

func (o *Orchestrator) stopScreenShareLocked() (skipped int) {
	if !o.sharing {
		return 0
	}
	o.sharing = false

	if o.screenSlot != nil {
		o.screenSlot.Close()
		o.screenSlot = nil
	}

	for _, link := range o.links {
		sender := link.screenSender
		if sender == nil {
			continue
		}
		link.screenSender = nil
		if !link.stable() {
			skipped++
			continue
		}
		if err := link.pc.RemoveTrack(sender); err != nil {
			o.log.Debug("screen detach failed", slog.String("peer_id", link.id), sl.Err(err))
			continue
		}
		if err := o.offerLocked(link); err != nil {
			o.log.Debug("reoffer after screen stop failed", slog.String("peer_id", link.id), sl.Err(err))
		}
	}

	_ = o.sig.Notify(domain.MsgScreenShare, domain.ScreenShareState{
		RoomID:    o.roomID,
		IsSharing: false,
	})
	o.emitLocalPreview(false)
	return skipped
}

func (o *Orchestrator) Sharing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sharing
}

// SharerID returns the coordinator-announced sharer, or "" when the slot is
// free.
func (o *Orchestrator) SharerID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sharerID
}

func (o *Orchestrator) IsLocalSharer() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sharerID == "" {
		return o.sharing
	}
	return o.sharerID == o.sig.ConnID()
}

// handleEvent dispatches coordinator events. The signaling layer calls it on
// one goroutine, so events for a single remote id are serialized.
func (o *Orchestrator) handleEvent(env domain.Envelope) {
	switch env.Type {
	case domain.MsgPeers:
		var list domain.PeerList
		if env.Decode(&list) == nil {
			o.handlePeers(list)
		}
	case domain.MsgPeerJoined:
		var info domain.ParticipantInfo
		if env.Decode(&info) == nil {
			o.handlePeerJoined(info)
		}
	case domain.MsgPeerLeft:
		var left domain.PeerLeft
		if env.Decode(&left) == nil {
			o.closeLink(left.ID)
		}
	case domain.MsgOffer:
		var payload domain.SessionDescriptionPayload
		if env.Decode(&payload) == nil {
			o.handleOffer(payload)
		}
	case domain.MsgAnswer:
		var payload domain.SessionDescriptionPayload
		if env.Decode(&payload) == nil {
			o.handleAnswer(payload)
		}
	case domain.MsgICECandidate:
		var payload domain.ICECandidatePayload
		if env.Decode(&payload) == nil {
			o.handleICECandidate(payload)
		}
	case domain.MsgScreenShare:
		var state domain.ScreenShareState
		if env.Decode(&state) == nil {
			o.handlePeerScreenShare(state)
		}
	case domain.MsgScreenSharer:
		var sharer domain.ScreenSharer
		if env.Decode(&sharer) == nil {
			o.handleScreenSharer(sharer)
		}
	case domain.MsgPeerVideoState:
		var state domain.PeerVideoState
		if env.Decode(&state) == nil {
			o.handlePeerVideoState(state)
		}
	case domain.MsgMeetingEnded:
		var ended domain.MeetingEnded
		if env.Decode(&ended) == nil {
			o.handleMeetingEnded(ended)
		}
	case domain.MsgParticipants:
		var update domain.ParticipantsUpdate
		if env.Decode(&update) == nil && o.events.OnParticipants != nil {
			o.events.OnParticipants(update.Participants)
		}
	case domain.MsgPendingRequests:
		var update domain.PendingUpdate
		if env.Decode(&update) == nil && o.events.OnPendingRequests != nil {
			o.events.OnPendingRequests(update)
		}
	case domain.MsgChat:
		var msg domain.ChatMessage
		if env.Decode(&msg) == nil && o.events.OnChat != nil {
			o.events.OnChat(msg)
		}
	case domain.MsgEntryApproved:
		var approved domain.EntryApproved
		if env.Decode(&approved) == nil {
			o.mu.Lock()
			o.roomID = approved.RoomID
			o.announceMediaState()
			o.mu.Unlock()
			if o.events.OnEntryApproved != nil {
				o.events.OnEntryApproved(approved)
			}
		}
	case domain.MsgEntryWaiting:
		var waiting domain.EntryWaiting
		if env.Decode(&waiting) == nil && o.events.OnEntryWaiting != nil {
			o.events.OnEntryWaiting(waiting)
		}
	case domain.MsgEntryDenied:
		var denied domain.EntryDenied
		if env.Decode(&denied) == nil && o.events.OnEntryDenied != nil {
			o.events.OnEntryDenied(denied.Reason, false)
		}
	case domain.MsgEntryRevoked:
		var denied domain.EntryDenied
		if env.Decode(&denied) == nil && o.events.OnEntryDenied != nil {
			o.events.OnEntryDenied(denied.Reason, true)
		}
	case domain.MsgWelcome:
		// handshake already consumed by Dial; duplicates are ignored.
	default:
		o.log.Debug("unhandled event", slog.String("type", string(env.Type)))
	}
}

// handlePeers prepares a connection per roster entry. The new joiner never
// offers; each existing member offers to it on peer-joined.
func (o *Orchestrator) handlePeers(list domain.PeerList) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, info := range list.Peers {
		link, err := o.ensureLinkLocked(info.ID)
		if err != nil {
			o.log.Error("failed to prepare peer connection", slog.String("peer_id", info.ID), sl.Err(err))
			continue
		}
		link.name = info.Name
	}
}

func (o *Orchestrator) handlePeerJoined(info domain.ParticipantInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()

	link, err := o.ensureLinkLocked(info.ID)
	if err != nil {
		o.log.Error("failed to create peer connection", slog.String("peer_id", info.ID), sl.Err(err))
		return
	}
	link.name = info.Name

	if !link.stable() {
		return
	}
	if o.sharing && o.screenSlot != nil && link.screenSender == nil {
		if err := attachScreenSender(link, o.screenSlot.Track()); err != nil {
			o.log.Debug("screen attach for newcomer failed", slog.String("peer_id", info.ID), sl.Err(err))
		}
	}
	if err := o.offerLocked(link); err != nil {
		// State may have flipped if their offer crossed ours; drop ours.
		return
	}
	if o.sharing {
		_ = o.sig.Notify(domain.MsgScreenShare, domain.ScreenShareState{
			RoomID:    o.roomID,
			IsSharing: true,
		})
	}
}

func (o *Orchestrator) handleOffer(payload domain.SessionDescriptionPayload) {
	o.mu.Lock()
	defer o.mu.Unlock()

	link, err := o.ensureLinkLocked(payload.From)
	if err != nil {
		return
	}
	// Glare: both sides offered. Dropping theirs here would desync, dropping
	// ours happened in handlePeerJoined; a non-stable link means our own
	// offer is in flight, so ignore.
	if !link.stable() {
		return
	}
	if err := link.pc.SetRemoteDescription(payload.SDP); err != nil {
		o.log.Debug("set remote offer failed", slog.String("peer_id", link.id), sl.Err(err))
		return
	}
	answer, err := link.pc.CreateAnswer(nil)
	if err != nil {
		return
	}
	if err := link.pc.SetLocalDescription(answer); err != nil {
		return
	}
	_ = o.sig.Notify(domain.MsgAnswer, domain.SessionDescriptionPayload{
		To:  link.id,
		SDP: answer,
	})
	o.backfillScreenLocked(link)
}

func (o *Orchestrator) handleAnswer(payload domain.SessionDescriptionPayload) {
	o.mu.Lock()
	defer o.mu.Unlock()

	link, ok := o.links[payload.From]
	if !ok {
		return
	}
	if err := link.pc.SetRemoteDescription(payload.SDP); err != nil {
		o.log.Debug("set remote answer failed", slog.String("peer_id", link.id), sl.Err(err))
		return
	}
	o.backfillScreenLocked(link)
}

func (o *Orchestrator) handleICECandidate(payload domain.ICECandidatePayload) {
	o.mu.Lock()
	link, ok := o.links[payload.From]
	o.mu.Unlock()
	if !ok {
		return
	}
	// Candidates that fail to apply are dropped; ICE recovers on its own.
	_ = link.pc.AddICECandidate(payload.Candidate)
}

func (o *Orchestrator) handlePeerScreenShare(state domain.ScreenShareState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	link, ok := o.links[state.ID]
	if !ok {
		return
	}
	link.sharing = state.IsSharing
	if state.IsSharing {
		link.expectingScreen = true
		return
	}
	link.expectingScreen = false
	if o.events.OnRemoteScreenEnded != nil {
		o.events.OnRemoteScreenEnded(state.ID)
	}
}

// handleScreenSharer applies the coordinator's single-slot verdict. If the
// slot moved to someone else while this client is sharing, the local share
// stops so at most one sharer stays active.
func (o *Orchestrator) handleScreenSharer(sharer domain.ScreenSharer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := ""
	if sharer.ID != nil {
		id = *sharer.ID
	}
	o.sharerID = id

	for linkID, link := range o.links {
		link.sharing = linkID == id
	}

	if id != "" && id != o.sig.ConnID() {
		if link, ok := o.links[id]; ok {
			link.expectingScreen = true
		}
		if o.sharing {
			o.stopScreenShareLocked()
		}
	}
}

func (o *Orchestrator) handlePeerVideoState(state domain.PeerVideoState) {
	o.mu.Lock()
	if link, ok := o.links[state.PeerID]; ok {
		link.videoEnabled = state.VideoEnabled
	}
	o.mu.Unlock()
	if o.events.OnPeerVideoState != nil {
		o.events.OnPeerVideoState(state.PeerID, state.VideoEnabled)
	}
}

func (o *Orchestrator) handleMeetingEnded(ended domain.MeetingEnded) {
	o.mu.Lock()
	for peerID := range o.links {
		o.closeLinkLocked(peerID)
	}
	o.sharing = false
	o.sharerID = ""
	o.roomID = ""
	if o.screenSlot != nil {
		o.screenSlot.Close()
		o.screenSlot = nil
	}
	o.mu.Unlock()

	if o.events.OnMeetingEnded != nil {
		o.events.OnMeetingEnded(ended)
	}
}

// ensureLinkLocked returns the link for peerID, creating the connection and
// eagerly attaching the baseline mic and camera tracks on first use.
func (o *Orchestrator) ensureLinkLocked(peerID string) (*peerLink, error) {
	if link, ok := o.links[peerID]; ok {
		return link, nil
	}

	pc, err := webrtc.NewPeerConnection(o.rtc)
	if err != nil {
		return nil, err
	}
	link := newPeerLink(peerID, pc)
	o.links[peerID] = link

	if o.micSlot != nil {
		if track := o.micSlot.Track(); track != nil {
			if sender, err := pc.AddTrack(track); err == nil {
				link.micSender = sender
			}
		}
	}
	if o.cameraSlot != nil {
		if track := o.cameraSlot.Track(); track != nil {
			if sender, err := pc.AddTrack(track); err == nil {
				link.cameraSender = sender
			}
		}
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		_ = o.sig.Notify(domain.MsgICECandidate, domain.ICECandidatePayload{
			To:        peerID,
			Candidate: candidate.ToJSON(),
		})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		o.handleRemoteTrack(peerID, track)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateDisconnected,
			webrtc.PeerConnectionStateClosed:
			o.closeLink(peerID)
		}
	})

	return link, nil
}

func (o *Orchestrator) handleRemoteTrack(peerID string, track *webrtc.TrackRemote) {
	o.mu.Lock()
	link, ok := o.links[peerID]
	if !ok {
		o.mu.Unlock()
		return
	}

	if track.Kind() == webrtc.RTPCodecTypeAudio {
		link.audioStreams[track.StreamID()] = true
	}
	feed := classifyRemoteFeed(
		track.Kind(),
		link.audioStreams[track.StreamID()],
		link.expectingScreen,
		link.sharing || o.sharerID == peerID,
	)
	if feed == FeedScreen {
		link.expectingScreen = false
	}
	o.mu.Unlock()

	if feed == FeedScreen {
		if o.events.OnRemoteScreen != nil {
			o.events.OnRemoteScreen(peerID, track)
		}
	} else if o.events.OnRemoteCamera != nil {
		o.events.OnRemoteCamera(peerID, track)
	}

	go drainTrack(track)
}

// drainTrack keeps the receiver flowing for feeds the application does not
// consume itself.
func drainTrack(track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}

// offerLocked generates and sends a fresh offer, moving the link out of
// stable until the matching answer arrives.
func (o *Orchestrator) offerLocked(link *peerLink) error {
	offer, err := link.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := link.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	return o.sig.Notify(domain.MsgOffer, domain.SessionDescriptionPayload{
		To:  link.id,
		SDP: offer,
	})
}

// attachScreenLocked adds the screen track to a stable link and renegotiates.
func (o *Orchestrator) attachScreenLocked(link *peerLink) error {
	if !link.stable() {
		return ErrNotStable
	}
	if o.screenSlot == nil {
		return media.ErrNoTrack
	}
	if err := attachScreenSender(link, o.screenSlot.Track()); err != nil {
		return err
	}
	if err := o.offerLocked(link); err != nil {
		link.screenSender = nil
		return err
	}
	return nil
}

func attachScreenSender(link *peerLink, track media.CaptureTrack) error {
	if track == nil {
		return media.ErrNoTrack
	}
	sender, err := link.pc.AddTrack(track)
	if err != nil {
		return err
	}
	link.screenSender = sender
	return nil
}

// backfillScreenLocked heals links that were skipped during a share start:
// once a completed negotiation returns the link to stable, the screen track
// is attached and reoffered.
func (o *Orchestrator) backfillScreenLocked(link *peerLink) {
	if !o.sharing || o.screenSlot == nil || link.screenSender != nil {
		return
	}
	if !link.stable() {
		return
	}
	if err := o.attachScreenLocked(link); err != nil {
		o.log.Debug("screen backfill failed", slog.String("peer_id", link.id), sl.Err(err))
	}
}

func (o *Orchestrator) closeLink(peerID string) {
	o.mu.Lock()
	o.closeLinkLocked(peerID)
	o.mu.Unlock()
}

// closeLinkLocked detaches every handler, closes the connection and purges
// the whole per-peer record.
func (o *Orchestrator) closeLinkLocked(peerID string) {
	link, ok := o.links[peerID]
	if !ok {
		return
	}
	link.pc.OnTrack(nil)
	link.pc.OnICECandidate(nil)
	link.pc.OnConnectionStateChange(nil)
	if err := link.pc.Close(); err != nil {
		o.log.Debug("peer connection close failed", slog.String("peer_id", peerID), sl.Err(err))
	}
	delete(o.links, peerID)

	if o.events.OnPeerClosed != nil {
		o.events.OnPeerClosed(peerID)
	}
}

func (o *Orchestrator) emitLocalPreview(screen bool) {
	if o.events.OnLocalPreview != nil {
		o.events.OnLocalPreview(screen)
	}
}
