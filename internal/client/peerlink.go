package client

import (
	"errors"

	"github.com/pion/webrtc/v3"
)

// ErrNotStable reports a renegotiation that was skipped because the link was
// mid-negotiation. The media on that link may be stale until the next
// completed negotiation backfills it.
var ErrNotStable = errors.New("renegotiation skipped: signaling state not stable")

// RemoteFeed is the classification of an inbound track.
type RemoteFeed int

const (
	FeedCamera RemoteFeed = iota
	FeedScreen
)

// peerLink is the consolidated per-remote-participant record: the negotiated
// connection, the senders for each local slot, and the auxiliary flags that
// drive inbound track classification. All fields are guarded by the
// orchestrator's mutex.
type peerLink struct {
	id   string
	name string
	pc   *webrtc.PeerConnection

	micSender    *webrtc.RTPSender
	cameraSender *webrtc.RTPSender
	screenSender *webrtc.RTPSender

	// stream ids on which an audio track has arrived; a video track sharing
	// such a stream is always a camera feed.
	audioStreams map[string]bool

	expectingScreen bool
	sharing         bool
	videoEnabled    bool
}

func newPeerLink(id string, pc *webrtc.PeerConnection) *peerLink {
	return &peerLink{
		id:           id,
		pc:           pc,
		audioStreams: make(map[string]bool),
		videoEnabled: true,
	}
}

func (l *peerLink) stable() bool {
	return l.pc.SignalingState() == webrtc.SignalingStateStable
}

// classifyRemoteFeed decides whether a video track is the remote screen or
// the remote camera. The transport multiplexes both as plain track
// additions, so the split is inferred from stream composition plus the
// out-of-band sharer state.
func classifyRemoteFeed(kind webrtc.RTPCodecType, streamHasAudio, expectingScreen, peerIsSharing bool) RemoteFeed {
	if kind != webrtc.RTPCodecTypeVideo {
		return FeedCamera
	}
	if streamHasAudio {
		return FeedCamera
	}
	if expectingScreen || peerIsSharing {
		return FeedScreen
	}
	return FeedCamera
}
