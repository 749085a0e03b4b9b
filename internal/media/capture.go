package media

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v3"
)

var ErrNoTrack = errors.New("slot holds no track")

type SlotKind string

const (
	SlotMicrophone SlotKind = "microphone"
	SlotCamera     SlotKind = "camera"
	SlotScreen     SlotKind = "screen"
)

// CaptureTrack is a local media feed produced by a capture device. The
// enabled flag gates whether the source writes frames; every peer connection
// the track is attached to observes a toggle simultaneously.
type CaptureTrack interface {
	webrtc.TrackLocal

	SetEnabled(enabled bool)
	Enabled() bool

	// OnEnded registers a callback for the source terminating on its own,
	// e.g. the platform's native "stop sharing" affordance.
	OnEnded(fn func())

	Close() error
}

// Capture produces camera, microphone and screen tracks on request. The real
// device layer is platform-specific; tests and the headless peer use the
// synthetic implementation.
type Capture interface {
	Microphone(deviceID string) (CaptureTrack, error)
	Camera(deviceID string) (CaptureTrack, error)
	Screen() (CaptureTrack, error)
}

// TrackSlot is one logical feed (mic, camera or screen). Replacing the
// underlying track swaps devices without changing which slot the senders
// belong to.
type TrackSlot struct {
	kind SlotKind

	mu    sync.Mutex
	track CaptureTrack
}

func NewTrackSlot(kind SlotKind, track CaptureTrack) *TrackSlot {
	return &TrackSlot{kind: kind, track: track}
}

func (s *TrackSlot) Kind() SlotKind {
	return s.kind
}

func (s *TrackSlot) Track() CaptureTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Replace swaps in a new capture track and returns the previous one so the
// caller can rewire senders before stopping it.
func (s *TrackSlot) Replace(track CaptureTrack) (CaptureTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil {
		return nil, ErrNoTrack
	}
	previous := s.track
	track.SetEnabled(previous.Enabled())
	s.track = track
	return previous, nil
}

func (s *TrackSlot) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track != nil {
		s.track.SetEnabled(enabled)
	}
}

func (s *TrackSlot) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track != nil && s.track.Enabled()
}

func (s *TrackSlot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil {
		return nil
	}
	err := s.track.Close()
	s.track = nil
	return err
}
