package media

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	pionmedia "github.com/pion/webrtc/v3/pkg/media"
)

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 100 * time.Millisecond
)

// SyntheticCapture fabricates silent audio and blank video tracks. It stands
// in for the platform capture layer in the headless peer and in tests.
type SyntheticCapture struct{}

func NewSyntheticCapture() *SyntheticCapture {
	return &SyntheticCapture{}
}

func (c *SyntheticCapture) Microphone(deviceID string) (CaptureTrack, error) {
	return newSampleTrack(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio-"+uuid.NewString(), "capture-"+deviceID, audioFrameInterval)
}

func (c *SyntheticCapture) Camera(deviceID string) (CaptureTrack, error) {
	return newSampleTrack(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video-"+uuid.NewString(), "capture-"+deviceID, videoFrameInterval)
}

func (c *SyntheticCapture) Screen() (CaptureTrack, error) {
	return newSampleTrack(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"screen-"+uuid.NewString(), "screen-"+uuid.NewString(), videoFrameInterval)
}

// sampleTrack pumps placeholder samples into a static sample track while
// enabled. Close stops the pump and fires the OnEnded callbacks.
type sampleTrack struct {
	*webrtc.TrackLocalStaticSample

	interval time.Duration

	mu      sync.Mutex
	enabled bool
	onEnded []func()

	done      chan struct{}
	closeOnce sync.Once
}

func newSampleTrack(codec webrtc.RTPCodecCapability, id, streamID string, interval time.Duration) (*sampleTrack, error) {
	inner, err := webrtc.NewTrackLocalStaticSample(codec, id, streamID)
	if err != nil {
		return nil, err
	}

	t := &sampleTrack{
		TrackLocalStaticSample: inner,
		interval:               interval,
		enabled:                true,
		done:                   make(chan struct{}),
	}
	go t.pump()
	return t, nil
}

func (t *sampleTrack) pump() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if !t.Enabled() {
				continue
			}
			_ = t.WriteSample(pionmedia.Sample{
				Data:     []byte{0x00},
				Duration: t.interval,
			})
		}
	}
}

func (t *sampleTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *sampleTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *sampleTrack) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = append(t.onEnded, fn)
	t.mu.Unlock()
}

func (t *sampleTrack) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		callbacks := t.onEnded
		t.onEnded = nil
		t.mu.Unlock()

		for _, fn := range callbacks {
			fn()
		}
	})
	return nil
}
