package client

import (
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"
)

func TestClassifyRemoteFeed(t *testing.T) {
	tests := []struct {
		name            string
		kind            webrtc.RTPCodecType
		streamHasAudio  bool
		expectingScreen bool
		peerIsSharing   bool
		want            RemoteFeed
	}{
		{"audio is never a screen", webrtc.RTPCodecTypeAudio, false, true, true, FeedCamera},
		{"video on audio stream is the camera", webrtc.RTPCodecTypeVideo, true, true, true, FeedCamera},
		{"expected audioless video is the screen", webrtc.RTPCodecTypeVideo, false, true, false, FeedScreen},
		{"sharing peer sends the screen", webrtc.RTPCodecTypeVideo, false, false, true, FeedScreen},
		{"unannounced audioless video stays camera", webrtc.RTPCodecTypeVideo, false, false, false, FeedCamera},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyRemoteFeed(tt.kind, tt.streamHasAudio, tt.expectingScreen, tt.peerIsSharing)
			require.Equal(t, tt.want, got)
		})
	}
}
