package webrtc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"livecart/internal/core/domain"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// peerLink wraps one *webrtc.PeerConnection behind ports.PeerLink. Local
// descriptions are set before gathering completes, so candidates trickle out
// through the OnCandidate callback one by one instead of being bundled into
// the SDP.
type peerLink struct {
	remote domain.UserID
	pc     *webrtc.PeerConnection
	logger *zap.SugaredLogger

	mu          sync.Mutex
	onCandidate func(json.RawMessage)
	onConnected func()
	connected   bool
	closed      bool
}

func newPeerLink(remote domain.UserID, pc *webrtc.PeerConnection, logger *zap.SugaredLogger) *peerLink {
	l := &peerLink{remote: remote, pc: pc, logger: logger}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return // gathering finished
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			l.logger.Warnw("failed to marshal candidate", "remote", l.remote, "error", err)
			return
		}
		l.mu.Lock()
		cb := l.onCandidate
		l.mu.Unlock()
		if cb != nil {
			cb(raw)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		l.logger.Debugw("connection state changed", "remote", l.remote, "state", state)
		if state != webrtc.PeerConnectionStateConnected {
			return
		}
		l.mu.Lock()
		first := !l.connected
		l.connected = true
		cb := l.onConnected
		l.mu.Unlock()
		if first && cb != nil {
			cb()
		}
	})

	return l
}

func (l *peerLink) CreateOffer(ctx context.Context) (string, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}
	return offer.SDP, nil
}

func (l *peerLink) HandleOffer(ctx context.Context, sdp string) (string, error) {
	if err := l.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}); err != nil {
		return "", fmt.Errorf("failed to apply offer: %w", err)
	}
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}
	return answer.SDP, nil
}

func (l *peerLink) HandleAnswer(ctx context.Context, sdp string) error {
	if err := l.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	}); err != nil {
		return fmt.Errorf("failed to apply answer: %w", err)
	}
	return nil
}

func (l *peerLink) AddCandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("invalid candidate: %w", err)
	}
	if err := l.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("failed to add candidate: %w", err)
	}
	return nil
}

func (l *peerLink) OnCandidate(fn func(candidate json.RawMessage)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onCandidate = fn
}

func (l *peerLink) OnConnected(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onConnected = fn
}

func (l *peerLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.pc.Close()
}

// drainSenderRTCP consumes receiver reports from one RTP sender so congestion
// feedback keeps flowing; PLI requests are logged since a static source has
// no keyframe to force.
func drainSenderRTCP(sender *webrtc.RTPSender, remote domain.UserID, logger *zap.SugaredLogger) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			if err != io.EOF && err != io.ErrClosedPipe {
				logger.Debugw("rtcp read ended", "remote", remote, "error", err)
			}
			return
		}
		for _, pkt := range packets {
			if _, ok := pkt.(*rtcp.PictureLossIndication); ok {
				logger.Debugw("viewer requested keyframe", "remote", remote)
			}
		}
	}
}
