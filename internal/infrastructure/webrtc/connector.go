package webrtc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Config carries the transport settings shared by every link.
type Config struct {
	ICEServers []webrtc.ICEServer
}

// ConfigFromURLs builds a Config from plain STUN/TURN URLs.
func ConfigFromURLs(urls []string) Config {
	servers := make([]webrtc.ICEServer, 0, len(urls))
	for _, u := range urls {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}
	return Config{ICEServers: servers}
}

func (c Config) rtcConfig() webrtc.Configuration {
	return webrtc.Configuration{ICEServers: c.ICEServers}
}

// MediaSource is the seller's capture pipeline: one audio and one video track
// that every outgoing link shares. Implemented by the media package.
type MediaSource interface {
	AudioTrack() *webrtc.TrackLocalStaticRTP
	VideoTrack() *webrtc.TrackLocalStaticRTP
	Close() error
}

// HostConnector opens send-only links that all publish the same media
// source. It owns the source: Close releases it exactly once, and opening a
// link after Close fails.
type HostConnector struct {
	config Config
	source MediaSource
	logger *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

func NewHostConnector(config Config, source MediaSource, logger *zap.SugaredLogger) *HostConnector {
	return &HostConnector{config: config, source: source, logger: logger}
}

func (c *HostConnector) Open(ctx context.Context, remote domain.UserID) (ports.PeerLink, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("connector is closed")
	}
	c.mu.Unlock()

	pc, err := webrtc.NewPeerConnection(c.config.rtcConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	for _, track := range []*webrtc.TrackLocalStaticRTP{
		c.source.AudioTrack(),
		c.source.VideoTrack(),
	} {
		sender, err := pc.AddTrack(track)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("failed to add %s track: %w", track.Kind(), err)
		}
		go drainSenderRTCP(sender, remote, c.logger)
	}

	c.logger.Infow("opened outbound link", "remote", remote)
	return newPeerLink(remote, pc, c.logger), nil
}

func (c *HostConnector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.source.Close()
}

// TrackHandler consumes one inbound remote track. It runs on a transport
// goroutine and should read until the track ends.
type TrackHandler func(remote domain.UserID, track *webrtc.TrackRemote)

// ViewerConnector opens receive-only links. At most one is expected per
// session; the coordinator enforces that.
type ViewerConnector struct {
	config  Config
	onTrack TrackHandler
	logger  *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// NewViewerConnector builds the audience-side connector. onTrack may be nil;
// inbound media is then drained and discarded, which still keeps the RTCP
// feedback loop alive.
func NewViewerConnector(config Config, onTrack TrackHandler, logger *zap.SugaredLogger) *ViewerConnector {
	return &ViewerConnector{config: config, onTrack: onTrack, logger: logger}
}

func (c *ViewerConnector) Open(ctx context.Context, remote domain.UserID) (ports.PeerLink, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("connector is closed")
	}
	c.mu.Unlock()

	pc, err := webrtc.NewPeerConnection(c.config.rtcConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	for _, kind := range []webrtc.RTPCodecType{
		webrtc.RTPCodecTypeAudio,
		webrtc.RTPCodecTypeVideo,
	} {
		if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			pc.Close()
			return nil, fmt.Errorf("failed to add %s transceiver: %w", kind, err)
		}
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		c.logger.Infow("inbound track started",
			"remote", remote, "kind", track.Kind(), "ssrc", track.SSRC())

		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.requestKeyframes(pc, track)
		}

		if c.onTrack != nil {
			c.onTrack(remote, track)
			return
		}
		buf := make([]byte, 1500)
		for {
			if _, _, err := track.Read(buf); err != nil {
				return
			}
		}
	})

	c.logger.Infow("opened inbound link", "remote", remote)
	return newPeerLink(remote, pc, c.logger), nil
}

// requestKeyframes nudges the sender with a PLI every few seconds so a
// viewer joining mid-stream gets a decodable picture promptly.
func (c *ViewerConnector) requestKeyframes(pc *webrtc.PeerConnection, track *webrtc.TrackRemote) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		err := pc.WriteRTCP([]rtcp.Packet{
			&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
		})
		if err != nil {
			return
		}
	}
}

func (c *ViewerConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
