package media

import (
	"fmt"
	"net"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// RTPSource captures the seller's feed from two local RTP/UDP streams, one
// audio and one video, typically produced by ffmpeg or gstreamer. Both
// sockets are bound up front: if either bind fails the seller has no media
// and hosting must not start.
type RTPSource struct {
	audioTrack *webrtc.TrackLocalStaticRTP
	videoTrack *webrtc.TrackLocalStaticRTP
	audioConn  *net.UDPConn
	videoConn  *net.UDPConn

	closeOnce sync.Once
	closeErr  error

	logger *zap.SugaredLogger
}

// NewRTPSource binds both ingest sockets and starts pumping packets onto the
// shared tracks.
func NewRTPSource(audioAddr, videoAddr string, logger *zap.SugaredLogger) (*RTPSource, error) {
	audioTrack, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "livecart-audio")
	if err != nil {
		return nil, fmt.Errorf("failed to create audio track: %w", err)
	}
	videoTrack, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "livecart-video")
	if err != nil {
		return nil, fmt.Errorf("failed to create video track: %w", err)
	}

	audioConn, err := listenUDP(audioAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire audio source at %s: %w", audioAddr, err)
	}
	videoConn, err := listenUDP(videoAddr)
	if err != nil {
		audioConn.Close()
		return nil, fmt.Errorf("failed to acquire video source at %s: %w", videoAddr, err)
	}

	s := &RTPSource{
		audioTrack: audioTrack,
		videoTrack: videoTrack,
		audioConn:  audioConn,
		videoConn:  videoConn,
		logger:     logger,
	}
	go s.pump(audioConn, audioTrack, "audio")
	go s.pump(videoConn, videoTrack, "video")

	logger.Infow("media source acquired", "audio", audioAddr, "video", videoAddr)
	return s, nil
}

func listenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", udpAddr)
}

// pump copies RTP packets from one socket to its track until the socket is
// closed. Malformed packets are dropped and counted, never fatal.
func (s *RTPSource) pump(conn *net.UDPConn, track *webrtc.TrackLocalStaticRTP, kind string) {
	buf := make([]byte, 1500)
	dropped := 0
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			s.logger.Infow("ingest socket closed", "kind", kind, "dropped", dropped)
			return
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			dropped++
			continue
		}
		if err := track.WriteRTP(&pkt); err != nil {
			s.logger.Warnw("failed to write packet to track", "kind", kind, "error", err)
		}
	}
}

func (s *RTPSource) AudioTrack() *webrtc.TrackLocalStaticRTP { return s.audioTrack }
func (s *RTPSource) VideoTrack() *webrtc.TrackLocalStaticRTP { return s.videoTrack }

// Close releases both sockets. Idempotent.
func (s *RTPSource) Close() error {
	s.closeOnce.Do(func() {
		if err := s.audioConn.Close(); err != nil {
			s.closeErr = err
		}
		if err := s.videoConn.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
