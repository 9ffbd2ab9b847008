package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"livecart/internal/core/domain"
	"livecart/internal/core/services"
	signalclient "livecart/internal/infrastructure/signal"
	webrtcinfra "livecart/internal/infrastructure/webrtc"
	"livecart/pkg/config"
	"livecart/pkg/logger"
)

// The viewer binary joins a room anonymously, answers the seller's offer and
// prints the room's chat and product shares.
func main() {
	var (
		apiURL = flag.String("api", "http://localhost:8080", "REST API base URL")
		wsURL  = flag.String("ws", "ws://localhost:8080/ws", "signaling relay URL")
		roomID = flag.String("room", "", "room id to join (required)")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	zapLogger := logger.New(cfg.Logging.Level, "console")
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	if *roomID == "" {
		log.Fatal("pass -room with the room id to join")
	}

	userID, err := joinAsGuest(*apiURL, domain.RoomID(*roomID))
	if err != nil {
		log.Fatalw("admission failed", "error", err)
	}
	log.Infow("admitted", "room_id", *roomID, "guest_id", userID)

	connector := webrtcinfra.NewViewerConnector(webrtcinfra.ConfigFromURLs(cfg.ICEServerURLs()), nil, log)

	sig := signalclient.NewWebSocketClient(*wsURL, cfg.Signal.WriteTimeout, log)
	viewer := services.NewViewerSession(domain.RoomID(*roomID), userID, sig, connector, log)
	viewer.OnViewerCount = func(count int) {
		fmt.Printf("[room] %d viewers watching\n", count)
	}
	viewer.OnComment = func(c domain.Comment) {
		fmt.Printf("[chat] %d: %s\n", c.UserID, c.Message)
	}
	viewer.OnProduct = func(p domain.Product) {
		fmt.Printf("[shop] %s - $%.2f (%s)\n", p.Name, float64(p.PriceCents)/100, p.ID)
	}
	viewer.OnState = func(state domain.SessionState) {
		log.Infow("stream session state", "state", state)
	}

	if err := viewer.Start(context.Background()); err != nil {
		log.Fatalw("failed to join the stream", "error", err)
	}
	defer viewer.Close()

	log.Info("watching; type to chat, ctrl-c to leave")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := viewer.SendComment(line); err != nil {
				log.Warnw("comment failed", "error", err)
			}

		case <-sigChan:
			log.Info("leaving the room")
			return
		}
	}
}

// joinAsGuest passes the REST admission check and returns the guest id the
// relay expects this viewer to use on the channel.
func joinAsGuest(apiURL string, roomID domain.RoomID) (domain.UserID, error) {
	body, _ := json.Marshal(map[string]string{"role": string(domain.RoleViewer)})
	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/rooms/%s/join", apiURL, roomID),
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return 0, fmt.Errorf("join rejected: %s", apiErr.Message)
		}
		return 0, fmt.Errorf("join rejected: status %d", resp.StatusCode)
	}

	var out struct {
		UserID domain.UserID `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.UserID, nil
}
