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
	"livecart/internal/infrastructure/media"
	signalclient "livecart/internal/infrastructure/signal"
	webrtcinfra "livecart/internal/infrastructure/webrtc"
	"livecart/pkg/config"
	"livecart/pkg/logger"
)

// The host binary runs the seller side of a live room: admission over REST,
// media acquisition, then the signaling session that offers to every viewer.
func main() {
	var (
		apiURL    = flag.String("api", "http://localhost:8080", "REST API base URL")
		wsURL     = flag.String("ws", "ws://localhost:8080/ws", "signaling relay URL")
		username  = flag.String("username", "seller", "seller username")
		title     = flag.String("title", "Live sale", "room title")
		audioAddr = flag.String("audio", "127.0.0.1:4000", "RTP audio ingest address")
		videoAddr = flag.String("video", "127.0.0.1:4002", "RTP video ingest address")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	zapLogger := logger.New(cfg.Logging.Level, "console")
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	api := &apiClient{base: *apiURL}

	token, userID, err := api.login(*username)
	if err != nil {
		log.Fatalw("login failed", "error", err)
	}
	api.token = token

	room, err := api.createRoom(*title)
	if err != nil {
		log.Fatalw("failed to create room", "error", err)
	}
	log.Infow("room created", "room_id", room.ID, "title", room.Title)

	if _, err := api.joinRoom(room.ID, domain.RoleSeller); err != nil {
		log.Fatalw("admission failed", "error", err)
	}

	// Media first: a seller without a source must not open the channel.
	source, err := media.NewRTPSource(*audioAddr, *videoAddr, log)
	if err != nil {
		log.Fatalw("media acquisition failed", "error", err)
	}

	connector := webrtcinfra.NewHostConnector(webrtcinfra.ConfigFromURLs(cfg.ICEServerURLs()), source, log)

	sig := signalclient.NewWebSocketClient(*wsURL, cfg.Signal.WriteTimeout, log)
	host := services.NewHostSession(room.ID, userID, sig, connector, log)
	host.OnViewerCount = func(count int) {
		fmt.Printf("[room] %d viewers watching\n", count)
	}
	host.OnComment = func(c domain.Comment) {
		fmt.Printf("[chat] %d: %s\n", c.UserID, c.Message)
	}
	host.OnViewerState = func(viewer domain.UserID, state domain.SessionState) {
		log.Infow("viewer session state", "viewer", viewer, "state", state)
	}

	if err := host.Start(context.Background()); err != nil {
		log.Fatalw("failed to start hosting", "error", err)
	}
	defer host.Close()

	log.Infow("hosting live", "room_id", room.ID,
		"hint", "type to chat, /share <product-id> to share a product, ctrl-c to end")

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
			if id, found := strings.CutPrefix(line, "/share "); found {
				product, err := api.getProduct(domain.ProductID(strings.TrimSpace(id)))
				if err != nil {
					log.Warnw("cannot share product", "id", id, "error", err)
					continue
				}
				if err := host.ShareProduct(*product); err != nil {
					log.Warnw("share failed", "error", err)
				}
				continue
			}
			if err := host.SendComment(line); err != nil {
				log.Warnw("comment failed", "error", err)
			}

		case <-sigChan:
			log.Info("ending the room")
			return
		}
	}
}

// apiClient is a minimal REST client for the admission endpoints.
type apiClient struct {
	base  string
	token string
}

func (a *apiClient) do(method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, a.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Message)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *apiClient) login(username string) (string, domain.UserID, error) {
	var resp struct {
		UserID      domain.UserID `json:"user_id"`
		AccessToken string        `json:"access_token"`
	}
	err := a.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": username}, &resp)
	return resp.AccessToken, resp.UserID, err
}

func (a *apiClient) createRoom(title string) (*domain.Room, error) {
	var resp struct {
		Room *domain.Room `json:"room"`
	}
	err := a.do(http.MethodPost, "/api/v1/rooms", map[string]string{"title": title}, &resp)
	return resp.Room, err
}

func (a *apiClient) joinRoom(roomID domain.RoomID, role domain.Role) (domain.UserID, error) {
	var resp struct {
		UserID domain.UserID `json:"user_id"`
	}
	err := a.do(http.MethodPost, fmt.Sprintf("/api/v1/rooms/%s/join", roomID),
		map[string]string{"role": string(role)}, &resp)
	return resp.UserID, err
}

func (a *apiClient) getProduct(id domain.ProductID) (*domain.Product, error) {
	var resp struct {
		Product *domain.Product `json:"product"`
	}
	err := a.do(http.MethodGet, fmt.Sprintf("/api/v1/products/%s", id), nil, &resp)
	return resp.Product, err
}
