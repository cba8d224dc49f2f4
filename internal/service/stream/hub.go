package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"retailanalytics/internal/logger"

	"github.com/gorilla/websocket"
)

// ViewerMessage is the websocket payload sent to viewers.
type ViewerMessage struct {
	Camera string `json:"camera"`
	Image  string `json:"image"`
}

// HubService fans the latest frame of every source out to connected websocket viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	stopped    chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *HubService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(2 * time.Second))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a viewer. After Run has returned the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.stopped:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// Broadcast queues a frame for every viewer. When viewers fall behind the frame is dropped.
func (h *HubService) Broadcast(frame []byte, camera string) {
	msg, err := json.Marshal(ViewerMessage{
		Camera: camera,
		Image:  base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		h.logger.Error("Failed to encode viewer message: %v", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Relay polls the publisher every interval and broadcasts frames that changed since the last poll.
// Nothing is encoded while no viewer is connected.
func (h *HubService) Relay(ctx context.Context, publisher *FramePublisher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sent := make(map[string]uint64)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if h.GetClientCount() == 0 {
			continue
		}
		for _, name := range publisher.Names() {
			frame, seq, ok := publisher.LatestSeq(name)
			if !ok || sent[name] == seq {
				continue
			}
			sent[name] = seq
			h.Broadcast(frame, name)
		}
	}
}
