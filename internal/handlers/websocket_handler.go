package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"bridge-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketHandler pushes mint and withdrawal notifications to connected
// clients. It implements the Broadcaster surface the services publish to.
type WebSocketHandler struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]chan []byte
}

// NewWebSocketHandler creates the push handler.
func NewWebSocketHandler() *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[string]chan []byte),
	}
}

// BroadcastJSON sends a message to every connected client. A client whose
// send buffer is full misses the message rather than blocking the pipeline.
func (h *WebSocketHandler) BroadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("⚠️ [WebSocket] Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for clientID, send := range h.clients {
		select {
		case send <- data:
		default:
			log.Printf("⚠️ [WebSocket] Send buffer full for client %s, dropping message", clientID)
		}
	}
}

// HandleWebSocket upgrades the connection and streams bridge notifications.
// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	principal := h.extractPrincipal(c.Request)
	if principal == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Authentication required",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	send := make(chan []byte, 256)
	h.register(clientID, send)
	defer h.unregister(clientID)

	log.Printf("📡 WebSocket client connected: %s (principal: %s)", clientID, principal)

	conn.WriteJSON(map[string]interface{}{
		"type":      "connected",
		"client_id": clientID,
		"timestamp": time.Now(),
	})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			// Clients only send keepalives; anything else is ignored.
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("🔌 [WebSocket] Connection closed for client %s: %v", clientID, err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ [WebSocket] Write error for client %s: %v", clientID, err)
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

func (h *WebSocketHandler) register(clientID string, send chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[clientID] = send
}

func (h *WebSocketHandler) unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, clientID)
	log.Printf("🔌 WebSocket client disconnected: %s", clientID)
}

// extractPrincipal pulls the caller principal from a query token or bearer
// header. Browsers cannot set headers on WebSocket requests, hence the query
// fallback.
func (h *WebSocketHandler) extractPrincipal(r *http.Request) string {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		return ""
	}

	claims, err := middleware.ValidateJWTToken(token)
	if err != nil {
		log.Printf("❌ JWT validation failed for websocket client: %v", err)
		return ""
	}
	return claims.Principal
}
