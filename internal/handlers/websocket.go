// internal/handlers/websocket.go
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"alerta-vecinal/internal/mapview"
	"alerta-vecinal/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Шлюз локальный, origin проверяет CORS-слой HTTP API
		return true
	},
}

// ShellEvents — события карты, приходящие из браузерной оболочки.
type ShellEvents interface {
	MarkerActivated(markerID string)
	MarkerDragged(markerID string, pos mapview.LatLng)
}

// Hub раздаёт оболочке операции виджета и тосты и принимает обратные
// события маркеров.
type Hub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan []byte

	mutex  sync.RWMutex
	events ShellEvents

	done chan struct{}
}

type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type shellEvent struct {
	Type     string  `json:"type"`
	MarkerID string  `json:"marker_id,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// SetShellEvents назначает получателя событий маркеров. nil отключает.
func (hub *Hub) SetShellEvents(events ShellEvents) {
	hub.mutex.Lock()
	hub.events = events
	hub.mutex.Unlock()
}

func (hub *Hub) shellEvents() ShellEvents {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return hub.events
}

// Broadcast рассылает сообщение всем подключённым оболочкам.
func (hub *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := json.Marshal(WSMessage{Type: msgType, Data: data})
	if err != nil {
		log.Errorf("Не удалось сериализовать ws-сообщение %s: %v", msgType, err)
		return
	}
	select {
	case hub.broadcast <- payload:
	case <-hub.done:
	}
}

func (hub *Hub) Run() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client] = true
			hub.mutex.Unlock()
			log.Debug("Оболочка подключилась к ws")

		case client := <-hub.unregister:
			hub.mutex.Lock()
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				close(client.send)
			}
			hub.mutex.Unlock()
			log.Debug("Оболочка отключилась от ws")

		case message := <-hub.broadcast:
			hub.mutex.Lock()
			for client := range hub.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(hub.clients, client)
				}
			}
			hub.mutex.Unlock()

		case <-hub.done:
			return
		}
	}
}

func (hub *Hub) Shutdown() {
	close(hub.done)
	hub.mutex.Lock()
	for client := range hub.clients {
		close(client.send)
		delete(hub.clients, client)
	}
	hub.mutex.Unlock()
}

// ConnectionsCount нужен health-эндпоинту.
func (hub *Hub) ConnectionsCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients)
}

type WebSocketHandler struct {
	hub        *Hub
	jwtManager *auth.JWTManager
}

func NewWebSocketHandler(hub *Hub, jwtManager *auth.JWTManager) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, jwtManager: jwtManager}
}

// HandleWebSocket апгрейдит соединение оболочки. Карта доступна и без
// входа, поэтому токен в query необязателен, но если он есть — должен
// быть валидным.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	if token := c.Query("token"); token != "" {
		if _, err := h.jwtManager.ValidateToken(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := &WSClient{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event shellEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("WebSocket error: %v", err)
			}
			break
		}

		events := c.hub.shellEvents()
		switch event.Type {
		case "marker_activate":
			if events != nil {
				events.MarkerActivated(event.MarkerID)
			}
		case "marker_dragend":
			if events != nil {
				events.MarkerDragged(event.MarkerID, mapview.LatLng{Lat: event.Lat, Lng: event.Lng})
			}
		case "ping":
			select {
			case c.send <- []byte(`{"type": "pong"}`):
			default:
			}
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Добираем накопившиеся сообщения в тот же фрейм
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
