package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/chessclock/go/internal/events"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections of clients watching game clocks
type ConnectionManager struct {
	// Connection pools organized by game ID
	gameConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	UserID  string
	GameID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents an event to broadcast to the watchers of a game
type BroadcastMessage struct {
	GameID uuid.UUID
	Event  events.Event
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		gameConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until ctx is cancelled
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Publish queues a clock event for the watchers of its game. It never blocks; events are
// dropped when the broadcast buffer is full.
func (cm *ConnectionManager) Publish(ctx context.Context, event events.Event) error {
	select {
	case cm.broadcastCh <- BroadcastMessage{GameID: event.GameID, Event: event}:
		return nil
	default:
		log.Warn().Str("game_id", event.GameID.String()).Msg("broadcast channel full, dropping message")
		return fmt.Errorf("broadcast channel full")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and sends the initial message
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, gameID uuid.UUID, initial []byte) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		GameID:      gameID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	// Queued before registering so no broadcast can overtake the initial snapshot
	if initial != nil {
		connection.Send <- initial
	}
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("game_id", gameID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.gameConnections[conn.GameID] == nil {
		cm.gameConnections[conn.GameID] = make(map[*Connection]bool)
	}
	cm.gameConnections[conn.GameID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", conn.GameID.String()).
		Int("total_connections", len(cm.gameConnections[conn.GameID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.gameConnections[conn.GameID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}

	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.gameConnections, conn.GameID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("game_id", conn.GameID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends happen under the read lock so unregisterConnection cannot close a Send channel mid-send
	var slow []*Connection
	cm.mu.RLock()
	connections := cm.gameConnections[message.GameID]
	for conn := range connections {
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	delivered := len(connections) - len(slow)
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("game_id", message.GameID.String()).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// ConnectionCount returns the number of watchers of a game
func (cm *ConnectionManager) ConnectionCount(gameID uuid.UUID) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.gameConnections[gameID])
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{ActiveGames: len(cm.gameConnections)}
	for _, connections := range cm.gameConnections {
		stats.TotalConnections += len(connections)
	}
	return stats
}

// ConnectionStats summarizes the connection pools
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	ActiveGames      int `json:"active_games"`
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only keeps the read deadline alive; clients send nothing meaningful
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		log.Debug().
			Str("connection_id", c.ID).
			Int("size", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
