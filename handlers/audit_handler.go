package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shoybit/AssetVerse-Backend/models"
	"github.com/Shoybit/AssetVerse-Backend/utils"
)

// InitAuditHandlers starts the websocket hub.
func InitAuditHandlers() {
	go hub.Run()
}

type BroadcastMessage struct {
	TenantID string
	Message  []byte
}

// Hub fans audit events out to connected dashboard clients, grouped by
// HR tenant.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.Mutex
}

type Client struct {
	tenantID string
	email    string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
}

var hub = &Hub{
	clients:    make(map[string]map[*Client]bool),
	broadcast:  make(chan BroadcastMessage),
	register:   make(chan *Client),
	unregister: make(chan *Client),
}

func (h *Hub) Run() {
	log.Info().Msg("WebSocket hub started")
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if _, ok := h.clients[client.tenantID]; !ok {
				h.clients[client.tenantID] = make(map[*Client]bool)
			}
			h.clients[client.tenantID][client] = true
			h.mutex.Unlock()

		case client := <-h.unregister:
			h.mutex.Lock()
			if clients, ok := h.clients[client.tenantID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.tenantID)
					}
				}
			}
			h.mutex.Unlock()

		case bm := <-h.broadcast:
			h.mutex.Lock()
			if clients, ok := h.clients[bm.TenantID]; ok {
				for client := range clients {
					select {
					case client.send <- bm.Message:
					default:
						close(client.send)
						delete(clients, client)
					}
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastAudit pushes an audit entry to every client watching its
// tenant.
func BroadcastAudit(audit *models.AuditLog) {
	data, err := json.Marshal(audit)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal audit for WS")
		return
	}
	hub.broadcast <- BroadcastMessage{TenantID: audit.HRID.Hex(), Message: data}
}

// writeAudit records an action under the caller's own tenant.
func writeAudit(ctx context.Context, r *http.Request, c caller, action, entityType string, entityID primitive.ObjectID, details interface{}) {
	writeTenantAudit(ctx, r, c.ID, c, action, entityType, entityID, details)
}

// writeTenantAudit records an action under an explicit tenant (the HR
// whose data was touched — not necessarily the caller). Audit writes are
// deliberately outside the workflow transactions; a failed entry is
// logged, never surfaced.
func writeTenantAudit(ctx context.Context, r *http.Request, tenantID primitive.ObjectID, c caller, action, entityType string, entityID primitive.ObjectID, details interface{}) {
	audit := models.AuditLog{
		ID:         primitive.NewObjectID(),
		HRID:       tenantID,
		ActorEmail: c.Email,
		ActorRole:  c.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}

	if _, err := auditLogCollection.InsertOne(ctx, audit); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("failed to write audit log")
		return
	}
	BroadcastAudit(&audit)
}

// ListAuditLogs returns the calling HR's audit trail, paginated.
func ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromContext(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := bson.M{"hrId": c.ID}
	if entityType := r.URL.Query().Get("entityType"); entityType != "" && entityType != "all" {
		filter["entityType"] = entityType
	}
	if action := r.URL.Query().Get("action"); action != "" && action != "all" {
		filter["action"] = bson.M{"$regex": action, "$options": "i"}
	}

	params := utils.ParsePageParams(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	total, err := auditLogCollection.CountDocuments(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch audit logs")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(params.Limit)).
		SetSkip(params.Skip())

	cursor, err := auditLogCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("audit find failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch audit logs")
		return
	}
	defer cursor.Close(ctx)

	var logs []models.AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode audit logs")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.NewPagedResponse(params, total, logs))
}

// HandleWebSocket upgrades an HR dashboard connection and streams the
// tenant's audit events. The token arrives in the query string (or the
// bearer header) because browsers cannot set headers on websocket
// upgrades from all clients.
func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
			tokenString = auth[7:]
		}
	}
	if tokenString == "" {
		http.Error(w, "Authentication token required", http.StatusUnauthorized)
		return
	}

	claims, err := utils.ValidateJWT(tokenString)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}
	if claims.Role != models.RoleHR {
		http.Error(w, "Only HR accounts can subscribe", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	client := &Client{
		tenantID: claims.UserID,
		email:    claims.Email,
		conn:     conn,
		send:     make(chan []byte, 256),
		hub:      hub,
	}

	client.hub.register <- client

	// Write pump
	go func() {
		defer func() {
			client.hub.unregister <- client
			conn.Close()
		}()
		for message := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// Read pump with keepalive
	go func() {
		defer func() {
			client.hub.unregister <- client
			conn.Close()
		}()

		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		go func() {
			for range ticker.C {
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	welcome := map[string]interface{}{
		"type":      "welcome",
		"message":   "Connected to audit event stream",
		"tenantId":  claims.UserID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	welcomeBytes, _ := json.Marshal(welcome)
	client.send <- welcomeBytes
}
