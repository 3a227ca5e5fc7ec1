package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"fieldsurvey/internal/log"
	"fieldsurvey/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboards are served from other origins
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	authSvc  *service.AuthService
	resolver *service.SurveyResolver
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, resolver *service.SurveyResolver) *Handler {
	return &Handler{
		hub:      hub,
		authSvc:  authSvc,
		resolver: resolver,
	}
}

// SurveyFeed handles GET /ws/surveys/{surveyId}/feed
func (h *Handler) SurveyFeed(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateUserToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	resolved, err := h.resolver.Resolve(r.Context(), mux.Vars(r)["surveyId"])
	if errors.Is(err, service.ErrSurveyNotFound) {
		http.Error(w, "survey not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("feed survey lookup failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		SurveyID: resolved.ID,
		UserID:   claims.UserID,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	// Queued before registering; the hub owns Send afterwards
	payload, _ := json.Marshal(map[string]string{"surveyId": resolved.ID})
	hello, _ := json.Marshal(&Message{Type: MsgSubscribed, Payload: payload})
	conn.Send <- hello

	h.hub.Register(conn)

	log.WithFields(log.Fields{"userId": claims.UserID, "surveyId": resolved.ID}).Info("feed connected")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("WebSocket error: %v", err)
			}
			break
		}
		// The feed is one-way; client messages are ignored
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
