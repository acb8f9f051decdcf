package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 60 * time.Second
)

// LedgerSocketHandler streams a user's ledger updates over a WebSocket.
// Clients only listen; anything they send is discarded.
type LedgerSocketHandler struct {
	hub      *services.LedgerHub
	ledger   *services.Ledger
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewLedgerSocketHandler(hub *services.LedgerHub, ledger *services.Ledger, allowedOrigins []string, logger *zap.Logger) *LedgerSocketHandler {
	return &LedgerSocketHandler{
		hub:    hub,
		ledger: ledger,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header (native clients)
// and browser requests from the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSpace(a), origin) {
				return true
			}
		}
		return false
	}
}

// Serve sends today's record on connect and then every update published for
// the user.
func (h *LedgerSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe(userID)
	defer unsubscribe()

	if rec, err := h.ledger.GetRecord(r.Context(), userID, ""); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(services.LedgerEvent{
			Type:      services.EventTypeLedger,
			UserID:    userID,
			Record:    *rec,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			return
		}
	} else {
		h.logger.Warn("initial ledger snapshot failed", zap.String("user_id", userID), zap.Error(err))
	}

	done := make(chan struct{})
	defer close(done)
	go h.writeLoop(conn, events, done)

	conn.SetReadLimit(4 * 1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer after the snapshot.
func (h *LedgerSocketHandler) writeLoop(conn *websocket.Conn, events <-chan services.LedgerEvent, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}
