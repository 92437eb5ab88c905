package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/diary-backend/internal/models"
	"github.com/gorilla/websocket"
)

const (
	eventsPingInterval = 30 * time.Second
	eventsReadTimeout  = 90 * time.Second
	eventsWriteTimeout = 10 * time.Second
)

// EntrySubscriber hands out live event streams scoped to one owner.
type EntrySubscriber interface {
	Subscribe(owner string) (<-chan models.EntryEvent, func())
}

// EntryEventsHandler streams the caller's own entry changes over a WebSocket.
type EntryEventsHandler struct {
	subscriber EntrySubscriber
	identity   IdentityExtractor
	log        *slog.Logger
	upgrader   websocket.Upgrader
}

func NewEntryEventsHandler(subscriber EntrySubscriber, identity IdentityExtractor, allowedOrigins []string, log *slog.Logger) *EntryEventsHandler {
	return &EntryEventsHandler{
		subscriber: subscriber,
		identity:   identity,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				for _, a := range allowedOrigins {
					if strings.EqualFold(strings.TrimSpace(a), origin) {
						return true
					}
				}
				return false
			},
		},
	}
}

// Stream upgrades GET /ws/entries. Browsers cannot set headers on WebSocket
// requests, so the token may also be passed as ?token=.
func (h *EntryEventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if err := CheckMethod(r.Method, http.MethodGet); err != nil {
		writeError(w, http.StatusMethodNotAllowed, err.Error())
		return
	}

	header := r.Header
	if header.Get("Authorization") == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			header = r.Header.Clone()
			header.Set("Authorization", "Bearer "+token)
		}
	}
	owner, err := h.identity.ExtractIdentity(header)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	// Subscribe before the handshake completes so no event is lost in between.
	events, unsubscribe := h.subscriber.Subscribe(owner)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	// Reader: only control frames are expected; any error ends the stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(eventsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				h.log.Debug("entry event write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
