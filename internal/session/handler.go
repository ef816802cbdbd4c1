package session

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/observability/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to websocket sessions.
type Handler struct {
	deps Deps
	log  zerolog.Logger
}

// NewHandler creates the websocket entry point.
func NewHandler(deps Deps, log zerolog.Logger) *Handler {
	return &Handler{deps: deps, log: log}
}

// ServeHTTP runs one session for the lifetime of the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	log := logging.WithSession(sessionID)
	log.Info().Str("remoteAddr", r.RemoteAddr).Msg("Session connected")

	// Writes come from the read loop, the transcript event loop, and the
	// answer cycle; gorilla connections allow one writer at a time.
	var writeMu sync.Mutex
	send := func(msg ServerMessage) error {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	sess := New(sessionID, h.deps, send, log)
	defer sess.Close(r.Context())

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Connection closed unexpectedly")
			} else {
				log.Info().Msg("Session disconnected")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			sess.HandleBinary(r.Context(), data)
		case websocket.TextMessage:
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Warn().Err(err).Msg("Malformed control message")
				sess.sendMsg(errorMsg("malformed message"))
				continue
			}
			sess.HandleControl(r.Context(), msg)
		}
	}
}
