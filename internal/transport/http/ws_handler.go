package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"checkout-trainer/internal/app"
	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/game"
	"checkout-trainer/internal/logging"
)

type WSHandler struct {
	trainer  *app.Trainer
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

func NewWSHandler(trainer *app.Trainer, log *logrus.Entry) *WSHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &WSHandler{
		trainer: trainer,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionPayload struct {
	SessionID string    `json:"sessionId"`
	View      game.View `json:"view"`
}

// ServeWS upgrades HTTP requests to websockets and runs one training session
// per connection. An empty userId plays anonymously.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode, ok := game.ParseMode(query.Get("mode"))
	if !ok {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}
	player := domain.Player{ID: query.Get("userId"), DisplayName: query.Get("name")}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	// The session outlives the upgrade request context until the socket closes.
	ctx := context.WithoutCancel(r.Context())
	session, view, err := h.trainer.Start(ctx, mode, player)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()
	defer h.trainer.Close(ctx, sessionID)

	updates, cancel, err := h.trainer.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).WithField("session_id", sessionID).Debug("ws write error")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{SessionID: sessionID, View: view}}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if done := h.dispatch(ctx, sessionID, inbound, send); done {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch handles one client message and reports whether the connection
// should end.
func (h *WSHandler) dispatch(ctx context.Context, sessionID string, inbound inboundMessage, send chan<- outboundMessage[any]) bool {
	switch inbound.Type {
	case "event":
		var ev game.Event
		if err := json.Unmarshal(inbound.Payload, &ev); err != nil || ev.Kind == "" {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid event payload"}}
			return false
		}
		if _, err := h.trainer.Handle(ctx, sessionID, ev); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		return false
	case "abort":
		view, err := h.trainer.Abort(ctx, sessionID)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
		return true
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		return false
	}
}
