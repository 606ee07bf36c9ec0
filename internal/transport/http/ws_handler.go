package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/domain"
)

type WSHandler struct {
	engine   *app.Engine
	hub      *broadcast.Hub
	auth     *app.Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, hub *broadcast.Hub, auth *app.Authenticator, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    hub,
		auth:   auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type registerPayload struct {
	Name     string `json:"name"`
	Identity string `json:"identity"`
}

type adminPayload struct {
	Secret string `json:"secret"`
}

type startPayload struct {
	SessionID int `json:"sessionId"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	OptionIndex int    `json:"optionIndex"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

type registeredPayload struct {
	Participant domain.Participant `json:"participant"`
	Existing    bool               `json:"existing"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	Payload T      `json:"payload"`
}

const sendBuffer = 32

// conn is the per-connection state. Only the read loop touches identity.
type conn struct {
	id       string
	ws       *websocket.Conn
	sub      *broadcast.Subscription
	identity string

	send       chan outboundMessage[any]
	writerDone chan struct{}
}

func (c *conn) push(msg outboundMessage[any]) {
	select {
	case c.send <- msg:
	case <-c.writerDone:
	}
}

func (c *conn) pushError(err error) {
	code, _ := errorCode(err)
	c.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}})
}

// ServeWS upgrades the request and streams quiz events to the client. Every client starts
// as a participant-audience subscriber; "admin" promotes the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer ws.Close()

	c := &conn{
		id:         uuid.NewString(),
		ws:         ws,
		sub:        h.hub.Subscribe(false),
		send:       make(chan outboundMessage[any], sendBuffer),
		writerDone: make(chan struct{}),
	}
	defer c.sub.Close()

	logger := log.With().Str("conn_id", c.id).Logger()
	logger.Debug().Str("remote", r.RemoteAddr).Msg("ws connected")

	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(c.writerDone)
		for msg := range c.send {
			if err := ws.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write failed")
				_ = ws.Close()
				return
			}
		}
	}()

	// Late joiners get the full picture before any incremental event. The subscription
	// is already open, so events it queued before the join state are skipped by seq.
	join := h.engine.JoinState()
	c.push(outboundMessage[any]{Type: "state", Payload: join.Snapshot})
	c.push(outboundMessage[any]{Type: string(domain.EventParticipantsChanged), Payload: join.Participants})
	c.push(outboundMessage[any]{Type: string(domain.EventLeaderboardChanged), Payload: join.Leaderboard})

	go func() {
		defer close(updatesDone)
		c.forward(c.sub.Events(), join.Seq, closeSignals)
	}()

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		h.handle(c, inbound)
	}

	logger.Debug().Str("identity", c.identity).Uint64("dropped", c.sub.Dropped()).Msg("ws disconnected")
	close(closeSignals)
	<-updatesDone
	close(c.send)
	<-c.writerDone
}

// forward relays hub events newer than after until events closes, stop closes or the
// writer exits.
func (c *conn) forward(events <-chan domain.Event, after uint64, stop <-chan struct{}) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Seq <= after {
				continue
			}
			select {
			case c.send <- outboundMessage[any]{Type: string(ev.Type), Seq: ev.Seq, Payload: ev.Payload}:
			case <-stop:
				return
			case <-c.writerDone:
				return
			}
		case <-stop:
			return
		}
	}
}

func (h *WSHandler) handle(c *conn, inbound inboundMessage) {
	switch inbound.Type {
	case "register":
		var payload registerPayload
		if !decodePayload(c, inbound, &payload) {
			return
		}
		p, err := h.engine.RegisterParticipant(payload.Name, payload.Identity)
		existing := errors.Is(err, domain.ErrAlreadyRegistered)
		if err != nil && !existing {
			c.pushError(err)
			return
		}
		c.identity = p.Identity
		c.push(outboundMessage[any]{Type: "registered", Payload: registeredPayload{Participant: p, Existing: existing}})

	case "admin":
		var payload adminPayload
		if !decodePayload(c, inbound, &payload) {
			return
		}
		if err := h.auth.PromoteToAdmin(payload.Secret); err != nil {
			log.Warn().Str("conn_id", c.id).Msg("admin promotion rejected")
			c.pushError(err)
			return
		}
		c.sub.SetAdmin(true)
		log.Info().Str("conn_id", c.id).Msg("connection promoted to admin")
		c.push(outboundMessage[any]{Type: "admin", Payload: map[string]bool{"admin": true}})
		c.push(outboundMessage[any]{Type: "state", Payload: h.engine.Snapshot()})
		if q, ok := h.engine.CurrentQuestion(); ok {
			c.push(outboundMessage[any]{Type: string(domain.EventQuestionDisplayed), Payload: domain.AdminQuestion{
				PublicQuestion: q.Public(),
				CorrectIndex:   q.CorrectIndex,
			}})
		}

	case "start", "next", "end", "reset":
		cmd := app.Command{Kind: app.CommandKind(inbound.Type), Admin: c.sub.Admin()}
		if inbound.Type == "start" {
			var payload startPayload
			if !decodePayload(c, inbound, &payload) {
				return
			}
			cmd.SessionID = payload.SessionID
		}
		if _, err := h.engine.Dispatch(cmd); err != nil {
			c.pushError(err)
		}

	case "answer":
		var payload answerPayload
		if !decodePayload(c, inbound, &payload) {
			return
		}
		if c.identity == "" {
			c.pushError(domain.ErrUnknownParticipant)
			return
		}
		res, err := h.engine.SubmitAnswer(c.identity, payload.QuestionID, payload.OptionIndex, payload.ElapsedMs)
		if err != nil {
			c.pushError(err)
			return
		}
		c.push(outboundMessage[any]{Type: "answer-result", Payload: res})

	case "leaderboard":
		c.push(outboundMessage[any]{Type: "leaderboard", Payload: h.engine.Leaderboard()})

	case "state":
		c.push(outboundMessage[any]{Type: "state", Payload: h.engine.Snapshot()})

	default:
		c.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "unsupported", Message: "unsupported message type"}})
	}
}

func decodePayload(c *conn, inbound inboundMessage, v any) bool {
	if len(inbound.Payload) == 0 {
		inbound.Payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(inbound.Payload, v); err != nil {
		c.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "invalid_payload", Message: "invalid " + inbound.Type + " payload"}})
		return false
	}
	return true
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
