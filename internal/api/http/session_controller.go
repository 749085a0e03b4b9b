package http

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/peercall/peercall/internal/domain"
	"github.com/peercall/peercall/internal/service"
	"github.com/peercall/peercall/lib/logger/sl"
)

const sessionSendBuffer = 32

// SessionController upgrades signaling connections and pumps messages
// between the websocket and the coordinator.
type SessionController struct {
	coordinator service.Coordinator
	log         *slog.Logger
	upgrader    websocket.Upgrader
}

func NewSessionController(coordinator service.Coordinator, log *slog.Logger) *SessionController {
	if log == nil {
		log = slog.Default()
	}
	return &SessionController{
		coordinator: coordinator,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (c *SessionController) Serve(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("failed to upgrade connection", sl.Err(err))
		return
	}

	session := newSession(conn, c.log)
	c.coordinator.Connect(session)
	go session.writePump()
	session.Send(domain.NewEnvelope(domain.MsgWelcome, domain.Welcome{ID: session.ID()}))

	defer func() {
		c.coordinator.Disconnect(session.ID())
		session.close()
	}()

	for {
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		c.dispatch(session, env)
	}
}

// dispatch routes one inbound envelope into the coordinator. Requests are
// answered with an ack envelope repeating the caller's seq.
func (c *SessionController) dispatch(session *wsSession, env domain.Envelope) {
	connID := session.ID()

	switch env.Type {
	case domain.MsgRoomExists:
		var req domain.RoomExistsRequest
		if err := env.Decode(&req); err != nil {
			return
		}
		session.ack(env.Seq, c.coordinator.RoomExists(connID, req))
	case domain.MsgJoinRoom:
		var req domain.JoinRoomRequest
		if err := env.Decode(&req); err != nil {
			return
		}
		session.ack(env.Seq, c.coordinator.JoinRoom(connID, req))
	case domain.MsgAdmit:
		var req domain.AdmitRequest
		if err := env.Decode(&req); err != nil {
			return
		}
		session.ack(env.Seq, c.coordinator.AdmitParticipant(connID, req))
	case domain.MsgEndMeeting:
		var req domain.EndMeetingRequest
		if err := env.Decode(&req); err != nil {
			return
		}
		session.ack(env.Seq, c.coordinator.EndMeeting(connID, req))
	case domain.MsgLeaveRoom:
		var req domain.LeaveRoomRequest
		if err := env.Decode(&req); err != nil {
			return
		}
		c.coordinator.LeaveRoom(connID, req)
	case domain.MsgOffer:
		var payload domain.SessionDescriptionPayload
		if err := env.Decode(&payload); err != nil {
			return
		}
		c.coordinator.RelayOffer(connID, payload)
	case domain.MsgAnswer:
		var payload domain.SessionDescriptionPayload
		if err := env.Decode(&payload); err != nil {
			return
		}
		c.coordinator.RelayAnswer(connID, payload)
	case domain.MsgICECandidate:
		var payload domain.ICECandidatePayload
		if err := env.Decode(&payload); err != nil {
			return
		}
		c.coordinator.RelayICECandidate(connID, payload)
	case domain.MsgScreenShare:
		var req domain.ScreenShareState
		if err := env.Decode(&req); err != nil {
			return
		}
		c.coordinator.ScreenShare(connID, req)
	case domain.MsgVideoState:
		var req domain.VideoState
		if err := env.Decode(&req); err != nil {
			return
		}
		c.coordinator.VideoState(connID, req)
	case domain.MsgChat:
		var req domain.ChatMessage
		if err := env.Decode(&req); err != nil {
			return
		}
		c.coordinator.ChatMessage(connID, req)
	default:
		c.log.Warn("unsupported signal type",
			slog.String("conn_id", connID),
			slog.String("type", string(env.Type)),
		)
	}
}

// wsSession is one signaling connection. All writes funnel through the
// events channel so the websocket has a single writer.
type wsSession struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger

	mu     sync.Mutex
	closed bool
	events chan domain.Envelope
}

func newSession(conn *websocket.Conn, log *slog.Logger) *wsSession {
	return &wsSession{
		id:     uuid.NewString(),
		conn:   conn,
		log:    log,
		events: make(chan domain.Envelope, sessionSendBuffer),
	}
}

func (s *wsSession) ID() string {
	return s.id
}

// Send enqueues an envelope without blocking; a slow consumer drops events
// rather than stalling the coordinator.
func (s *wsSession) Send(env domain.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- env:
	default:
		s.log.Debug("dropping event for slow session",
			slog.String("conn_id", s.id),
			slog.String("type", string(env.Type)),
		)
	}
}

func (s *wsSession) ack(seq uint64, payload any) {
	env := domain.NewEnvelope(domain.MsgAck, payload)
	env.Seq = seq
	s.Send(env)
}

func (s *wsSession) writePump() {
	for env := range s.events {
		if err := s.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

func (s *wsSession) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()
	s.conn.Close()
}
