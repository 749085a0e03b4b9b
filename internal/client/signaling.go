package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/peercall/peercall/internal/domain"
	"github.com/peercall/peercall/lib/logger/sl"
)

var (
	ErrSignalingClosed = errors.New("signaling connection closed")
	ErrNoWelcome       = errors.New("signaling handshake missing welcome")
)

// EventHandler receives every non-ack envelope from the coordinator, in
// arrival order on a single goroutine.
type EventHandler func(env domain.Envelope)

// Signaling is the bidirectional channel to the coordinator: synchronous
// requests with acknowledgements plus fire-and-forget notifications.
type Signaling interface {
	ConnID() string
	Request(ctx context.Context, t domain.MessageType, payload any, ack any) error
	Notify(t domain.MessageType, payload any) error
	SetHandler(handler EventHandler)
	Close() error
}

type wsSignaling struct {
	conn *websocket.Conn
	log  *slog.Logger

	connID string

	writeMu sync.Mutex
	seq     atomic.Uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan domain.Envelope

	handlerMu sync.RWMutex
	handler   EventHandler

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the coordinator and completes the welcome handshake that
// tells this client its own connection id.
func Dial(ctx context.Context, url string, log *slog.Logger) (Signaling, error) {
	if log == nil {
		log = slog.Default()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	var welcome domain.Envelope
	if err := conn.ReadJSON(&welcome); err != nil {
		conn.Close()
		return nil, err
	}
	if welcome.Type != domain.MsgWelcome {
		conn.Close()
		return nil, ErrNoWelcome
	}
	var payload domain.Welcome
	if err := welcome.Decode(&payload); err != nil || payload.ID == "" {
		conn.Close()
		return nil, ErrNoWelcome
	}

	s := &wsSignaling{
		conn:    conn,
		log:     log,
		connID:  payload.ID,
		pending: make(map[uint64]chan domain.Envelope),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *wsSignaling) ConnID() string {
	return s.connID
}

func (s *wsSignaling) SetHandler(handler EventHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Request sends an envelope with a fresh seq and blocks until the matching
// ack arrives, the context expires, or the connection dies.
func (s *wsSignaling) Request(ctx context.Context, t domain.MessageType, payload any, ack any) error {
	seq := s.seq.Add(1)
	reply := make(chan domain.Envelope, 1)

	s.pendingMu.Lock()
	s.pending[seq] = reply
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, seq)
		s.pendingMu.Unlock()
	}()

	env := domain.NewEnvelope(t, payload)
	env.Seq = seq
	if err := s.write(env); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSignalingClosed
	case env := <-reply:
		if ack == nil {
			return nil
		}
		return env.Decode(ack)
	}
}

func (s *wsSignaling) Notify(t domain.MessageType, payload any) error {
	return s.write(domain.NewEnvelope(t, payload))
}

func (s *wsSignaling) write(env domain.Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return ErrSignalingClosed
	default:
	}
	return s.conn.WriteJSON(env)
}

func (s *wsSignaling) readLoop() {
	defer s.Close()

	for {
		var env domain.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				s.log.Debug("signaling read loop stopped", sl.Err(err))
			}
			return
		}

		if env.Type == domain.MsgAck {
			s.pendingMu.Lock()
			reply, ok := s.pending[env.Seq]
			s.pendingMu.Unlock()
			if ok {
				reply <- env
			}
			continue
		}

		s.handlerMu.RLock()
		handler := s.handler
		s.handlerMu.RUnlock()
		if handler != nil {
			handler(env)
		}
	}
}

func (s *wsSignaling) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
	return nil
}
