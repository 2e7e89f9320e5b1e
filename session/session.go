package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/instapoker/server/proto"
)

const (
	defaultInboundQueueSize = 128
)

var (
	ErrClosed = errors.New("session is closed")
	// ErrSuperseded is returned to a request waiter that was replaced
	// by a newer request expecting the same response type. The wire
	// protocol has no correlation ids, so only one waiter per response
	// type can exist at a time.
	ErrSuperseded = errors.New("request superseded")
)

type (
	// Session owns one authenticated client connection: the inbound
	// receive loop, the serialized outbound write path and the
	// in-flight request table keyed by expected response type.
	Session struct {
		conn net.Conn
		br   *bufio.Reader

		username string
		registry *proto.Registry
		logger   zerolog.Logger

		inbound chan proto.Message

		pendingMx sync.Mutex
		pending   map[uuid.UUID]chan proto.Message

		writeMx sync.Mutex

		closeOnce sync.Once
		done      chan struct{}
	}

	Config struct {
		Conn net.Conn
		// Reader wraps Conn and carries over any bytes buffered while
		// reading the handshake. All stream reads go through it.
		Reader   *bufio.Reader
		Username string
		Registry *proto.Registry
		Logger   *zerolog.Logger
	}
)

func New(cfg Config) *Session {
	return &Session{
		conn:     cfg.Conn,
		br:       cfg.Reader,
		username: cfg.Username,
		registry: cfg.Registry,
		logger: cfg.Logger.With().
			Str("component", "session").
			Str("username", cfg.Username).
			Str("remote", cfg.Conn.RemoteAddr().String()).Logger(),
		inbound: make(chan proto.Message, defaultInboundQueueSize),
		pending: make(map[uuid.UUID]chan proto.Message),
		done:    make(chan struct{}),
	}
}

func (s *Session) Username() string {
	return s.username
}

// Inbound is the queue of messages not claimed by a request waiter.
// The router drains it.
func (s *Session) Inbound() <-chan proto.Message {
	return s.inbound
}

// Receive runs the connection's receive loop until the stream fails,
// the peer disconnects or ctx is canceled. It always leaves the
// session closed; the caller is responsible for registry cleanup
// afterwards.
func (s *Session) Receive(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()
	defer func() { _ = s.Close() }()

	for {
		m, err := proto.ReadMessage(s.br, s.registry)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.logger.Info().Msg("peer disconnected")
			case errors.Is(err, net.ErrClosed):
				s.logger.Debug().Msg("receive loop stopped")
			default:
				s.logger.Warn().Err(err).Msg("protocol error, dropping connection")
			}
			return
		}
		s.logger.Trace().Type("message", m).Msg("message received")

		if s.resolvePending(m) {
			continue
		}
		select {
		case s.inbound <- m:
		case <-s.done:
			return
		}
	}
}

// SendRequest writes req and blocks until the peer answers with a
// message of responseID's type, ctx expires or the session closes.
// At most one waiter per response type can be outstanding; a second
// request for the same response type fails the first waiter with
// ErrSuperseded.
func (s *Session) SendRequest(ctx context.Context, req proto.Message, responseID uuid.UUID) (proto.Message, error) {
	ch := make(chan proto.Message, 1)
	s.pendingMx.Lock()
	if old, ok := s.pending[responseID]; ok {
		close(old)
	}
	s.pending[responseID] = ch
	s.pendingMx.Unlock()

	if err := s.Send(req); err != nil {
		s.removePending(responseID, ch)
		return nil, err
	}

	select {
	case m, ok := <-ch:
		if !ok {
			return nil, ErrSuperseded
		}
		return m, nil
	case <-ctx.Done():
		s.removePending(responseID, ch)
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}

// Send writes one message as a complete frame. Concurrent senders are
// serialized so frames never interleave.
func (s *Session) Send(m proto.Message) error {
	s.writeMx.Lock()
	defer s.writeMx.Unlock()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	return proto.WriteMessage(s.conn, m)
}

// Closed reports whether the session has been shut down. A closed
// session can still be referenced by queued messages that have not
// been dispatched yet.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close shuts the socket down and releases every in-flight request
// waiter. Safe to call multiple times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) resolvePending(m proto.Message) bool {
	s.pendingMx.Lock()
	defer s.pendingMx.Unlock()
	ch, ok := s.pending[m.ID()]
	if !ok {
		return false
	}
	delete(s.pending, m.ID())
	ch <- m
	return true
}

func (s *Session) removePending(id uuid.UUID, ch chan proto.Message) {
	s.pendingMx.Lock()
	defer s.pendingMx.Unlock()
	if cur, ok := s.pending[id]; ok && cur == ch {
		delete(s.pending, id)
	}
}
