package router

import (
	"context"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"github.com/instapoker/server/proto"
	"github.com/instapoker/server/session"
)

const defaultTick = time.Millisecond

type (
	// Rooms is the part of the room manager the router dispatches to.
	Rooms interface {
		CreateRoom(s *session.Session) error
		JoinRoom(s *session.Session, code string) error
		LeaveRoom(s *session.Session) error
		KickUser(s *session.Session, username string) error
		UpdateSettings(s *session.Session, settings proto.RoomSettings) error
		StartGame(s *session.Session) error
	}

	// Router drains every session's inbound queue on a fixed cadence
	// and dispatches each message by concrete type. Handlers run in
	// their own goroutine: a handler doing network round-trips (the
	// balance queries at game start) or waiting on a slow peer's write
	// buffer must never stall message processing for the other
	// connections. A failing or panicking handler is logged per
	// message and never takes the loop down.
	Router struct {
		users  *session.Manager
		rooms  Rooms
		tick   time.Duration
		logger zerolog.Logger
	}

	Config struct {
		Users  *session.Manager
		Rooms  Rooms
		Logger *zerolog.Logger
	}
)

func New(cfg Config) *Router {
	return &Router{
		users:  cfg.Users,
		rooms:  cfg.Rooms,
		tick:   defaultTick,
		logger: cfg.Logger.With().Str("component", "router").Logger(),
	}
}

func (rt *Router) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer func() {
		rt.logger.Debug().Msg("router stopped")
		wg.Done()
	}()

	ticker := time.NewTicker(rt.tick)
	defer ticker.Stop()

	rt.logger.Info().Msg("router started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sess := range rt.users.Snapshot() {
				rt.drain(sess)
			}
		}
	}
}

func (rt *Router) drain(s *session.Session) {
	for {
		select {
		case m := <-s.Inbound():
			go rt.dispatch(s, m)
		default:
			return
		}
	}
}

func (rt *Router) dispatch(s *session.Session, m proto.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			rt.logger.Error().
				Interface("panic", rec).
				Str("username", s.Username()).
				Type("message", m).
				Msg("handler panicked")
		}
	}()

	var err error
	switch msg := m.(type) {
	case *proto.CreateRoomRequest:
		err = rt.rooms.CreateRoom(s)
	case *proto.JoinRoomRequest:
		err = rt.rooms.JoinRoom(s, msg.RoomCode)
	case *proto.LeaveRoomNotification:
		err = rt.rooms.LeaveRoom(s)
	case *proto.KickUserNotification:
		err = rt.rooms.KickUser(s, msg.Username)
	case *proto.RoomSettingsChangeNotification:
		err = rt.rooms.UpdateSettings(s, msg.NewSettings)
	case *proto.OwnerStartGameNotification:
		err = rt.rooms.StartGame(s)
	default:
		rt.logger.Warn().
			Str("username", s.Username()).
			Type("message", m).
			Str("dump", spew.Sdump(m)).
			Msg("message has no handler")
		return
	}
	if err != nil {
		rt.logger.Error().
			Err(err).
			Str("username", s.Username()).
			Type("message", m).
			Msg("handler failed")
	}
}
