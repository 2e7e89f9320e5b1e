package tcp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/instapoker/server/proto"
	"github.com/instapoker/server/session"
)

const (
	defaultHandshakeTimeout = 3 * time.Second
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type (
	// Server accepts client connections on a single TCP port, walks
	// each one through the identification handshake and hands the
	// surviving connections to the session layer.
	Server struct {
		logger  zerolog.Logger
		addr    string
		reg     *proto.Registry
		users   *session.Manager
		version proto.Version
	}

	Config struct {
		Logger     *zerolog.Logger
		ListenAddr string
		Registry   *proto.Registry
		Users      *session.Manager
		Version    proto.Version
	}
)

func NewServer(cfg Config) *Server {
	return &Server{
		logger:  cfg.Logger.With().Str("component", "tcp-server").Logger(),
		addr:    cfg.ListenAddr,
		reg:     cfg.Registry,
		users:   cfg.Users,
		version: cfg.Version,
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", srv.addr)
	if err != nil {
		errc <- errors.Join(ErrUnexpected, err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	srv.logger.Info().Str("addr", listener.Addr().String()).Msg("server started")

	connWG := &sync.WaitGroup{}
	for {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			if errors.Is(acceptErr, net.ErrClosed) {
				break
			}
			srv.logger.Error().Err(acceptErr).Msg("accept failed")
			continue
		}
		connWG.Add(1)
		go func() {
			defer connWG.Done()
			srv.handle(ctx, conn)
		}()
	}
	connWG.Wait()
}

// Addr is the server's listen address.
func (srv *Server) Addr() string {
	return srv.addr
}

func (srv *Server) handle(ctx context.Context, conn net.Conn) {
	logger := srv.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()

	// the handshake must complete promptly, message reads afterwards
	// block for as long as the client stays quiet
	_ = conn.SetDeadline(time.Now().Add(defaultHandshakeTimeout))
	br := bufio.NewReader(conn)
	hello, err := proto.ReadClientHello(br)
	if err != nil {
		logger.Warn().Err(err).Msg("identification failed")
		_ = conn.Close()
		return
	}
	if err = proto.WriteServerHello(conn, srv.version); err != nil {
		logger.Error().Err(err).Msg("failed to send server hello")
		_ = conn.Close()
		return
	}
	_ = conn.SetDeadline(time.Time{})

	logger.Info().
		Str("username", hello.Username).
		Str("clientVersion", hello.Version.String()).
		Msg("client identified")

	sess := session.New(session.Config{
		Conn:     conn,
		Reader:   br,
		Username: hello.Username,
		Registry: srv.reg,
		Logger:   &srv.logger,
	})
	srv.users.Add(sess)
	sess.Receive(ctx)
	srv.users.Remove(sess)
}
