package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/instapoker/server/proto"
	"github.com/instapoker/server/session"
)

const defaultDialTimeout = 20 * time.Second

var (
	ErrConnect = errors.New("unable to connect to server")
)

type (
	// Client is the connection API the game front end consumes:
	// typed request helpers for the room operations, fire-and-forget
	// notifications, and a stream of everything the server pushes.
	Client struct {
		sess          *session.Session
		serverVersion proto.Version
		logger        zerolog.Logger
	}

	Config struct {
		Addr     string
		Username string
		Version  proto.Version
		Registry *proto.Registry
		Logger   *zerolog.Logger
	}
)

// Dial connects, runs the identification handshake and starts the
// receive loop. The returned client is ready for requests.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	d := net.Dialer{Timeout: defaultDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	hello := proto.ClientHello{
		Version:  cfg.Version,
		Username: cfg.Username,
	}
	if err = proto.WriteClientHello(conn, hello); err != nil {
		_ = conn.Close()
		return nil, errors.Join(ErrConnect, err)
	}
	br := bufio.NewReader(conn)
	serverVersion, err := proto.ReadServerHello(br)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Join(ErrConnect, err)
	}

	logger := cfg.Logger.With().Str("component", "client").Logger()
	logger.Info().Str("serverVersion", serverVersion.String()).Msg("connected")

	sess := session.New(session.Config{
		Conn:     conn,
		Reader:   br,
		Username: cfg.Username,
		Registry: cfg.Registry,
		Logger:   cfg.Logger,
	})
	go sess.Receive(context.Background())

	return &Client{
		sess:          sess,
		serverVersion: serverVersion,
		logger:        logger,
	}, nil
}

func (c *Client) ServerVersion() proto.Version {
	return c.serverVersion
}

// Notifications streams every message the server pushes outside of
// request/response pairs.
func (c *Client) Notifications() <-chan proto.Message {
	return c.sess.Inbound()
}

func (c *Client) CreateRoom(ctx context.Context) (*proto.CreateRoomResponse, error) {
	m, err := c.sess.SendRequest(ctx, &proto.CreateRoomRequest{}, (&proto.CreateRoomResponse{}).ID())
	if err != nil {
		return nil, err
	}
	return m.(*proto.CreateRoomResponse), nil
}

func (c *Client) JoinRoom(ctx context.Context, code string) (*proto.JoinRoomResponse, error) {
	req := &proto.JoinRoomRequest{RoomCode: code}
	m, err := c.sess.SendRequest(ctx, req, (&proto.JoinRoomResponse{}).ID())
	if err != nil {
		return nil, err
	}
	return m.(*proto.JoinRoomResponse), nil
}

func (c *Client) LeaveRoom() error {
	return c.sess.Send(&proto.LeaveRoomNotification{})
}

func (c *Client) KickUser(username string) error {
	return c.sess.Send(&proto.KickUserNotification{Username: username})
}

func (c *Client) SendSettings(settings proto.RoomSettings) error {
	return c.sess.Send(&proto.RoomSettingsChangeNotification{NewSettings: settings})
}

func (c *Client) StartGame() error {
	return c.sess.Send(&proto.OwnerStartGameNotification{})
}

// Send writes an arbitrary message, e.g. a BalanceQueryResponse
// answering a server-initiated query.
func (c *Client) Send(m proto.Message) error {
	return c.sess.Send(m)
}

func (c *Client) Close() error {
	return c.sess.Close()
}
