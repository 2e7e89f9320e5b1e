package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/instapoker/server/proto"
	"github.com/instapoker/server/room"
	"github.com/instapoker/server/router"
	httpServer "github.com/instapoker/server/server/http"
	tcpServer "github.com/instapoker/server/server/tcp"
	"github.com/instapoker/server/session"
)

var serverVersion = proto.Version{Major: 1}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)

	var (
		listenAddr    = fs.StringP("listen-addr", "a", ":12512", "game server listen address")
		apiListenAddr = fs.StringP("api-listen-addr", "s", ":8080", "status api listen address")
		logLevel      = fs.StringP("log-level", "l", "debug", "log level")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	registry := proto.NewRegistry()
	users := session.NewManager(session.ManagerConfig{Logger: &logger})
	rooms := room.NewManager(room.Config{Logger: &logger})
	users.SetDisconnectHandler(rooms)

	rt := router.New(router.Config{
		Users:  users,
		Rooms:  rooms,
		Logger: &logger,
	})
	gameSrv := tcpServer.NewServer(tcpServer.Config{
		Logger:     &logger,
		ListenAddr: *listenAddr,
		Registry:   registry,
		Users:      users,
		Version:    serverVersion,
	})
	apiSrv := httpServer.NewServer(httpServer.Config{
		Logger:     &logger,
		Rooms:      rooms,
		Users:      users,
		ListenAddr: *apiListenAddr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(3)
	go gameSrv.Run(ctx, wg, errc)
	go apiSrv.Run(ctx, wg, errc)
	go rt.Run(ctx, wg)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
