package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wtask/board/internal/board"
	"github.com/wtask/board/internal/board/archive"
	"github.com/wtask/board/internal/board/status"
	"github.com/wtask/board/internal/board/wsbridge"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: Config.LogLevel})).
		With("app", BinaryName, "version", Version)
	logger.Info("started", "config", fmt.Sprintf("%+v", Config))

	var mongo *archive.Mongo
	if Config.ArchiveURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		m, err := archive.DialMongo(ctx, Config.ArchiveURI, Config.ArchiveDatabase, Config.ArchiveCollection)
		cancel()
		if err != nil {
			logger.Error("unable to connect archive", "err", err)
			os.Exit(1)
		}
		mongo = m
		logger.Info("archive connected", "db", Config.ArchiveDatabase, "collection", Config.ArchiveCollection)
	}

	options := []board.ServerOption{
		board.WithLogger(logger),
		board.WithGroups(Config.Groups...),
		board.WithOutboxSize(Config.OutboxSize),
		board.WithMaxLineSize(Config.MaxLineSize),
	}
	if mongo != nil {
		options = append(options, board.WithArchive(mongo))
	}
	server, err := board.NewServer(options...)
	if err != nil {
		logger.Error("can't create board server", "err", err)
		os.Exit(1)
	}

	node := net.JoinHostPort(Config.IPAddress, fmt.Sprintf("%d", Config.Port))
	listener, err := net.Listen("tcp", node)
	if err != nil {
		logger.Error("unable to listen TCP", "addr", node, "err", err)
		os.Exit(1)
	}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, board.ErrServerClosed) {
			logger.Error("board server stopped", "err", err)
		}
	}()

	var web *http.Server
	if Config.HTTPAddress != "" {
		router := status.NewRouter(server, logger.With("component", "status"))
		router.Handle("/ws", wsbridge.Handler(server, logger.With("component", "wsbridge")))
		web = &http.Server{
			Addr:              Config.HTTPAddress,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving HTTP", "addr", Config.HTTPAddress)
			if err := web.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server stopped", "err", err)
			}
		}()
	}
	logger.Info("board server has started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("got stop signal")

	if web != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// hijacked WebSocket connections are not waited here, board server tracks them
		if err := web.Shutdown(ctx); err != nil {
			logger.Warn("HTTP shutdown", "err", err)
		}
		cancel()
	}
	logger.Info("board server stopped", "elapsed", server.Shutdown(10*time.Second))

	if mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := mongo.Close(ctx); err != nil {
			logger.Warn("archive disconnect", "err", err)
		}
		cancel()
	}
	logger.Info("bye")
}
