package board

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wtask/board/internal/board/archive"
)

type ServerOption func(s *Server) error

func setup(s *Server, options ...ServerOption) error {
	if s == nil {
		return nil
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(s); err != nil {
			return err
		}
	}
	return nil
}

// WithLogger - overwrites default slog logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("board.WithLogger: logger is nil")
		}
		s.logger = logger
		return nil
	}
}

// WithGroups - overwrites default group set. The first group becomes the default one.
func WithGroups(names ...string) ServerOption {
	return func(s *Server) error {
		if len(names) == 0 {
			return errors.New("board.WithGroups: empty group list")
		}
		s.groupNames = append([]string(nil), names...)
		return nil
	}
}

// WithArchive - attaches archiver, every posted message will be passed to it.
func WithArchive(a archive.Archiver) ServerOption {
	return func(s *Server) error {
		if a == nil {
			return errors.New("board.WithArchive: archiver is nil")
		}
		s.archive = a
		return nil
	}
}

// WithArchiveTimeout - overwrites time limit of single archive call.
func WithArchiveTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) error {
		if timeout <= 0 {
			return fmt.Errorf("board.WithArchiveTimeout: invalid timeout (%v)", timeout)
		}
		s.archiveTimeout = timeout
		return nil
	}
}

// WithOutboxSize - overwrites capacity of session outbox.
// Notifications for a session whose outbox is full are dropped.
func WithOutboxSize(size int) ServerOption {
	return func(s *Server) error {
		if size <= 0 {
			return fmt.Errorf("board.WithOutboxSize: invalid size (%d)", size)
		}
		s.outboxSize = size
		return nil
	}
}

// WithMaxLineSize - overwrites max length in bytes of single inbound line.
// Longer line terminates the session.
func WithMaxLineSize(size int) ServerOption {
	return func(s *Server) error {
		if size < 64 {
			return fmt.Errorf("board.WithMaxLineSize: size (%d) must be at least 64", size)
		}
		s.maxLineSize = size
		return nil
	}
}

// WithClock - overwrites time source of posted messages.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) error {
		if now == nil {
			return errors.New("board.WithClock: clock is nil")
		}
		s.now = now
		return nil
	}
}
