package board

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wtask/board/internal/board/archive"
	"github.com/wtask/board/pkg/background"
)

// DefaultGroups - groups of the server built without WithGroups option.
var DefaultGroups = []string{"public", "group1", "group2", "group3", "group4", "group5"}

// Server - bulletin board over any net.Listener implementation.
//
// Every accepted connection is served by its own goroutine and there is no limit
// of concurrent connections. No I/O timeouts are applied to clients,
// so a client which stops reading or writing holds its goroutine until it disconnects.
type Server struct {
	logger         *slog.Logger
	groupNames     []string
	archive        archive.Archiver
	archiveTimeout time.Duration
	outboxSize     int
	maxLineSize    int
	now            func() time.Time

	commands map[string]command
	registry *Registry
	users    *userSet
	clients  *clientDirectory

	sessions *background.Scope
	jobs     *background.Scope

	mu        sync.Mutex
	closed    bool
	listeners map[net.Listener]struct{}
}

// NewServer - creates new server which is ready to serve several network listeners.
func NewServer(options ...ServerOption) (*Server, error) {
	sessions, _ := background.NewScope()
	jobs, _ := background.NewScope()
	s := &Server{
		logger:         slog.Default(),
		groupNames:     DefaultGroups,
		archiveTimeout: 5 * time.Second,
		outboxSize:     64,
		maxLineSize:    4096,
		now:            time.Now,
		commands:       newCommandTable(),
		users:          newUserSet(),
		clients:        newClientDirectory(),
		sessions:       sessions,
		jobs:           jobs,
		listeners:      map[net.Listener]struct{}{},
	}
	if err := setup(s, options...); err != nil {
		return nil, err
	}
	if err := validateCommands(s.commands); err != nil {
		return nil, fmt.Errorf("board.NewServer: %w", err)
	}
	registry, err := NewRegistry(s.groupNames...)
	if err != nil {
		return nil, fmt.Errorf("board.NewServer: %w", err)
	}
	s.registry = registry
	return s, nil
}

func (s *Server) track(l net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.listeners[l] = struct{}{}
	return true
}

func (s *Server) untrack(l net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, l)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Serve - accepts connections on the listener and starts session for each of them.
// Always returns non-nil error, ErrServerClosed after Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	if listener == nil {
		return errors.New("board.Server: listener is nil")
	}
	if !s.track(listener) {
		return ErrServerClosed
	}
	defer s.untrack(listener)

	s.logger.Info("accepting connections", "addr", listener.Addr().String())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("accept failed", "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		go s.ServeConn(conn)
	}
}

// ServeConn - runs single session over conn and returns when the session is over.
// The conn is closed on return.
func (s *Server) ServeConn(conn Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.sessions.Add(1)
	s.mu.Unlock()
	defer s.sessions.Done()

	newSession(s, conn).run()
}

// Shutdown - stops accepting new connections and waits for running sessions
// and archive jobs to finish, but no longer than timeout.
// Sessions are never terminated by server, unfinished archive jobs are cancelled.
// Returns duration of time spent for shutdown.
func (s *Server) Shutdown(timeout time.Duration) time.Duration {
	from := time.Now()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.closed = true
	for l := range s.listeners {
		l.Close()
	}
	s.mu.Unlock()

	drained := s.sessions.Wait(timeout)
	if !drained {
		s.logger.Warn("sessions are still running after shutdown timeout", "users", s.users.len())
	}
	// jobs are waited only when no session is left to start a new one
	if left := timeout - time.Since(from); drained && left > 0 {
		if !s.jobs.Wait(left) {
			s.logger.Warn("archive jobs are still running after shutdown timeout")
		}
	}
	// aborts running archive jobs and turns off archiving for sessions which outlived timeout
	s.jobs.Cancel()
	return time.Since(from)
}

// GroupInfo - point-in-time summary of a group.
type GroupInfo struct {
	Name    string   `json:"name"`
	Alias   int      `json:"alias"`
	Members []string `json:"members"`
	Posts   int      `json:"posts"`
}

func groupInfo(g *Group) GroupInfo {
	members, posts := g.summary()
	return GroupInfo{Name: g.Name(), Alias: g.Alias(), Members: members, Posts: posts}
}

// Groups - returns summary of all groups ordered by alias.
func (s *Server) Groups() []GroupInfo {
	groups := s.registry.Groups()
	info := make([]GroupInfo, 0, len(groups))
	for _, g := range groups {
		info = append(info, groupInfo(g))
	}
	return info
}

// Group - returns summary of group identified by name or alias.
func (s *Server) Group(id string) (GroupInfo, error) {
	g, err := s.registry.Resolve(id)
	if err != nil {
		return GroupInfo{}, err
	}
	return groupInfo(g), nil
}

// Users - returns sorted names of logged in users.
func (s *Server) Users() []string {
	return s.users.list()
}
