package board

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wtask/board/internal/board/text"
)

// Conn - bidirectional stream of single client.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

type sessionState int

const (
	stateHandshake sessionState = iota
	stateActive
	stateTerminated
)

func (st sessionState) String() string {
	switch st {
	case stateHandshake:
		return "handshake"
	case stateActive:
		return "active"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session - server side state of single connected client.
// All fields except outbox are owned by the session goroutine.
type Session struct {
	id     string
	server *Server
	conn   Conn
	logger *slog.Logger
	lines  *bufio.Scanner

	// ctx is cancelled when peer can't be written anymore
	ctx    context.Context
	cancel context.CancelFunc

	outMu      sync.RWMutex
	outClosed  bool
	outbox     chan string
	writerDone chan struct{}

	state    sessionState
	username string
	verb     string
	// cutoffs - lower bound of readable index per group name, absent key means notMember
	cutoffs map[string]int

	terminate sync.Once
}

func newSession(server *Server, conn Conn) *Session {
	id := uuid.NewString()
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.Network() + " " + addr.String()
	}
	ctx, cancel := context.WithCancel(context.Background())
	lines := bufio.NewScanner(conn)
	lines.Buffer(make([]byte, 0, 64), server.maxLineSize)
	return &Session{
		id:         id,
		server:     server,
		conn:       conn,
		logger:     server.logger.With("session", id, "remote", remote),
		lines:      lines,
		ctx:        ctx,
		cancel:     cancel,
		outbox:     make(chan string, server.outboxSize),
		writerDone: make(chan struct{}),
		cutoffs:    map[string]int{},
	}
}

// run - drives session through all states and returns when session is terminated
// and all its outgoing messages are written or the peer became unwritable.
func (s *Session) run() {
	s.logger.Info("session started")
	go s.maintainOutbox()

	err := s.handshake()
	if err == nil {
		err = s.serve()
	}
	s.close(err)

	s.closeOutbox()
	<-s.writerDone
	s.cancel()
	s.conn.Close()
}

// maintainOutbox - writes queued messages into connection until outbox is closed.
func (s *Session) maintainOutbox() {
	defer close(s.writerDone)
	for message := range s.outbox {
		if _, err := io.WriteString(s.conn, frame(message)); err != nil {
			s.logger.Debug("write failed", "err", err)
			s.cancel()
			// help to release blocked reader immediately
			s.conn.Close()
			return
		}
	}
}

// reply - queues message for the peer, blocks while outbox is full.
func (s *Session) reply(message string) error {
	select {
	case s.outbox <- message:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// deliver - implements recipient, notifications are never waited for.
func (s *Session) deliver(note string) bool {
	s.outMu.RLock()
	defer s.outMu.RUnlock()
	if s.outClosed {
		return false
	}
	select {
	case s.outbox <- note:
		return true
	default:
		return false
	}
}

func (s *Session) closeOutbox() {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outClosed {
		return
	}
	s.outClosed = true
	close(s.outbox)
}

func (s *Session) readLine() (string, error) {
	if !s.lines.Scan() {
		err := s.lines.Err()
		if err == nil {
			err = io.EOF
		}
		return "", fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return strings.TrimRight(s.lines.Text(), "\r"), nil
}

// handshake - repeats username prompt until unique name is received.
func (s *Session) handshake() error {
	prompt := promptUsername
	for {
		if err := s.reply(prompt); err != nil {
			return err
		}
		line, err := s.readLine()
		if err != nil {
			return err
		}
		name := strings.TrimSpace(line)
		switch {
		case !text.IsWord(name, EndOfMessage):
			prompt = replyBadUsername
		case !s.server.users.claim(name):
			prompt = formatTaken(name)
		default:
			s.username = name
			s.state = stateActive
			s.server.clients.put(name, s)
			s.logger = s.logger.With("user", name)
			s.logger.Info("user logged in")
			return s.reply(formatWelcome(name))
		}
	}
}

// serve - command loop, returns only fatal error.
func (s *Session) serve() error {
	for {
		line, err := s.readLine()
		if err != nil {
			return err
		}
		if err := s.handle(line); err != nil {
			return err
		}
	}
}

// handle - runs command and replies to every recoverable failure.
func (s *Session) handle(line string) error {
	err := s.dispatch(line)
	var (
		argErr   *ArgumentsError
		groupErr *GroupNotFoundError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSessionClosed), errors.Is(err, errQuit):
		return err
	case errors.Is(err, ErrUnknownCommand):
		return s.reply(replyInvalidCommand)
	case errors.As(err, &argErr):
		return s.reply(formatBadArguments(argErr.Verb))
	case errors.As(err, &groupErr):
		return s.reply(formatGroupNotFound(text.Sanitize(groupErr.ID, EndOfMessage)))
	default:
		s.logger.Error("command failed", "command", line, "err", err)
		return s.reply(replyFault)
	}
}

// close - leaves all groups, releases username and removes session from client directory.
// Safe to call several times, only the first call has effect.
func (s *Session) close(cause error) {
	s.terminate.Do(func() {
		last := s.state
		if last == stateActive {
			for _, g := range s.server.registry.Groups() {
				if s.cutoff(g) != notMember {
					s.leaveGroup(g)
				}
			}
			s.server.users.release(s.username)
			s.server.clients.remove(s.username, s)
		}
		s.state = stateTerminated
		if errors.Is(cause, errQuit) {
			s.logger.Info("session closed by client")
			return
		}
		s.logger.Info("session terminated", "state", last.String(), "cause", cause)
	})
}

func (s *Session) cutoff(g *Group) int {
	if c, ok := s.cutoffs[g.Name()]; ok {
		return c
	}
	return notMember
}

func (s *Session) join(g *Group) error {
	cutoff, members, err := g.Join(s.username)
	if errors.Is(err, ErrAlreadyMember) {
		return s.reply(formatAlreadyMember(g.Name()))
	}
	if err != nil {
		return err
	}
	s.cutoffs[g.Name()] = cutoff
	err = s.reply(formatJoined(g.Name()))
	s.server.broadcast(s.username, members, formatJoinNotice(s.username, g.Name()))
	return err
}

// leaveGroup - removes membership and notifies remaining members.
func (s *Session) leaveGroup(g *Group) error {
	members, err := g.Leave(s.username)
	delete(s.cutoffs, g.Name())
	if err != nil {
		return err
	}
	s.server.broadcast(s.username, members, formatLeaveNotice(s.username, g.Name()))
	return nil
}

func (s *Session) leave(g *Group) error {
	err := s.leaveGroup(g)
	if errors.Is(err, ErrNotMember) {
		return s.reply(formatNotMember(g.Name()))
	}
	if err != nil {
		return err
	}
	return s.reply(formatLeft(g.Name()))
}

func (s *Session) post(g *Group) error {
	if s.cutoff(g) == notMember {
		return s.reply(formatCannotPost(g.Name()))
	}
	if err := s.reply(promptSubject); err != nil {
		return err
	}
	subject, err := s.readLine()
	if err != nil {
		return err
	}
	if err := s.reply(promptBody); err != nil {
		return err
	}
	body, err := s.readLine()
	if err != nil {
		return err
	}

	m, members, err := g.Post(
		s.username,
		text.Sanitize(subject, EndOfMessage),
		text.Sanitize(body, EndOfMessage),
		s.server.now(),
	)
	if errors.Is(err, ErrNotMember) {
		return s.reply(formatCannotPost(g.Name()))
	}
	if err != nil {
		return err
	}
	s.logger.Debug("message posted", "group", g.Name(), "index", m.Index)
	err = s.reply(replyPosted)
	s.server.broadcast(s.username, members, formatPostNotice(g.Name(), m))
	s.server.archivePost(g, m)
	return err
}

func (s *Session) message(g *Group, index int) error {
	m, err := g.Read(index, s.cutoff(g))
	switch {
	case errors.Is(err, ErrNotMember):
		return s.reply(formatCannotRead(g.Name()))
	case errors.Is(err, ErrCannotAccess):
		return s.reply(formatCannotAccess(index))
	case errors.Is(err, ErrNoSuchMessage):
		return s.reply(formatNoSuchMessage(index))
	case err != nil:
		return err
	}
	return s.reply(formatMessage(g.Name(), m))
}

func (s *Session) users(g *Group) error {
	return s.reply(formatUsers(g.Name(), g.Members()))
}

func (s *Session) groups() error {
	return s.reply(formatGroups(s.server.registry.Groups()))
}

func (s *Session) help() error {
	return s.reply(usage(s.server.commands))
}

func (s *Session) exit() error {
	if err := s.reply(formatGoodbye(s.username)); err != nil {
		return err
	}
	return errQuit
}
