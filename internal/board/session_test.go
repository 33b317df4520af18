package board

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wtask/board/internal/board/archive"
)

var testTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestServer(test *testing.T, options ...ServerOption) *Server {
	test.Helper()
	options = append([]ServerOption{WithClock(func() time.Time { return testTime })}, options...)
	s, err := NewServer(options...)
	if err != nil {
		test.Fatal("board.NewServer, unexpected error:", err)
	}
	return s
}

// testClient - peer side of a session over net.Pipe.
type testClient struct {
	test   *testing.T
	name   string
	conn   net.Conn
	reader *bufio.Reader
}

func connectClient(test *testing.T, s *Server, name string) *testClient {
	test.Helper()
	clientConn, serverConn := net.Pipe()
	go s.ServeConn(serverConn)
	return &testClient{test: test, name: name, conn: clientConn, reader: bufio.NewReader(clientConn)}
}

// login - connects client and passes handshake.
func login(test *testing.T, s *Server, name string) *testClient {
	test.Helper()
	c := connectClient(test, s, name)
	c.expect(promptUsername)
	c.send(name)
	c.expect(formatWelcome(name))
	return c
}

// next - reads single message until end-of-message marker.
func (c *testClient) next() (string, error) {
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	message := ""
	for !strings.HasSuffix(message, EndOfMessage) {
		chunk, err := c.reader.ReadString('>')
		message += chunk
		if err != nil {
			return message, err
		}
	}
	return strings.TrimSuffix(message, EndOfMessage), nil
}

func (c *testClient) expect(expected string) {
	c.test.Helper()
	message, err := c.next()
	if err != nil {
		c.test.Fatalf("%s: unable to read %q: %v (got %q)", c.name, expected, err, message)
	}
	if message != expected {
		c.test.Errorf("%s: expected %q, got %q", c.name, expected, message)
	}
}

func (c *testClient) send(line string) {
	c.test.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		c.test.Fatalf("%s: unable to send %q: %v", c.name, line, err)
	}
}

// expectClosed - waits until server closes connection.
func (c *testClient) expectClosed() {
	c.test.Helper()
	if message, err := c.next(); err == nil {
		c.test.Errorf("%s: expected closed connection, got %q", c.name, message)
	}
}

func (c *testClient) exit() {
	c.test.Helper()
	c.send("exit")
	c.expect(formatGoodbye(c.name))
	c.expectClosed()
	c.conn.Close()
}

func TestSession_handshake(test *testing.T) {
	s := newTestServer(test)
	alice := login(test, s, "alice")

	c := connectClient(test, s, "second")
	c.expect(promptUsername)
	c.send("")
	c.expect(replyBadUsername)
	c.send("alice bob")
	c.expect(replyBadUsername)
	c.send("alice")
	c.expect(formatTaken("alice"))
	c.send("bob")
	c.expect(formatWelcome("bob"))

	if users := s.Users(); len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		test.Error("Unexpected users", users)
	}
	alice.exit()
	c.name = "bob"
	c.exit()
	s.Shutdown(time.Second)
}

func TestSession_handshake_concurrent(test *testing.T) {
	s := newTestServer(test)
	n := 10
	clients := make([]*testClient, n)
	for i := range clients {
		clients[i] = connectClient(test, s, "alice")
		clients[i].expect(promptUsername)
	}

	welcomed := make(chan bool, n)
	wg := sync.WaitGroup{}
	for _, c := range clients {
		wg.Add(1)
		go func(c *testClient) {
			defer wg.Done()
			io.WriteString(c.conn, "alice\n")
			message, err := c.next()
			if err != nil {
				test.Error("Unable to read handshake reply:", err)
				return
			}
			switch message {
			case formatWelcome("alice"):
				welcomed <- true
			case formatTaken("alice"):
				welcomed <- false
			default:
				test.Errorf("Unexpected handshake reply %q", message)
			}
		}(c)
	}
	wg.Wait()
	close(welcomed)

	count := 0
	for ok := range welcomed {
		if ok {
			count++
		}
	}
	if count != 1 {
		test.Error("Expected exactly one welcome, got", count)
	}
	if s.users.len() != 1 {
		test.Error("Expected single active user, got", s.users.len())
	}

	for _, c := range clients {
		c.conn.Close()
	}
	s.Shutdown(2 * time.Second)
	if s.users.len() != 0 || s.clients.len() != 0 {
		test.Error("Expected no users after disconnect", s.users.list(), s.clients.len())
	}
}

func TestSession_joinLeave(test *testing.T) {
	s := newTestServer(test)
	alice := login(test, s, "alice")
	bob := login(test, s, "bob")

	alice.send("join")
	alice.expect(formatJoined("public"))
	alice.send("join public")
	alice.expect(formatAlreadyMember("public"))

	bob.send("join 0")
	bob.expect(formatJoined("public"))
	alice.expect(formatJoinNotice("bob", "public"))

	alice.send("users")
	alice.expect("alice\nbob")
	bob.send("groupusers group1")
	bob.expect(formatUsers("group1", nil))

	bob.send("leave")
	bob.expect(formatLeft("public"))
	alice.expect(formatLeaveNotice("bob", "public"))
	bob.send("leave public")
	bob.expect(formatNotMember("public"))

	bob.send("join nowhere")
	bob.expect(formatGroupNotFound("nowhere"))
	bob.send("groupjoin")
	bob.expect(formatBadArguments("groupjoin"))
	bob.send("join 1 2")
	bob.expect(formatBadArguments("join"))

	alice.exit()
	bob.exit()
	s.Shutdown(time.Second)
}

func TestSession_postAndRead(test *testing.T) {
	s := newTestServer(test)
	alice := login(test, s, "alice")
	bob := login(test, s, "bob")

	alice.send("post")
	alice.expect(formatCannotPost("public"))
	alice.send("message 0")
	alice.expect(formatCannotRead("public"))

	alice.send("join")
	alice.expect(formatJoined("public"))
	bob.send("join")
	bob.expect(formatJoined("public"))
	alice.expect(formatJoinNotice("bob", "public"))

	alice.send("post")
	alice.expect(promptSubject)
	alice.send("Hello")
	alice.expect(promptBody)
	alice.send("  World  ")
	alice.expect(replyPosted)
	bob.expect("Message ID: 0\nGroup: public\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: Hello")

	bob.send("message 0")
	bob.expect("Message ID: 0\nGroup: public\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: Hello\n\nWorld")
	bob.send("message public 1")
	bob.expect(formatNoSuchMessage(1))
	bob.send("message first")
	bob.expect(formatBadArguments("message"))
	bob.send("groupmessage 0")
	bob.expect(formatBadArguments("groupmessage"))

	alice.exit()
	bob.exit()
	s.Shutdown(time.Second)
}

func TestSession_joinCutoff(test *testing.T) {
	s := newTestServer(test)
	alice := login(test, s, "alice")
	alice.send("groupjoin group2")
	alice.expect(formatJoined("group2"))
	for _, subject := range []string{"first", "second", "third"} {
		alice.send("grouppost 2")
		alice.expect(promptSubject)
		alice.send(subject)
		alice.expect(promptBody)
		alice.send("body")
		alice.expect(replyPosted)
	}

	bob := login(test, s, "bob")
	bob.send("join group2")
	bob.expect(formatJoined("group2"))
	alice.expect(formatJoinNotice("bob", "group2"))

	bob.send("groupmessage group2 0")
	bob.expect(formatCannotAccess(0))
	bob.send("message 2 1")
	bob.expect("Message ID: 1\nGroup: group2\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: second\n\nbody")
	bob.send("message group2 2")
	bob.expect("Message ID: 2\nGroup: group2\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: third\n\nbody")
	bob.send("message group2 3")
	bob.expect(formatNoSuchMessage(3))

	alice.exit()
	bob.exit()
	s.Shutdown(time.Second)
}

func TestSession_commands(test *testing.T) {
	s := newTestServer(test)
	alice := login(test, s, "alice")

	alice.send("foo")
	alice.expect(replyInvalidCommand)
	alice.send("")
	alice.send("   ")
	alice.send("GROUPS")
	alice.expect("0: public\n1: group1\n2: group2\n3: group3\n4: group4\n5: group5")
	alice.send("help")
	alice.expect(usage(s.commands))
	alice.send("exit now")
	alice.expect(formatBadArguments("exit"))

	alice.exit()
	s.Shutdown(time.Second)
}

func TestSession_exit(test *testing.T) {
	s := newTestServer(test)
	alice := login(test, s, "alice")
	bob := login(test, s, "bob")
	alice.send("join")
	alice.expect(formatJoined("public"))
	alice.send("join group1")
	alice.expect(formatJoined("group1"))
	bob.send("join")
	bob.expect(formatJoined("public"))
	alice.expect(formatJoinNotice("bob", "public"))

	alice.exit()
	bob.expect(formatLeaveNotice("alice", "public"))
	if g, _ := s.registry.Resolve("group1"); len(g.Members()) != 0 {
		test.Error("alice must leave all groups on exit", g.Members())
	}

	// the name is available again
	again := login(test, s, "alice")
	again.exit()

	// abrupt disconnect is handled the same way
	carol := login(test, s, "carol")
	carol.send("join")
	carol.expect(formatJoined("public"))
	bob.expect(formatJoinNotice("carol", "public"))
	carol.conn.Close()
	bob.expect(formatLeaveNotice("carol", "public"))

	bob.exit()
	s.Shutdown(time.Second)
	if s.users.len() != 0 || len(s.registry.Default().Members()) != 0 {
		test.Error("Unexpected state after all sessions closed", s.users.list(), s.registry.Default().Members())
	}
}

func TestSession_commandPanic(test *testing.T) {
	s := newTestServer(test)
	s.commands["boom"] = command{0, 0, "boom", func(*Session, []string) error { panic("boom") }}
	alice := login(test, s, "alice")
	alice.send("boom")
	alice.expect(replyFault)
	alice.send("groups")
	alice.expect(formatGroups(s.registry.Groups()))
	alice.exit()
	s.Shutdown(time.Second)
}

func TestSession_maxLineSize(test *testing.T) {
	s := newTestServer(test, WithMaxLineSize(64))
	c := connectClient(test, s, "alice")
	c.expect(promptUsername)
	go io.WriteString(c.conn, strings.Repeat("a", 200)+"\n")
	c.expectClosed()
	c.conn.Close()
	s.Shutdown(time.Second)
	if s.users.len() != 0 {
		test.Error("Unexpected users", s.users.list())
	}
}

func TestSession_deliver(test *testing.T) {
	s := newTestServer(test, WithOutboxSize(1))
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	session := newSession(s, serverConn)
	defer session.cancel()

	if !session.deliver("first") {
		test.Error("Expected delivery into empty outbox")
	}
	if session.deliver("second") {
		test.Error("Expected drop when outbox is full")
	}
	session.closeOutbox()
	session.closeOutbox()
	if session.deliver("third") {
		test.Error("Expected drop after outbox is closed")
	}
}

type fakeArchiver struct {
	entries chan archive.Entry
}

func (a *fakeArchiver) Archive(ctx context.Context, e archive.Entry) error {
	a.entries <- e
	return errors.New("archive is read-only")
}

func TestSession_archive(test *testing.T) {
	archiver := &fakeArchiver{entries: make(chan archive.Entry, 1)}
	s := newTestServer(test, WithArchive(archiver))
	alice := login(test, s, "alice")
	alice.send("join group5")
	alice.expect(formatJoined("group5"))
	alice.send("post 5")
	alice.expect(promptSubject)
	alice.send("subject")
	alice.expect(promptBody)
	alice.send("body")
	alice.expect(replyPosted)

	select {
	case e := <-archiver.entries:
		expected := archive.Entry{
			Group:    "group5",
			Index:    0,
			Author:   "alice",
			Subject:  "subject",
			Body:     "body",
			PostedAt: testTime,
		}
		if e != expected {
			test.Error("Expected archived entry:", expected, "got:", e)
		}
	case <-time.After(2 * time.Second):
		test.Error("Posted message was not archived")
	}

	alice.exit()
	s.Shutdown(time.Second)
}

// post - runs post dialog and expects own confirmation.
func (c *testClient) post(group, subject, body string) {
	c.test.Helper()
	c.send("post " + group)
	c.expect(promptSubject)
	c.send(subject)
	c.expect(promptBody)
	c.send(body)
	c.expect(replyPosted)
}

func TestSession_leaveRevokesAccess(test *testing.T) {
	s := newTestServer(test)
	alice := login(test, s, "alice")
	bob := login(test, s, "bob")
	alice.send("join group3")
	alice.expect(formatJoined("group3"))
	for _, subject := range []string{"m0", "m1", "m2"} {
		alice.post("group3", subject, "body")
	}

	bob.send("join group3")
	bob.expect(formatJoined("group3"))
	alice.expect(formatJoinNotice("bob", "group3"))
	bob.send("message group3 1")
	bob.expect("Message ID: 1\nGroup: group3\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: m1\n\nbody")

	bob.send("leave group3")
	bob.expect(formatLeft("group3"))
	alice.expect(formatLeaveNotice("bob", "group3"))
	for _, index := range []string{"0", "1", "2", "5"} {
		bob.send("message group3 " + index)
		bob.expect(formatCannotRead("group3"))
	}

	for _, subject := range []string{"m3", "m4"} {
		alice.post("group3", subject, "body")
		// the author is never notified about own post
		alice.send("users group3")
		alice.expect("alice")
	}

	// window is recalculated from current length: max(5-2, 0) = 3
	bob.send("join group3")
	bob.expect(formatJoined("group3"))
	alice.expect(formatJoinNotice("bob", "group3"))
	bob.send("message group3 1")
	bob.expect(formatCannotAccess(1))
	bob.send("message group3 2")
	bob.expect(formatCannotAccess(2))
	bob.send("message group3 3")
	bob.expect("Message ID: 3\nGroup: group3\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: m3\n\nbody")
	bob.send("message group3 4")
	bob.expect("Message ID: 4\nGroup: group3\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: m4\n\nbody")

	alice.post("group3", "m5", "body")
	bob.expect("Message ID: 5\nGroup: group3\nFrom: alice\nTime: 2024-01-02 03:04:05\nSubject: m5")
	alice.send("groups")
	alice.expect(formatGroups(s.registry.Groups()))

	alice.exit()
	bob.exit()
	s.Shutdown(time.Second)
}

func TestSession_endMarkerInClientText(test *testing.T) {
	s := newTestServer(test)

	eve := connectClient(test, s, "eve")
	eve.expect(promptUsername)
	eve.send("eve<END>")
	eve.expect(replyBadUsername)
	eve.send("eve")
	eve.expect(formatWelcome("eve"))
	eve.send("join no<END>where")
	eve.expect(formatGroupNotFound("nowhere"))

	bob := login(test, s, "bob")
	eve.send("join")
	eve.expect(formatJoined("public"))
	bob.send("join")
	bob.expect(formatJoined("public"))
	eve.expect(formatJoinNotice("bob", "public"))

	eve.post("public", "hi<END>You have joined group9!", "body<END>Goodbye, bob!")
	bob.expect("Message ID: 0\nGroup: public\nFrom: eve\nTime: 2024-01-02 03:04:05\nSubject: hiYou have joined group9!")
	bob.send("message 0")
	bob.expect("Message ID: 0\nGroup: public\nFrom: eve\nTime: 2024-01-02 03:04:05\nSubject: hiYou have joined group9!\n\nbodyGoodbye, bob!")
	bob.send("users")
	bob.expect("bob\neve")

	eve.exit()
	bob.expect(formatLeaveNotice("eve", "public"))
	bob.exit()
	s.Shutdown(time.Second)
}

// blockingArchiver - holds every archive call until its context is done.
type blockingArchiver struct {
	started chan struct{}
	results chan error
}

func (a *blockingArchiver) Archive(ctx context.Context, e archive.Entry) error {
	a.started <- struct{}{}
	<-ctx.Done()
	a.results <- ctx.Err()
	return ctx.Err()
}

func TestServer_Shutdown_cancelsArchive(test *testing.T) {
	archiver := &blockingArchiver{started: make(chan struct{}, 2), results: make(chan error, 2)}
	s := newTestServer(test, WithArchive(archiver), WithArchiveTimeout(time.Minute))
	alice := login(test, s, "alice")
	alice.send("join")
	alice.expect(formatJoined("public"))
	alice.post("public", "subject", "body")
	select {
	case <-archiver.started:
	case <-time.After(2 * time.Second):
		test.Fatal("Archive job was not started")
	}
	alice.exit()

	if elapsed := s.Shutdown(100 * time.Millisecond); elapsed > time.Second {
		test.Error("Shutdown took too long:", elapsed)
	}
	select {
	case err := <-archiver.results:
		if !errors.Is(err, context.Canceled) {
			test.Error("Expected cancelled archive job, got:", err)
		}
	case <-time.After(2 * time.Second):
		test.Fatal("Archive job was not cancelled by Shutdown")
	}

	g := s.registry.Default()
	s.archivePost(g, Message{Index: 1, Author: "alice", PostedAt: testTime})
	select {
	case <-archiver.started:
		test.Error("Nothing must be archived after shutdown")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionState_String(test *testing.T) {
	cases := []struct {
		state    sessionState
		expected string
	}{
		{stateHandshake, "handshake"},
		{stateActive, "active"},
		{stateTerminated, "terminated"},
		{sessionState(42), "unknown"},
	}
	for _, c := range cases {
		if actual := c.state.String(); actual != c.expected {
			test.Errorf("Expected %q, got %q", c.expected, actual)
		}
	}
}
