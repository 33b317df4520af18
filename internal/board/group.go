package board

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wtask/board/internal/board/history"
	"github.com/wtask/board/internal/board/text"
)

// notMember - cutoff value of a group the session has not joined.
const notMember = -1

// joinWindow - number of already posted messages available to newly joined member.
const joinWindow = 2

// Message - posted bulletin message.
type Message struct {
	Index    int
	Author   string
	Subject  string
	Body     string
	PostedAt time.Time
}

// Group - named bulletin with its membership.
// All state is guarded by single mutex, so membership changes are atomic
// with respect to posts and bulletin length observations.
type Group struct {
	name  string
	alias int

	mu       sync.Mutex
	bulletin history.Bulletin
	members  map[string]struct{}
}

func newGroup(name string, alias int) *Group {
	return &Group{
		name:    name,
		alias:   alias,
		members: map[string]struct{}{},
	}
}

// Name - returns group name.
func (g *Group) Name() string {
	return g.name
}

// Alias - returns numeric group alias.
func (g *Group) Alias() int {
	return g.alias
}

// snapshot - copies member list. Caller must hold g.mu.
func (g *Group) snapshot() []string {
	members := make([]string, 0, len(g.members))
	for user := range g.members {
		members = append(members, user)
	}
	sort.Strings(members)
	return members
}

// Join - adds user to the group.
// Returns read cutoff for the user and members snapshot taken before the user was added.
func (g *Group) Join(user string) (cutoff int, members []string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[user]; ok {
		return notMember, nil, ErrAlreadyMember
	}
	members = g.snapshot()
	g.members[user] = struct{}{}
	cutoff = g.bulletin.Len() - joinWindow
	if cutoff < 0 {
		cutoff = 0
	}
	return cutoff, members, nil
}

// Leave - removes user from the group and returns remaining members.
func (g *Group) Leave(user string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[user]; !ok {
		return nil, ErrNotMember
	}
	delete(g.members, user)
	return g.snapshot(), nil
}

// Post - appends new message written by the member.
// Returns the message with assigned index and the members snapshot at the moment of post.
func (g *Group) Post(author, subject, body string, at time.Time) (Message, []string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[author]; !ok {
		return Message{}, nil, ErrNotMember
	}
	e := history.Entry{Author: author, Subject: subject, Body: body, PostedAt: at}
	i := g.bulletin.Push(e)
	return toMessage(i, e), g.snapshot(), nil
}

// Read - returns message by index for reader with given cutoff.
// Checks are applied in order: membership (cutoff is not notMember), index against cutoff,
// index against bulletin length.
func (g *Group) Read(index, cutoff int) (Message, error) {
	if cutoff == notMember {
		return Message{}, ErrNotMember
	}
	if index < cutoff {
		return Message{}, ErrCannotAccess
	}
	g.mu.Lock()
	e, err := g.bulletin.At(index)
	g.mu.Unlock()
	if err != nil {
		return Message{}, ErrNoSuchMessage
	}
	return toMessage(index, e), nil
}

// Members - returns sorted copy of member list.
func (g *Group) Members() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

// summary - returns members and bulletin length observed at the same moment.
func (g *Group) summary() ([]string, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot(), g.bulletin.Len()
}

func toMessage(i int, e history.Entry) Message {
	return Message{
		Index:    i,
		Author:   e.Author,
		Subject:  e.Subject,
		Body:     e.Body,
		PostedAt: e.PostedAt,
	}
}

// Registry - fixed set of groups, addressable by name or numeric alias.
// Registry itself is immutable after creation.
type Registry struct {
	groups []*Group
	index  map[string]*Group
}

// NewRegistry - builds registry, the alias of every group is its position in names.
// The first group is the default one.
func NewRegistry(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return nil, errors.New("board.NewRegistry: at least one group is required")
	}
	r := &Registry{
		groups: make([]*Group, 0, len(names)),
		index:  make(map[string]*Group, 2*len(names)),
	}
	for i, name := range names {
		if !text.IsWord(name, EndOfMessage) {
			return nil, fmt.Errorf("board.NewRegistry: invalid group name %q", name)
		}
		if _, err := strconv.Atoi(name); err == nil {
			return nil, fmt.Errorf("board.NewRegistry: group name %q clashes with numeric aliases", name)
		}
		if _, ok := r.index[name]; ok {
			return nil, fmt.Errorf("board.NewRegistry: duplicate group %q", name)
		}
		g := newGroup(name, i)
		r.groups = append(r.groups, g)
		r.index[name] = g
		r.index[strconv.Itoa(i)] = g
	}
	return r, nil
}

// Resolve - finds group by name or by numeric alias.
func (r *Registry) Resolve(id string) (*Group, error) {
	if g, ok := r.index[id]; ok {
		return g, nil
	}
	return nil, &GroupNotFoundError{ID: id}
}

// Default - returns well-known default group.
func (r *Registry) Default() *Group {
	return r.groups[0]
}

// Groups - returns all groups ordered by alias.
func (r *Registry) Groups() []*Group {
	groups := make([]*Group, len(r.groups))
	copy(groups, r.groups)
	return groups
}
