package board

import (
	"sort"
	"sync"
)

// recipient - live outbound channel of a session.
type recipient interface {
	// deliver - tries to enqueue notification without blocking.
	deliver(note string) bool
}

// clientDirectory - maps username to its session outbox, used for broadcasting only.
type clientDirectory struct {
	mu   sync.RWMutex
	list map[string]recipient
}

func newClientDirectory() *clientDirectory {
	return &clientDirectory{
		list: make(map[string]recipient),
	}
}

func (d *clientDirectory) len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.list)
}

func (d *clientDirectory) get(user string) (r recipient, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok = d.list[user]
	return r, ok
}

// put - binds user to recipient, previous binding is replaced.
func (d *clientDirectory) put(user string, r recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.list[user] = r
}

// remove - unbinds user only if it is still bound to the given recipient,
// because the name may be claimed by another session right after it was released.
func (d *clientDirectory) remove(user string, r recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.list[user] == r {
		delete(d.list, user)
	}
}

// userSet - set of currently active usernames.
type userSet struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func newUserSet() *userSet {
	return &userSet{
		names: make(map[string]struct{}),
	}
}

// claim - atomically reserves name, returns false if it is taken.
func (u *userSet) claim(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.names[name]; ok {
		return false
	}
	u.names[name] = struct{}{}
	return true
}

func (u *userSet) release(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.names, name)
}

func (u *userSet) len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.names)
}

// list - returns sorted usernames.
func (u *userSet) list() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	names := make([]string, 0, len(u.names))
	for name := range u.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
