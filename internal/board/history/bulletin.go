package history

import (
	"errors"
	"time"
)

// ErrNoEntry - returns when requested index is out of the bulletin bounds.
var ErrNoEntry = errors.New("history.Bulletin: no entry at index")

// Entry - single immutable bulletin record.
type Entry struct {
	Author   string
	Subject  string
	Body     string
	PostedAt time.Time
}

// Bulletin - append-only ordered sequence of entries addressed by 0-based index.
// Bulletin is not safe for concurrent use, the owner must guard it.
type Bulletin struct {
	data []Entry
}

// Len - returns number of entries.
func (b *Bulletin) Len() int {
	return len(b.data)
}

// Push - appends entry and returns its index, which is always Len()-1 after the call.
func (b *Bulletin) Push(e Entry) int {
	b.data = append(b.data, e)
	return len(b.data) - 1
}

// At - returns entry by index.
func (b *Bulletin) At(i int) (Entry, error) {
	if i < 0 || i >= len(b.data) {
		return Entry{}, ErrNoEntry
	}
	return b.data[i], nil
}
