package board

import (
	"context"

	"github.com/wtask/board/internal/board/archive"
)

// broadcast - delivers note to every member except actor.
// Members must be the snapshot taken with the change the note is about.
// Must not be called under any group lock.
func (s *Server) broadcast(actor string, members []string, note string) {
	for _, user := range members {
		if user == actor {
			continue
		}
		r, ok := s.clients.get(user)
		if !ok {
			// the recipient is leaving, its own cleanup is in progress
			continue
		}
		if !r.deliver(note) {
			s.logger.Warn("notification dropped", "user", user)
		}
	}
}

// archivePost - passes posted message to archiver in background.
// Nothing is archived after the server has finished its shutdown.
func (s *Server) archivePost(g *Group, m Message) {
	if s.archive == nil || s.jobs.Context().Err() != nil {
		return
	}
	e := archive.Entry{
		Group:    g.Name(),
		Index:    m.Index,
		Author:   m.Author,
		Subject:  m.Subject,
		Body:     m.Body,
		PostedAt: m.PostedAt,
	}
	s.jobs.Go(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, s.archiveTimeout)
		defer cancel()
		if err := s.archive.Archive(ctx, e); err != nil {
			s.logger.Error("archive failed", "group", e.Group, "index", e.Index, "err", err)
		}
	})
}
