package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CivicMesh/app/internal/gateway"
	"github.com/CivicMesh/app/internal/post"
)

// Store holds the current post collection for the view layer. All mutation
// goes through Refresh, AddLocal and MergeLocal; nothing is ever removed,
// resolved posts stay visible until the next full refresh reconciles with
// the upstream's active-only listing.
type Store struct {
	gw  gateway.Gateway
	log *slog.Logger

	mu      sync.RWMutex
	posts   []post.Post
	loading bool
}

// Patch is a partial post update. Nil fields leave the cached value alone.
type Patch struct {
	Title       *string
	Description *string
	PhotoURL    *string
	VideoURL    *string
	OnMyWayBy   []string
	Resolution  *post.Resolution
	Active      *bool
	UpdatedAt   *time.Time
}

func NewStore(gw gateway.Gateway, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{gw: gw, log: log}
}

// Refresh replaces the collection with a fresh fetch. A silent refresh never
// raises the loading flag, so focus-driven background syncs do not flicker a
// spinner; the swap happens only once the fetch completes, and when
// refreshes race the last one to complete wins.
func (s *Store) Refresh(ctx context.Context, silent bool) error {
	if !silent {
		s.setLoading(true)
		defer s.setLoading(false)
	}

	posts, err := s.gw.ListPosts(ctx)
	if err != nil {
		s.log.Warn("post refresh failed", "silent", silent, "err", err)
		return err
	}

	s.mu.Lock()
	s.posts = posts
	s.mu.Unlock()
	return nil
}

// AddLocal inserts or replaces a post, keeping the collection sorted, so a
// freshly created post shows up in order without waiting for a refresh.
func (s *Store) AddLocal(p post.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.posts {
		if s.posts[i].ID == p.ID {
			s.posts[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.posts = append(s.posts, p)
	}
	post.SortNewestFirst(s.posts)
}

// MergeLocal shallow-merges patch fields into the matching cached post. Used
// after mark-on-my-way and resolve so the UI updates from the mutation's own
// response. Unknown ids are ignored.
func (s *Store) MergeLocal(id string, patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.posts {
		if s.posts[i].ID != id {
			continue
		}
		p := &s.posts[i]
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.PhotoURL != nil {
			p.PhotoURL = *patch.PhotoURL
		}
		if patch.VideoURL != nil {
			p.VideoURL = *patch.VideoURL
		}
		if patch.OnMyWayBy != nil {
			p.OnMyWayBy = patch.OnMyWayBy
		}
		if patch.Active != nil {
			p.Active = *patch.Active
		}
		if patch.Resolution != nil {
			// A resolved post can never stay active.
			p.Resolution = patch.Resolution
			p.Active = false
		}
		if patch.UpdatedAt != nil {
			p.UpdatedAt = *patch.UpdatedAt
			post.SortNewestFirst(s.posts)
		}
		return
	}
}

// Posts returns a copy of the collection in newest-first order.
func (s *Store) Posts() []post.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]post.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Get returns the cached post with the given id.
func (s *Store) Get(id string) (post.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return post.Post{}, false
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
