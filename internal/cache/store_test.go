package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/CivicMesh/app/internal/gateway"
	"github.com/CivicMesh/app/internal/post"
	"github.com/CivicMesh/app/internal/vocab"
)

// fakeGateway serves canned list responses, optionally blocking until
// released so refresh races can be staged deterministically.
type fakeGateway struct {
	mu        sync.Mutex
	responses [][]post.Post
	errs      []error
	release   chan struct{}
	calls     int
}

func (f *fakeGateway) ListPosts(_ context.Context) ([]post.Post, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, nil
}

func (f *fakeGateway) GetPost(context.Context, string) (post.Post, error) {
	return post.Post{}, nil
}
func (f *fakeGateway) CreatePost(context.Context, post.CreateParams) (post.Post, error) {
	return post.Post{}, nil
}
func (f *fakeGateway) MarkOnMyWay(context.Context, string, string) (post.Post, error) {
	return post.Post{}, nil
}
func (f *fakeGateway) ResolvePost(context.Context, post.Post, post.ResolveParams) (post.Post, error) {
	return post.Post{}, nil
}
func (f *fakeGateway) UploadMedia(context.Context, string, string, string) (string, error) {
	return "", nil
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(h int) time.Time {
	return time.Date(2024, 3, 1, h, 0, 0, 0, time.UTC)
}

func TestRefreshSwapsCollection(t *testing.T) {
	gw := &fakeGateway{responses: [][]post.Post{{{ID: "a", CreatedAt: at(1)}}}}
	s := NewStore(gw, testLogger())

	if err := s.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := s.Posts(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected collection: %+v", got)
	}
	if s.Loading() {
		t.Fatalf("loading flag must drop after refresh")
	}
}

func TestSilentRefreshNeverRaisesLoading(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{})}
	s := NewStore(gw, testLogger())

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background(), true) }()

	// The fetch is in flight; a silent refresh must not show a spinner.
	time.Sleep(10 * time.Millisecond)
	if s.Loading() {
		t.Fatalf("silent refresh raised the loading flag")
	}
	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

func TestConcurrentRefreshLastCompletionWins(t *testing.T) {
	first := []post.Post{{ID: "from-first", CreatedAt: at(1)}}
	second := []post.Post{{ID: "from-second", CreatedAt: at(2)}}

	releaseFirst := make(chan struct{})
	releaseSecond := make(chan struct{})
	gw := &fakeGateway{responses: [][]post.Post{first, second}}

	s := NewStore(gw, testLogger())

	started := make(chan struct{}, 2)
	gw.release = releaseFirst
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		started <- struct{}{}
		_ = s.Refresh(context.Background(), true)
	}()
	<-started
	time.Sleep(10 * time.Millisecond) // first call is parked on releaseFirst

	gw.mu.Lock()
	gw.release = releaseSecond
	gw.mu.Unlock()
	go func() {
		defer wg.Done()
		started <- struct{}{}
		_ = s.Refresh(context.Background(), true)
	}()
	<-started

	// Second response lands first, then the first call completes last.
	close(releaseSecond)
	time.Sleep(10 * time.Millisecond)
	close(releaseFirst)
	wg.Wait()

	got := s.Posts()
	if len(got) != 1 || got[0].ID != "from-first" {
		t.Fatalf("last-completing refresh must win, got %+v", got)
	}
}

func TestAddLocalReplacesAndSorts(t *testing.T) {
	s := NewStore(&fakeGateway{}, testLogger())
	s.AddLocal(post.Post{ID: "a", CreatedAt: at(1)})
	s.AddLocal(post.Post{ID: "b", CreatedAt: at(3)})
	s.AddLocal(post.Post{ID: "c", CreatedAt: at(2)})

	got := s.Posts()
	if len(got) != 3 || got[0].ID != "b" || got[1].ID != "c" || got[2].ID != "a" {
		t.Fatalf("expected sorted collection: %+v", got)
	}

	// Same id again: exactly one entry, re-sorted.
	s.AddLocal(post.Post{ID: "a", Title: "updated", CreatedAt: at(4)})
	got = s.Posts()
	if len(got) != 3 {
		t.Fatalf("duplicate id must replace, got %d entries", len(got))
	}
	if got[0].ID != "a" || got[0].Title != "updated" {
		t.Fatalf("replacement must re-sort: %+v", got)
	}
}

func TestMergeLocalTouchesOnlyPatchedFields(t *testing.T) {
	s := NewStore(&fakeGateway{}, testLogger())
	s.AddLocal(post.Post{
		ID: "a", Title: "Need food", Category: vocab.CategoryHelp,
		Description: "Family of four", Lat: 12.34, Lng: 56.78,
		PhotoURL: "https://cdn.example/a.jpg", Active: true,
		OnMyWayBy: []string{}, CreatedAt: at(1), UpdatedAt: at(1),
	})

	s.MergeLocal("a", Patch{OnMyWayBy: []string{"u-2", "u-3"}})

	got, ok := s.Get("a")
	if !ok {
		t.Fatalf("post missing")
	}
	if len(got.OnMyWayBy) != 2 {
		t.Fatalf("patched field: %v", got.OnMyWayBy)
	}
	if got.Title != "Need food" || got.Description != "Family of four" ||
		got.PhotoURL != "https://cdn.example/a.jpg" || !got.Active ||
		got.Lat != 12.34 || !got.UpdatedAt.Equal(at(1)) {
		t.Fatalf("unpatched fields must stay put: %+v", got)
	}
}

func TestMergeLocalResolutionDeactivates(t *testing.T) {
	s := NewStore(&fakeGateway{}, testLogger())
	s.AddLocal(post.Post{ID: "a", Active: true, CreatedAt: at(1)})

	s.MergeLocal("a", Patch{Resolution: &post.Resolution{ResolvedBy: "u-9", Code: "completed"}})

	got, _ := s.Get("a")
	if got.Active || got.Resolution == nil {
		t.Fatalf("resolution merge must deactivate: %+v", got)
	}

	// Resolved posts are not removed.
	if len(s.Posts()) != 1 {
		t.Fatalf("nothing is ever removed from the cache")
	}
}

func TestMergeLocalUpdatedAtResorts(t *testing.T) {
	s := NewStore(&fakeGateway{}, testLogger())
	s.AddLocal(post.Post{ID: "a", CreatedAt: at(1), UpdatedAt: at(1)})
	s.AddLocal(post.Post{ID: "b", CreatedAt: at(2), UpdatedAt: at(2)})

	bumped := at(5)
	s.MergeLocal("a", Patch{UpdatedAt: &bumped})

	got := s.Posts()
	if got[0].ID != "a" {
		t.Fatalf("touched post must move to the top: %+v", got)
	}
}

func TestMergeLocalUnknownIDIsNoOp(t *testing.T) {
	s := NewStore(&fakeGateway{}, testLogger())
	s.AddLocal(post.Post{ID: "a", CreatedAt: at(1)})
	s.MergeLocal("nope", Patch{Title: strPtr("x")})
	if got, _ := s.Get("a"); got.Title != "" {
		t.Fatalf("unrelated post touched: %+v", got)
	}
}

func TestRefreshErrorKeepsCollection(t *testing.T) {
	gw := &fakeGateway{
		responses: [][]post.Post{{{ID: "a", CreatedAt: at(1)}}, nil},
		errs:      []error{nil, context.DeadlineExceeded},
	}
	s := NewStore(gw, testLogger())
	if err := s.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := s.Refresh(context.Background(), false); err == nil {
		t.Fatalf("expected error")
	}
	if got := s.Posts(); len(got) != 1 {
		t.Fatalf("failed refresh must not clobber the cache: %+v", got)
	}
}

func strPtr(s string) *string { return &s }
