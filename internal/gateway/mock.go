package gateway

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/CivicMesh/app/internal/config"
	"github.com/CivicMesh/app/internal/media"
	"github.com/CivicMesh/app/internal/post"
	"github.com/CivicMesh/app/internal/vocab"

	"github.com/google/uuid"
)

//go:embed fixtures/posts.json fixtures/users.json
var fixtureFS embed.FS

// User is an entry in the mock user directory fixture.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Mock serves the gateway contract from fixture data held in memory. State
// survives only for the process lifetime. A fixed latency keeps the timing
// behavior of the real backend visible to the view layer.
type Mock struct {
	mu      sync.Mutex
	posts   []post.Post
	users   []User
	latency time.Duration
}

func NewMock(cfg config.Config, norm *post.Normalizer) (*Mock, error) {
	m := &Mock{
		latency: time.Duration(cfg.MockLatencyMs) * time.Millisecond,
	}

	rawPosts, err := fixture(cfg.MockFixtureDir, "posts.json")
	if err != nil {
		return nil, fmt.Errorf("load post fixtures: %w", err)
	}
	var wirePosts []map[string]any
	if err := json.Unmarshal(rawPosts, &wirePosts); err != nil {
		return nil, fmt.Errorf("parse post fixtures: %w", err)
	}
	for _, w := range wirePosts {
		m.posts = append(m.posts, norm.FromWire(w))
	}

	rawUsers, err := fixture(cfg.MockFixtureDir, "users.json")
	if err != nil {
		return nil, fmt.Errorf("load user fixtures: %w", err)
	}
	if err := json.Unmarshal(rawUsers, &m.users); err != nil {
		return nil, fmt.Errorf("parse user fixtures: %w", err)
	}
	return m, nil
}

func fixture(dir, name string) ([]byte, error) {
	if dir != "" {
		return os.ReadFile(filepath.Join(dir, name))
	}
	return fixtureFS.ReadFile("fixtures/" + name)
}

func (m *Mock) delay(ctx context.Context) error {
	if m.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.latency):
		return nil
	case <-ctx.Done():
		return newNetwork("request cancelled", ctx.Err())
	}
}

func (m *Mock) ListPosts(ctx context.Context) ([]post.Post, error) {
	if err := m.delay(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]post.Post, 0, len(m.posts))
	for _, p := range m.posts {
		if p.Active {
			out = append(out, p)
		}
	}
	post.SortNewestFirst(out)
	return out, nil
}

func (m *Mock) GetPost(ctx context.Context, id string) (post.Post, error) {
	if err := m.delay(ctx); err != nil {
		return post.Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return post.Post{}, newNotFound("post not found: " + id)
	}
	return m.posts[i], nil
}

func (m *Mock) CreatePost(ctx context.Context, params post.CreateParams) (post.Post, error) {
	if err := validateCreate(params); err != nil {
		return post.Post{}, err
	}
	if err := m.delay(ctx); err != nil {
		return post.Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	cat := vocab.MatchCategory(params.Category)
	p := post.Post{
		ID:          uuid.NewString(),
		Title:       params.Title,
		Category:    cat,
		Subcategory: vocab.MatchSubcategory(cat, params.Subcategory),
		Description: params.Description,
		Lat:         params.Lat,
		Lng:         params.Lng,
		UserID:      params.UserID,
		PhotoURL:    params.PhotoURI,
		VideoURL:    params.VideoURI,
		OnMyWayBy:   []string{},
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if media.IsLocalRef(p.PhotoURL) {
		p.PhotoURL = m.storedRef(params.UserID, p.ID, p.PhotoURL)
	}
	m.posts = append(m.posts, p)
	return p, nil
}

func (m *Mock) MarkOnMyWay(ctx context.Context, postID, userID string) (post.Post, error) {
	if userID == "" {
		return post.Post{}, newValidation("user_id is required")
	}
	if err := m.delay(ctx); err != nil {
		return post.Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.knownUser(userID) {
		return post.Post{}, newValidation("unknown user: " + userID)
	}
	i := m.index(postID)
	if i < 0 {
		return post.Post{}, newNotFound("post not found: " + postID)
	}
	if m.posts[i].AddOnMyWay(userID) {
		m.posts[i].UpdatedAt = time.Now().UTC()
	}
	return m.posts[i], nil
}

func (m *Mock) ResolvePost(ctx context.Context, _ post.Post, params post.ResolveParams) (post.Post, error) {
	if err := validateResolve(params); err != nil {
		return post.Post{}, err
	}
	if err := m.delay(ctx); err != nil {
		return post.Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(params.PostID)
	if i < 0 {
		return post.Post{}, newNotFound("post not found: " + params.PostID)
	}

	now := time.Now().UTC()
	photo := params.PhotoURI
	if media.IsLocalRef(photo) {
		photo = m.storedRef(params.UserID, params.PostID, photo)
	}
	video := params.VideoURI
	if media.IsLocalRef(video) {
		video = m.storedRef(params.UserID, params.PostID, video)
	}
	m.posts[i].Resolution = &post.Resolution{
		ResolvedBy: params.UserID,
		Code:       params.Code,
		PhotoURL:   photo,
		VideoURL:   video,
		ResolvedAt: now,
	}
	m.posts[i].Active = false
	m.posts[i].UpdatedAt = now
	return m.posts[i], nil
}

func (m *Mock) UploadMedia(ctx context.Context, ownerID, postID, localURI string) (string, error) {
	if err := m.delay(ctx); err != nil {
		return "", err
	}
	return m.storedRef(ownerID, postID, localURI), nil
}

// storedRef fabricates the remote reference a real upload would produce.
func (m *Mock) storedRef(ownerID, postID, localURI string) string {
	name := localURI
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return fmt.Sprintf("https://storage.civicmesh.example/%s/%s/%s", ownerID, postID, name)
}

func (m *Mock) index(id string) int {
	for i := range m.posts {
		if m.posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Mock) knownUser(id string) bool {
	if len(m.users) == 0 {
		return true
	}
	for _, u := range m.users {
		if u.ID == id {
			return true
		}
	}
	return false
}
