package gateway

import (
	"context"
	"math"

	"github.com/CivicMesh/app/internal/post"
)

// Gateway is the single entry point for backend operations. Two
// implementations exist: Mock (in-process fixture data) and Live (HTTP
// upstream). Service switches between them per call.
type Gateway interface {
	ListPosts(ctx context.Context) ([]post.Post, error)
	GetPost(ctx context.Context, id string) (post.Post, error)
	CreatePost(ctx context.Context, params post.CreateParams) (post.Post, error)
	MarkOnMyWay(ctx context.Context, postID, userID string) (post.Post, error)
	ResolvePost(ctx context.Context, snapshot post.Post, params post.ResolveParams) (post.Post, error)
	UploadMedia(ctx context.Context, ownerID, postID, localURI string) (string, error)
}

// Service routes each call to the mock or live backend. The mode flag is
// read once per call, so flipping it at runtime takes effect immediately.
type Service struct {
	useMock func() bool
	mock    *Mock
	live    *Live
}

func New(useMock func() bool, mock *Mock, live *Live) *Service {
	return &Service{useMock: useMock, mock: mock, live: live}
}

func (s *Service) pick() Gateway {
	if s.useMock() {
		return s.mock
	}
	return s.live
}

func (s *Service) ListPosts(ctx context.Context) ([]post.Post, error) {
	return s.pick().ListPosts(ctx)
}

func (s *Service) GetPost(ctx context.Context, id string) (post.Post, error) {
	return s.pick().GetPost(ctx, id)
}

func (s *Service) CreatePost(ctx context.Context, params post.CreateParams) (post.Post, error) {
	return s.pick().CreatePost(ctx, params)
}

func (s *Service) MarkOnMyWay(ctx context.Context, postID, userID string) (post.Post, error) {
	return s.pick().MarkOnMyWay(ctx, postID, userID)
}

func (s *Service) ResolvePost(ctx context.Context, snapshot post.Post, params post.ResolveParams) (post.Post, error) {
	return s.pick().ResolvePost(ctx, snapshot, params)
}

func (s *Service) UploadMedia(ctx context.Context, ownerID, postID, localURI string) (string, error) {
	return s.pick().UploadMedia(ctx, ownerID, postID, localURI)
}

// validateCreate runs before any network or fixture access, in both modes.
func validateCreate(params post.CreateParams) error {
	switch {
	case params.Title == "":
		return newValidation("title is required")
	case params.Category == "":
		return newValidation("category is required")
	case params.UserID == "":
		return newValidation("user_id is required")
	case params.PhotoURI == "":
		return newValidation("photo is required")
	case !finite(params.Lat) || !finite(params.Lng):
		return newValidation("latitude and longitude must be finite")
	}
	return nil
}

// validateResolve must reject a missing resolution photo before any upload
// is attempted.
func validateResolve(params post.ResolveParams) error {
	switch {
	case params.PostID == "":
		return newValidation("post_id is required")
	case params.UserID == "":
		return newValidation("user_id is required")
	case params.PhotoURI == "":
		return newValidation("resolution photo is required")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
