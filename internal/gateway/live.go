package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CivicMesh/app/internal/config"
	"github.com/CivicMesh/app/internal/media"
	"github.com/CivicMesh/app/internal/post"
)

// listWrapperKeys are probed in priority order when the upstream wraps the
// post collection in an envelope. Data-driven so new shapes are one entry.
var listWrapperKeys = []string{"posts", "data", "results", "items"}

// Live talks to the real upstream over HTTP. Every failure comes back as a
// tagged *Error; nothing panics or leaks transport errors past this type.
type Live struct {
	baseURL  string
	client   *http.Client
	norm     *post.Normalizer
	uploader *media.Uploader
	session  media.TokenSource
	log      *slog.Logger
}

func NewLive(cfg config.Config, norm *post.Normalizer, uploader *media.Uploader, session media.TokenSource, client *http.Client, log *slog.Logger) *Live {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.UploadTimeoutMs) * time.Millisecond}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Live{
		baseURL:  strings.TrimRight(cfg.UpstreamURL, "/"),
		client:   client,
		norm:     norm,
		uploader: uploader,
		session:  session,
		log:      log,
	}
}

func (l *Live) ListPosts(ctx context.Context) ([]post.Post, error) {
	decoded, err := l.do(ctx, http.MethodGet, "/posts", nil, "could not load posts")
	if err != nil {
		return nil, err
	}

	items := extractList(decoded)
	posts := make([]post.Post, 0, len(items))
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		posts = append(posts, l.norm.FromWire(raw))
	}
	post.SortNewestFirst(posts)
	return posts, nil
}

func (l *Live) GetPost(ctx context.Context, id string) (post.Post, error) {
	decoded, err := l.do(ctx, http.MethodGet, "/posts/"+id, nil, "could not load post")
	if err != nil {
		return post.Post{}, err
	}
	return l.norm.FromWire(objectOf(decoded)), nil
}

func (l *Live) CreatePost(ctx context.Context, params post.CreateParams) (post.Post, error) {
	if err := validateCreate(params); err != nil {
		return post.Post{}, err
	}

	decoded, err := l.do(ctx, http.MethodPost, "/posts", l.norm.CreateWire(params), "could not create post")
	if err != nil {
		return post.Post{}, err
	}
	p := l.norm.FromWire(objectOf(decoded))

	// The cache must never hold a local-only reference for a fresh post, so
	// local media is uploaded as a second step and spliced in. An upload
	// failure degrades to the local reference instead of failing the create.
	if media.IsLocalRef(params.PhotoURI) {
		p.PhotoURL = l.uploadOrKeep(ctx, params.UserID, p.ID, params.PhotoURI)
	}
	if media.IsLocalRef(params.VideoURI) {
		p.VideoURL = l.uploadOrKeep(ctx, params.UserID, p.ID, params.VideoURI)
	}
	return p, nil
}

func (l *Live) MarkOnMyWay(ctx context.Context, postID, userID string) (post.Post, error) {
	if userID == "" {
		return post.Post{}, newValidation("user_id is required")
	}
	decoded, err := l.do(ctx, http.MethodPost, "/posts/"+postID+"/onmyway", l.norm.OnMyWayWire(userID), "could not mark on my way")
	if err != nil {
		return post.Post{}, err
	}
	return l.norm.FromWire(objectOf(decoded)), nil
}

func (l *Live) ResolvePost(ctx context.Context, snapshot post.Post, params post.ResolveParams) (post.Post, error) {
	if err := validateResolve(params); err != nil {
		return post.Post{}, err
	}

	photoRef := params.PhotoURI
	if media.IsLocalRef(photoRef) {
		photoRef = l.uploadOrKeep(ctx, params.UserID, params.PostID, photoRef)
	}
	videoRef := params.VideoURI
	if media.IsLocalRef(videoRef) {
		videoRef = l.uploadOrKeep(ctx, params.UserID, params.PostID, videoRef)
	}

	now := time.Now().UTC()
	payload := l.norm.ResolveWire(snapshot, params, photoRef, videoRef, now)
	decoded, err := l.do(ctx, http.MethodPut, "/posts/"+params.PostID, payload, "could not resolve post")
	if err != nil {
		return post.Post{}, err
	}

	// The result is the union of the client snapshot and the server response,
	// with the resolution fields forced to what was just submitted. The UI
	// reflects the resolve immediately even when the upstream echo is thin.
	raw := objectOf(decoded)
	merged := unionPost(snapshot, raw, l.norm.FromWire(raw))
	merged.Resolution = &post.Resolution{
		ResolvedBy: params.UserID,
		Code:       params.Code,
		PhotoURL:   photoRef,
		VideoURL:   videoRef,
		ResolvedAt: now,
	}
	merged.Active = false
	merged.UpdatedAt = now
	return merged, nil
}

func (l *Live) UploadMedia(ctx context.Context, ownerID, postID, localURI string) (string, error) {
	ref, err := l.uploader.Upload(ctx, ownerID, postID, localURI)
	if err != nil {
		return "", newNetwork("media upload failed", err)
	}
	return ref, nil
}

func (l *Live) uploadOrKeep(ctx context.Context, ownerID, postID, localURI string) string {
	ref, err := l.uploader.Upload(ctx, ownerID, postID, localURI)
	if err != nil {
		l.log.Warn("media upload failed, keeping local reference",
			"post_id", postID, "err", err)
		return localURI
	}
	return ref
}

func (l *Live) do(ctx context.Context, method, path string, payload any, fallbackMsg string) (any, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, newNetwork(fallbackMsg, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, body)
	if err != nil {
		return nil, newNetwork(fallbackMsg, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.session != nil {
		token, err := l.session.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, newNetwork(fallbackMsg, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetwork(fallbackMsg, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(data)
		if msg == "" {
			msg = fallbackMsg
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, newNotFound(msg)
		}
		return nil, newServer(msg)
	}

	var decoded any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, newNetwork(fallbackMsg, err)
		}
	}
	return decoded, nil
}

// serverMessage pulls a human-readable message out of an upstream error body.
func serverMessage(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, k := range []string{"message", "error", "detail"} {
		if s, ok := body[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// extractList finds the post collection in a list response: either the body
// itself or the first wrapper key that actually holds an array.
func extractList(decoded any) []any {
	if arr, ok := decoded.([]any); ok {
		return arr
	}
	if m, ok := decoded.(map[string]any); ok {
		for _, k := range listWrapperKeys {
			if arr, ok := m[k].([]any); ok {
				return arr
			}
		}
	}
	return nil
}

// objectOf unwraps single-post envelopes.
func objectOf(decoded any) map[string]any {
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil
	}
	for _, k := range []string{"post", "data"} {
		if nested, ok := m[k].(map[string]any); ok {
			return nested
		}
	}
	return m
}

// unionPost overlays server fields onto the snapshot, preferring server
// values only where the response actually carried them.
func unionPost(snapshot post.Post, raw map[string]any, server post.Post) post.Post {
	merged := snapshot
	if server.ID != "" {
		merged.ID = server.ID
	}
	if server.Title != "" {
		merged.Title = server.Title
	}
	if server.Description != "" {
		merged.Description = server.Description
	}
	if _, ok := raw["category"]; ok {
		merged.Category = server.Category
		merged.Subcategory = server.Subcategory
	}
	if server.Lat != 0 || server.Lng != 0 {
		merged.Lat, merged.Lng = server.Lat, server.Lng
	}
	if server.UserID != "" {
		merged.UserID = server.UserID
	}
	if server.PhotoURL != "" {
		merged.PhotoURL = server.PhotoURL
	}
	if server.VideoURL != "" {
		merged.VideoURL = server.VideoURL
	}
	if len(server.OnMyWayBy) > 0 {
		merged.OnMyWayBy = server.OnMyWayBy
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = server.CreatedAt
	}
	return merged
}
