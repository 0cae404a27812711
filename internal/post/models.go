package post

import (
	"sort"
	"time"

	"github.com/CivicMesh/app/internal/vocab"
)

// Post is the canonical client-side representation of an alert entry.
type Post struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Category    vocab.Category `json:"category"`
	Subcategory string         `json:"subcategory,omitempty"`
	Description string         `json:"description"`
	Lat         float64        `json:"lat"`
	Lng         float64        `json:"lng"`
	UserID      string         `json:"user_id"`
	PhotoURL    string         `json:"photo_url"`
	VideoURL    string         `json:"video_url,omitempty"`
	OnMyWayBy   []string       `json:"on_my_way_by"`
	Resolution  *Resolution    `json:"resolution,omitempty"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Resolution struct {
	ResolvedBy string    `json:"resolved_by"`
	Code       string    `json:"code"`
	PhotoURL   string    `json:"photo_url"`
	VideoURL   string    `json:"video_url,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// CreateParams carries a user submission into the gateway.
type CreateParams struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	UserID      string  `json:"user_id"`
	PhotoURI    string  `json:"photo"`
	VideoURI    string  `json:"video,omitempty"`
}

// ResolveParams carries a resolve action into the gateway.
type ResolveParams struct {
	PostID   string `json:"post_id"`
	UserID   string `json:"user_id"`
	Code     string `json:"code"`
	PhotoURI string `json:"photo"`
	VideoURI string `json:"video,omitempty"`
}

// EffectiveTime is the timestamp posts sort by: update time when present,
// creation time otherwise.
func (p Post) EffectiveTime() time.Time {
	if !p.UpdatedAt.IsZero() {
		return p.UpdatedAt
	}
	return p.CreatedAt
}

// HasOnMyWay reports whether userID already signaled intent to help.
func (p Post) HasOnMyWay(userID string) bool {
	for _, id := range p.OnMyWayBy {
		if id == userID {
			return true
		}
	}
	return false
}

// AddOnMyWay appends userID to the on-my-way set. Adding an existing id is a
// no-op; the return value reports whether the set changed.
func (p *Post) AddOnMyWay(userID string) bool {
	if p.HasOnMyWay(userID) {
		return false
	}
	p.OnMyWayBy = append(p.OnMyWayBy, userID)
	return true
}

// SortNewestFirst orders posts by effective timestamp descending. The view
// layer and the cache rely on this order.
func SortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].EffectiveTime().After(posts[j].EffectiveTime())
	})
}
