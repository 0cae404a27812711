package post

import (
	"math"
	"strconv"
	"time"

	"github.com/CivicMesh/app/internal/media"
	"github.com/CivicMesh/app/internal/vocab"
)

// Normalizer maps between the upstream wire shape and the canonical Post.
// The upstream uses snake_case keys, capitalized category labels, and media
// values that may be bare numeric ids.
type Normalizer struct {
	media *media.Resolver
}

func NewNormalizer(m *media.Resolver) *Normalizer {
	return &Normalizer{media: m}
}

// FromWire builds a canonical Post from a raw upstream object. It is
// defensive: missing or partial input yields a minimal well-formed Post with
// the default category rather than an error.
func (n *Normalizer) FromWire(raw map[string]any) Post {
	var p Post

	p.ID = stringField(raw, "id", "post_id", "postId", "_id")
	p.Title = stringField(raw, "title")
	p.Category = vocab.MatchCategory(stringField(raw, "category"))
	p.Subcategory = vocab.MatchSubcategory(p.Category, stringField(raw, "sub_category", "subcategory", "subCategory"))
	p.Description = stringField(raw, "description")
	p.Lat = floatField(raw, "latitude", "lat")
	p.Lng = floatField(raw, "longitude", "lng", "lon")
	p.UserID = stringField(raw, "user_id", "userId", "created_by")
	p.PhotoURL = n.media.DisplayRef(stringField(raw, "photo", "photo_url", "photo_id"))
	p.VideoURL = n.media.DisplayRef(stringField(raw, "video", "video_url", "video_id"))

	created := timeField(raw, "created_at", "createdAt", "timestamp")
	if created.IsZero() {
		created = time.Now().UTC()
	}
	p.CreatedAt = created
	updated := timeField(raw, "updated_at", "updatedAt")
	if updated.IsZero() {
		updated = created
	}
	p.UpdatedAt = updated

	// Accepted from either a wire array of numeric ids or an already
	// client-shaped string array. Duplicates are not removed here; the set
	// property is enforced at the mutation entry points.
	p.OnMyWayBy = []string{}
	if v, ok := firstKey(raw, "on_my_way", "on_my_way_by", "onMyWayBy"); ok {
		if arr, ok := v.([]any); ok {
			for _, e := range arr {
				if s := asString(e); s != "" {
					p.OnMyWayBy = append(p.OnMyWayBy, s)
				}
			}
		}
	}

	p.Resolution = n.resolutionFromWire(raw)
	p.Active = boolField(raw, true, "is_active", "active")
	if p.Resolution != nil {
		p.Active = false
	}
	return p
}

func (n *Normalizer) resolutionFromWire(raw map[string]any) *Resolution {
	var r Resolution
	if nested, ok := raw["resolution"].(map[string]any); ok {
		r = Resolution{
			ResolvedBy: stringField(nested, "resolved_by", "resolver_id", "user_id"),
			Code:       stringField(nested, "resolution_code", "code"),
			PhotoURL:   n.media.DisplayRef(stringField(nested, "resolution_photo", "photo")),
			VideoURL:   n.media.DisplayRef(stringField(nested, "resolution_video", "video")),
			ResolvedAt: timeField(nested, "resolved_at"),
		}
	} else {
		// Flat spelling: only the resolution_* keys count at the top level,
		// since photo/video belong to the post itself there.
		r = Resolution{
			ResolvedBy: stringField(raw, "resolved_by"),
			Code:       stringField(raw, "resolution_code"),
			PhotoURL:   n.media.DisplayRef(stringField(raw, "resolution_photo")),
			VideoURL:   n.media.DisplayRef(stringField(raw, "resolution_video")),
			ResolvedAt: timeField(raw, "resolved_at"),
		}
	}
	if r.ResolvedBy == "" && r.Code == "" && r.PhotoURL == "" {
		return nil
	}
	return &r
}

// CreateWire produces the upstream payload for a create operation.
func (n *Normalizer) CreateWire(p CreateParams) map[string]any {
	cat := vocab.MatchCategory(p.Category)
	w := map[string]any{
		"title":       p.Title,
		"category":    vocab.Label(cat),
		"description": p.Description,
		"latitude":    p.Lat,
		"longitude":   p.Lng,
		"user_id":     numericOr(p.UserID),
		"photo":       p.PhotoURI,
		"on_my_way":   []any{},
		"is_active":   true,
	}
	if p.Subcategory != "" {
		w["sub_category"] = vocab.SubcategoryLabel(cat, vocab.MatchSubcategory(cat, p.Subcategory))
	}
	if p.VideoURI != "" {
		w["video"] = p.VideoURI
	}
	return w
}

// PostWire produces the full upstream representation of a Post, used as the
// base payload for resolve PUTs.
func (n *Normalizer) PostWire(p Post) map[string]any {
	w := map[string]any{
		"id":          p.ID,
		"title":       p.Title,
		"category":    vocab.Label(p.Category),
		"description": p.Description,
		"latitude":    p.Lat,
		"longitude":   p.Lng,
		"user_id":     numericOr(p.UserID),
		"photo":       p.PhotoURL,
		"on_my_way":   p.OnMyWayBy,
		"is_active":   p.Active,
		"created_at":  p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.Subcategory != "" {
		w["sub_category"] = vocab.SubcategoryLabel(p.Category, p.Subcategory)
	}
	if p.VideoURL != "" {
		w["video"] = p.VideoURL
	}
	return w
}

// OnMyWayWire produces the payload for a mark-on-my-way call.
func (n *Normalizer) OnMyWayWire(userID string) map[string]any {
	return map[string]any{"user_id": numericOr(userID)}
}

// ResolveWire merges a post snapshot with resolution fields. photoRef and
// videoRef are the already-uploaded remote references.
func (n *Normalizer) ResolveWire(snapshot Post, p ResolveParams, photoRef, videoRef string, at time.Time) map[string]any {
	w := n.PostWire(snapshot)
	w["is_active"] = false
	w["resolved_by"] = numericOr(p.UserID)
	w["resolution_code"] = p.Code
	w["resolution_photo"] = photoRef
	if videoRef != "" {
		w["resolution_video"] = videoRef
	}
	w["resolved_at"] = at.UTC().Format(time.RFC3339)
	return w
}

func firstKey(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(raw map[string]any, keys ...string) string {
	v, ok := firstKey(raw, keys...)
	if !ok {
		return ""
	}
	return asString(v)
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func floatField(raw map[string]any, keys ...string) float64 {
	v, ok := firstKey(raw, keys...)
	if !ok {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		f, _ = strconv.ParseFloat(t, 64)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func boolField(raw map[string]any, fallback bool, keys ...string) bool {
	v, ok := firstKey(raw, keys...)
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func timeField(raw map[string]any, keys ...string) time.Time {
	v, ok := firstKey(raw, keys...)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC()
			}
		}
	case float64:
		if t <= 0 {
			return time.Time{}
		}
		// Millisecond epochs show up in some upstream exports.
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC()
		}
		return time.Unix(int64(t), 0).UTC()
	}
	return time.Time{}
}

// numericOr coerces a numeric-looking identifier to a number, which is what
// the upstream expects for user ids, and keeps the original string otherwise.
func numericOr(id string) any {
	if n, err := strconv.Atoi(id); err == nil && id != "" {
		return n
	}
	return id
}
