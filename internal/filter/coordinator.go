package filter

import (
	"sync"

	"github.com/CivicMesh/app/internal/post"
	"github.com/CivicMesh/app/internal/vocab"
)

// Coordinator keeps independent category/subcategory selections per
// presentation surface ("list", "map", ...). Empty selection means no
// filtering at all.
type Coordinator struct {
	mu     sync.Mutex
	scopes map[string]*selection
}

type selection struct {
	categories    map[vocab.Category]struct{}
	subcategories map[vocab.Category]map[string]struct{}
}

// Selection is the read-back shape the view layer renders filter chips from.
type Selection struct {
	Categories    []vocab.Category            `json:"categories"`
	Subcategories map[vocab.Category][]string `json:"subcategories"`
}

func NewCoordinator() *Coordinator {
	return &Coordinator{scopes: make(map[string]*selection)}
}

func (c *Coordinator) scope(name string) *selection {
	s, ok := c.scopes[name]
	if !ok {
		s = &selection{
			categories:    make(map[vocab.Category]struct{}),
			subcategories: make(map[vocab.Category]map[string]struct{}),
		}
		c.scopes[name] = s
	}
	return s
}

// ToggleCategory flips a category in the scope. Deselecting a category also
// drops its subcategory selections.
func (c *Coordinator) ToggleCategory(scopeName string, cat vocab.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.scope(scopeName)
	if _, ok := s.categories[cat]; ok {
		delete(s.categories, cat)
		delete(s.subcategories, cat)
		return
	}
	s.categories[cat] = struct{}{}
}

// ToggleSubcategory flips a subcategory. Selecting one implicitly selects
// its parent category.
func (c *Coordinator) ToggleSubcategory(scopeName string, cat vocab.Category, sub string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.scope(scopeName)
	subs, ok := s.subcategories[cat]
	if ok {
		if _, selected := subs[sub]; selected {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(s.subcategories, cat)
			}
			return
		}
	} else {
		subs = make(map[string]struct{})
		s.subcategories[cat] = subs
	}
	subs[sub] = struct{}{}
	s.categories[cat] = struct{}{}
}

// Clear resets one scope; other scopes are untouched.
func (c *Coordinator) Clear(scopeName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scopes, scopeName)
}

// Selection returns the current selection of a scope in vocabulary order.
func (c *Coordinator) Selection(scopeName string) Selection {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Selection{
		Categories:    []vocab.Category{},
		Subcategories: make(map[vocab.Category][]string),
	}
	s, ok := c.scopes[scopeName]
	if !ok {
		return out
	}
	for _, cat := range vocab.Categories() {
		if _, selected := s.categories[cat]; selected {
			out.Categories = append(out.Categories, cat)
		}
		subs, ok := s.subcategories[cat]
		if !ok {
			continue
		}
		ids := make([]string, 0, len(subs))
		for _, sc := range vocab.Subcategories(cat) {
			if _, selected := subs[sc.ID]; selected {
				ids = append(ids, sc.ID)
			}
		}
		// Raw pass-through subcategories sort after the known vocabulary.
		for id := range subs {
			if !contains(ids, id) {
				ids = append(ids, id)
			}
		}
		out.Subcategories[cat] = ids
	}
	return out
}

// Visible reports whether a post passes the scope's filters. With no
// selection everything passes. Otherwise the post's category must be
// selected, and as soon as any subcategory filter exists anywhere in the
// scope the post's own subcategory must be in the flattened selection; a
// post without a subcategory fails that test.
func (c *Coordinator) Visible(scopeName string, p post.Post) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.scopes[scopeName]
	if !ok {
		return true
	}
	if len(s.categories) == 0 && len(s.subcategories) == 0 {
		return true
	}
	if _, selected := s.categories[p.Category]; !selected {
		return false
	}
	if !s.hasSubFilters() {
		return true
	}
	if p.Subcategory == "" {
		return false
	}
	for _, subs := range s.subcategories {
		if _, selected := subs[p.Subcategory]; selected {
			return true
		}
	}
	return false
}

// Apply filters a post slice for a scope, preserving order.
func (c *Coordinator) Apply(scopeName string, posts []post.Post) []post.Post {
	out := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if c.Visible(scopeName, p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *selection) hasSubFilters() bool {
	for _, subs := range s.subcategories {
		if len(subs) > 0 {
			return true
		}
	}
	return false
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
