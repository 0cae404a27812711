package vocab

import "strings"

// Category is a canonical post category identifier. The backend speaks in
// display labels ("Accessibility Resources"); the client speaks in these ids.
type Category string

const (
	CategoryHelp           Category = "help"
	CategoryAccessibility  Category = "accessibility"
	CategorySafety         Category = "safety"
	CategoryInfrastructure Category = "infrastructure"
	CategoryCommunity      Category = "community"
)

// DefaultCategory is the fallback for backend labels we do not recognize.
const DefaultCategory = CategoryHelp

type Subcategory struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type entry struct {
	label string
	subs  []Subcategory
}

var order = []Category{
	CategoryHelp,
	CategoryAccessibility,
	CategorySafety,
	CategoryInfrastructure,
	CategoryCommunity,
}

var table = map[Category]entry{
	CategoryHelp: {
		label: "Help",
		subs: []Subcategory{
			{ID: "food", Label: "Food"},
			{ID: "supplies", Label: "Supplies"},
			{ID: "transport", Label: "Transportation"},
			{ID: "medical", Label: "Medical"},
			{ID: "shelter", Label: "Shelter"},
		},
	},
	CategoryAccessibility: {
		label: "Accessibility Resources",
		subs: []Subcategory{
			{ID: "ramp", Label: "Ramp Access"},
			{ID: "elevator", Label: "Elevator"},
			{ID: "parking", Label: "Accessible Parking"},
			{ID: "restroom", Label: "Accessible Restroom"},
		},
	},
	CategorySafety: {
		label: "Safety Alert",
		subs: []Subcategory{
			{ID: "hazard", Label: "Hazard"},
			{ID: "crime", Label: "Crime"},
			{ID: "weather", Label: "Severe Weather"},
		},
	},
	CategoryInfrastructure: {
		label: "Infrastructure Issue",
		subs: []Subcategory{
			{ID: "road", Label: "Road Damage"},
			{ID: "lighting", Label: "Street Lighting"},
			{ID: "utilities", Label: "Water & Utilities"},
		},
	},
	CategoryCommunity: {
		label: "Community Event",
		subs: []Subcategory{
			{ID: "volunteer", Label: "Volunteer Event"},
			{ID: "donation", Label: "Donation Drive"},
		},
	},
}

// Categories returns the canonical category ids in display order.
func Categories() []Category {
	out := make([]Category, len(order))
	copy(out, order)
	return out
}

// Label returns the backend display label for a canonical category.
func Label(c Category) string {
	if e, ok := table[c]; ok {
		return e.label
	}
	return table[DefaultCategory].label
}

// Subcategories returns the ordered subcategory list for a category.
func Subcategories(c Category) []Subcategory {
	e, ok := table[c]
	if !ok {
		return nil
	}
	out := make([]Subcategory, len(e.subs))
	copy(out, e.subs)
	return out
}

// MatchCategory maps a backend-supplied label or id to a canonical category.
// Matching is case-insensitive and whitespace-trimmed; unknown values fall
// back to DefaultCategory, never an error.
func MatchCategory(raw string) Category {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return DefaultCategory
	}
	for _, c := range order {
		if needle == string(c) || needle == strings.ToLower(table[c].label) {
			return c
		}
	}
	return DefaultCategory
}

// MatchSubcategory maps a backend-supplied subcategory label or id to the
// canonical subcategory id within cat. Unmatched non-empty strings are
// returned verbatim so round-tripping never loses backend data.
func MatchSubcategory(cat Category, raw string) string {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return ""
	}
	for _, sub := range table[cat].subs {
		if needle == sub.ID || needle == strings.ToLower(sub.Label) {
			return sub.ID
		}
	}
	return strings.TrimSpace(raw)
}

// SubcategoryLabel returns the display label for a canonical subcategory id,
// or the id verbatim when it is not part of the vocabulary.
func SubcategoryLabel(cat Category, id string) string {
	for _, sub := range table[cat].subs {
		if sub.ID == id {
			return sub.Label
		}
	}
	return id
}
