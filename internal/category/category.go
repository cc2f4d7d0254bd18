// Package category provides the built-in named site categories and the
// derivation of the effective block set from the enforcement config.
package category

import (
	"sort"
	"strings"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

// Category groups related distraction sites under a toggleable name.
type Category struct {
	ID    string
	Name  string
	Sites []string
}

// Registry holds all site categories.
// This is the in-memory category store; enabled/disabled state lives in
// the enforcement config, not here.
type Registry struct {
	categories map[string]Category
	order      []string
}

// NewRegistry creates a registry with all built-in categories.
func NewRegistry() *Registry {
	r := &Registry{categories: make(map[string]Category)}

	r.Register(Category{
		ID:   "social_media",
		Name: "Social Media",
		Sites: []string{
			"facebook.com", "twitter.com", "x.com", "instagram.com",
			"tiktok.com", "reddit.com", "linkedin.com", "pinterest.com",
		},
	})
	r.Register(Category{
		ID:   "video",
		Name: "Video Streaming",
		Sites: []string{
			"youtube.com", "netflix.com", "twitch.tv", "vimeo.com",
			"hulu.com", "dailymotion.com",
		},
	})
	r.Register(Category{
		ID:   "news",
		Name: "News",
		Sites: []string{
			"cnn.com", "bbc.com", "nytimes.com", "foxnews.com",
			"theguardian.com", "news.ycombinator.com",
		},
	})
	r.Register(Category{
		ID:   "gaming",
		Name: "Gaming",
		Sites: []string{
			"steampowered.com", "epicgames.com", "roblox.com",
			"miniclip.com", "chess.com",
		},
	})
	r.Register(Category{
		ID:   "shopping",
		Name: "Shopping",
		Sites: []string{
			"amazon.com", "ebay.com", "aliexpress.com", "etsy.com",
			"temu.com",
		},
	})

	return r
}

// NewRegistryWithCategories creates a registry with custom categories (for testing).
func NewRegistryWithCategories(categories ...Category) *Registry {
	r := &Registry{categories: make(map[string]Category)}
	for _, c := range categories {
		r.Register(c)
	}
	return r
}

// Register adds a category to the registry.
func (r *Registry) Register(c Category) {
	if _, exists := r.categories[c.ID]; !exists {
		r.order = append(r.order, c.ID)
	}
	r.categories[c.ID] = c
}

// Get returns a category by ID.
func (r *Registry) Get(id string) (Category, bool) {
	c, ok := r.categories[id]
	return c, ok
}

// GetAll returns all categories in registration order.
func (r *Registry) GetAll() []Category {
	result := make([]Category, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.categories[id])
	}
	return result
}

// List returns all category IDs in registration order.
func (r *Registry) List() []string {
	return append([]string(nil), r.order...)
}

// EffectiveBlockSet computes blacklist plus the sites of every enabled
// category, minus the whitelist. Hostnames are lower-cased and the result
// is sorted and deduplicated. Never persisted, only derived.
func EffectiveBlockSet(cfg *domain.EnforcementConfig, reg *Registry) []string {
	blocked := make(map[string]struct{})

	for _, host := range cfg.Blacklist {
		if h := strings.ToLower(strings.TrimSpace(host)); h != "" {
			blocked[h] = struct{}{}
		}
	}
	for id, enabled := range cfg.CategoriesEnabled {
		if !enabled {
			continue
		}
		cat, ok := reg.Get(id)
		if !ok {
			continue
		}
		for _, host := range cat.Sites {
			blocked[strings.ToLower(host)] = struct{}{}
		}
	}
	for _, host := range cfg.Whitelist {
		delete(blocked, strings.ToLower(strings.TrimSpace(host)))
	}

	result := make([]string, 0, len(blocked))
	for host := range blocked {
		result = append(result, host)
	}
	sort.Strings(result)
	return result
}
