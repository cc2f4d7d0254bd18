package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

func TestRegistry_Builtins(t *testing.T) {
	reg := NewRegistry()

	ids := reg.List()
	assert.Contains(t, ids, "social_media")
	assert.Contains(t, ids, "video")
	assert.Contains(t, ids, "news")
	assert.Contains(t, ids, "gaming")
	assert.Contains(t, ids, "shopping")

	social, ok := reg.Get("social_media")
	require.True(t, ok)
	assert.NotEmpty(t, social.Sites)

	_, ok = reg.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistryWithCategories(
		Category{ID: "b", Name: "B", Sites: []string{"b.com"}},
		Category{ID: "a", Name: "A", Sites: []string{"a.com"}},
	)
	assert.Equal(t, []string{"b", "a"}, reg.List())
}

func TestEffectiveBlockSet(t *testing.T) {
	reg := NewRegistryWithCategories(
		Category{ID: "social", Name: "Social", Sites: []string{"facebook.com", "twitter.com"}},
		Category{ID: "video", Name: "Video", Sites: []string{"youtube.com"}},
	)

	tests := []struct {
		name     string
		cfg      *domain.EnforcementConfig
		expected []string
	}{
		{
			name: "blacklist only",
			cfg: &domain.EnforcementConfig{
				Blacklist:         []string{"reddit.com"},
				CategoriesEnabled: map[string]bool{},
			},
			expected: []string{"reddit.com"},
		},
		{
			name: "enabled category sites included",
			cfg: &domain.EnforcementConfig{
				Blacklist:         []string{"reddit.com"},
				CategoriesEnabled: map[string]bool{"social": true, "video": false},
			},
			expected: []string{"facebook.com", "reddit.com", "twitter.com"},
		},
		{
			name: "whitelist wins over both sources",
			cfg: &domain.EnforcementConfig{
				Blacklist:         []string{"reddit.com", "facebook.com"},
				Whitelist:         []string{"facebook.com", "twitter.com"},
				CategoriesEnabled: map[string]bool{"social": true},
			},
			expected: []string{"reddit.com"},
		},
		{
			name: "duplicates and case collapse",
			cfg: &domain.EnforcementConfig{
				Blacklist:         []string{"Reddit.com", "reddit.com", "facebook.com"},
				CategoriesEnabled: map[string]bool{"social": true},
			},
			expected: []string{"facebook.com", "reddit.com", "twitter.com"},
		},
		{
			name: "empty everything",
			cfg: &domain.EnforcementConfig{
				CategoriesEnabled: map[string]bool{},
			},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveBlockSet(tt.cfg, reg)
			assert.Equal(t, tt.expected, got)
		})
	}
}
