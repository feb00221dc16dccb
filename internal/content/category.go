package content

import "slices"

// Category is an entry of the static category catalog.
type Category struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Keywords          []string       `json:"keywords" yaml:"keywords"`
	PriorityWeight    float64        `json:"priority_weight" yaml:"priority_weight"`
	OptimalPlatforms  []Platform     `json:"optimal_platforms" yaml:"optimal_platforms"`
	OptimalHours      []int          `json:"optimal_hours" yaml:"optimal_hours"`
	ContentTypes      []ContentType  `json:"content_types" yaml:"content_types"`
	BusinessAlignment []BusinessGoal `json:"business_alignment" yaml:"business_alignment"`
}

// SupportsPlatform reports whether p is one of the category's optimal platforms.
func (c Category) SupportsPlatform(p Platform) bool {
	return slices.Contains(c.OptimalPlatforms, p)
}

// AlignsWith reports whether the category serves goal g.
func (c Category) AlignsWith(g BusinessGoal) bool {
	return g != "" && slices.Contains(c.BusinessAlignment, g)
}

// Catalog is a read-only set of categories.
type Catalog struct {
	categories []Category
}

// NewCatalog copies the given categories into a catalog.
func NewCatalog(categories []Category) *Catalog {
	return &Catalog{categories: slices.Clone(categories)}
}

// Categories returns a copy of the catalog entries.
func (c *Catalog) Categories() []Category {
	if c == nil {
		return nil
	}
	return slices.Clone(c.categories)
}

// Lookup finds a category by ID.
func (c *Catalog) Lookup(id string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

// DefaultCategories is the catalog shipped with the default configuration.
func DefaultCategories() []Category {
	return []Category{
		{
			ID:   "tech-innovation",
			Name: "Tech Innovation",
			Keywords: []string{
				"ai", "artificial intelligence", "machine learning", "automation",
				"technology", "innovation", "software", "digital",
			},
			PriorityWeight:    0.8,
			OptimalPlatforms:  []Platform{PlatformLinkedIn, PlatformTwitter, PlatformBlog},
			OptimalHours:      []int{9, 10, 14, 15},
			ContentTypes:      []ContentType{TypeArticle, TypeVideo},
			BusinessAlignment: []BusinessGoal{GoalBrandAwareness, GoalLeadGeneration},
		},
		{
			ID:   "business-strategy",
			Name: "Business Strategy",
			Keywords: []string{
				"strategy", "growth", "revenue", "leadership", "roi",
				"business", "management", "scale",
			},
			PriorityWeight:    0.9,
			OptimalPlatforms:  []Platform{PlatformLinkedIn, PlatformEmail, PlatformBlog},
			OptimalHours:      []int{8, 9, 12, 17},
			ContentTypes:      []ContentType{TypeArticle, TypeNewsletter},
			BusinessAlignment: []BusinessGoal{GoalLeadGeneration, GoalConversion, GoalRetention},
		},
		{
			ID:   "marketing-tips",
			Name: "Marketing Tips",
			Keywords: []string{
				"marketing", "seo", "social media", "content", "brand",
				"campaign", "audience", "guide",
			},
			PriorityWeight:    0.7,
			OptimalPlatforms:  []Platform{PlatformLinkedIn, PlatformInstagram, PlatformTwitter, PlatformFacebook},
			OptimalHours:      []int{11, 12, 13, 18},
			ContentTypes:      []ContentType{TypeArticle, TypeImage, TypeVideo, TypeStory},
			BusinessAlignment: []BusinessGoal{GoalEngagement, GoalBrandAwareness, GoalLeadGeneration},
		},
	}
}
