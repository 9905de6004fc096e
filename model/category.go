package model

// Category is a stored article category or a reader facing selector. The
// taxonomy below is the single source of truth: every component that filters
// by category must consult this table instead of re-declaring its own
// grouping.
type Category string

const (
	// CategoryAll is the sentinel selector matching every stored category.
	CategoryAll Category = "All"

	CategorySport         Category = "Sport"
	CategoryPolitics      Category = "Politics"
	CategoryComedy        Category = "Comedy"
	CategoryTrending      Category = "Trending"
	CategoryLocal         Category = "Local"
	CategoryLocalNews     Category = "Local News"
	CategoryForeign       Category = "Foreign"
	CategoryInternational Category = "International News"

	// CategoryMetro is a selector only grouping, articles are never stored
	// under it directly.
	CategoryMetro Category = "Metro"
)

// TaxonomyVersion bumps whenever the grouping table below changes, so stored
// configs referencing an older grouping can be detected.
const TaxonomyVersion = 2

// storedCategories are the values articles may carry in the category column.
var storedCategories = []Category{
	CategorySport,
	CategoryPolitics,
	CategoryComedy,
	CategoryTrending,
	CategoryLocal,
	CategoryLocalNews,
	CategoryForeign,
	CategoryInternational,
}

// categoryGroups expands a reader facing selector to the set of stored
// category values it covers. A fixed static table, not user-configurable.
var categoryGroups = map[Category][]Category{
	CategoryTrending: {CategoryTrending, CategoryComedy},
	CategoryMetro:    {CategoryLocal, CategoryLocalNews, CategoryForeign, CategoryInternational},
}

// categorySlugs maps URL slugs to category selectors.
var categorySlugs = map[string]Category{
	"sport":         CategorySport,
	"politics":      CategoryPolitics,
	"comedy":        CategoryComedy,
	"trending":      CategoryTrending,
	"metro":         CategoryMetro,
	"local":         CategoryLocal,
	"local-news":    CategoryLocalNews,
	"foreign-news":  CategoryForeign,
	"international": CategoryInternational,
	"all":           CategoryAll,
}

// ExpandCategory resolves a selector to the stored category values a fetch
// should filter on. The "All" sentinel returns nil, meaning no filter at all.
// Unknown selectors are passed through as a literal single value filter.
func ExpandCategory(selector Category) []Category {
	if selector == CategoryAll || selector == "" {
		return nil
	}
	if group, ok := categoryGroups[selector]; ok {
		out := make([]Category, len(group))
		copy(out, group)
		return out
	}
	return []Category{selector}
}

// KnownCategory reports whether c is a value articles may be stored under.
func KnownCategory(c Category) bool {
	for _, s := range storedCategories {
		if s == c {
			return true
		}
	}
	return false
}

// CategoryFromSlug resolves a URL slug to its selector. Unknown slugs pass
// through as a literal category, matching the pass-through filter semantics.
func CategoryFromSlug(slug string) Category {
	if c, ok := categorySlugs[slug]; ok {
		return c
	}
	return Category(slug)
}
