package menu

import (
	"sort"
	"unicode"
	"unicode/utf8"
)

// FallbackIcon is used for categories missing from the icon table.
const FallbackIcon = "📦"

var categoryIcons = map[string]string{
	"coffee":        "☕",
	"pastries":      "🥐",
	"sandwiches":    "🥪",
	"desserts":      "🍰",
	"drinks":        "🥤",
	"breakfast":     "🍳",
	"lunch":         "🍽️",
	"dinner":        "🍝",
	"snacks":        "🍿",
	"salads":        "🥗",
	"soups":         "🍲",
	"bread":         "🍞",
	"cakes":         "🎂",
	"cookies":       "🍪",
	"muffins":       "🧁",
	"uncategorized": "📦",
}

// Icon returns the glyph for a category id.
func Icon(id string) string {
	if icon, ok := categoryIcons[id]; ok {
		return icon
	}
	return FallbackIcon
}

// ExtractCategories groups items by category and returns one entry per
// distinct category, ordered by item count, largest first. Categories with
// equal counts keep the order in which they first appear in items.
func ExtractCategories(items []MenuItem) []Category {
	categories := make([]Category, 0)
	index := make(map[string]int)

	for _, item := range items {
		if i, ok := index[item.Category]; ok {
			categories[i].Count++
			continue
		}
		index[item.Category] = len(categories)
		categories = append(categories, Category{
			ID:    item.Category,
			Name:  displayName(item.Category),
			Icon:  Icon(item.Category),
			Count: 1,
		})
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Count > categories[j].Count
	})

	return categories
}

// displayName upper-cases the first rune and leaves the rest as is.
func displayName(id string) string {
	r, size := utf8.DecodeRuneInString(id)
	if r == utf8.RuneError {
		return id
	}
	return string(unicode.ToUpper(r)) + id[size:]
}
