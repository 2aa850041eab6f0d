package menu

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Column positions of the published sheet.
const (
	ColName = iota
	ColDescription
	ColPrice
	ColCategory
	ColAvailable
	ColCalories
	ColScale
	ColImage
	ColPopular
	ColID
)

// MinColumns is the shortest row that can still produce an item.
const MinColumns = 7

// Defaults applied when a cell is empty or missing.
const (
	DefaultName       = "Unnamed Item"
	DefaultCategory   = "uncategorized"
	PlaceholderImage  = "/images/menu-placeholder.jpg"
	syntheticIDPrefix = "item-"
)

// Leading-prefix number formats: "3.25 each" parses as 3.25, "$3" does not parse.
var (
	floatPrefixRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	intPrefixRegex   = regexp.MustCompile(`^[+-]?\d+`)
)

// MapRows maps parsed sheet rows onto menu items. rows[0] is the header and
// is discarded. Rows rejected by [MapRow] are dropped and do not consume an
// index, so synthetic IDs run item-0, item-1, ... over the kept rows.
func MapRows(rows [][]string) []MenuItem {
	if len(rows) < 2 {
		return []MenuItem{}
	}

	data := rows[1:]
	items := make([]MenuItem, 0, len(data))
	for _, row := range data {
		if item, ok := MapRow(row, len(items)); ok {
			items = append(items, item)
		}
	}
	return items
}

// MapRow maps a single data row. index is the row's zero-based position among
// the mapped rows and seeds the synthetic ID when the ID column is empty.
// It reports false for rows shorter than MinColumns or without a name.
func MapRow(row []string, index int) (MenuItem, bool) {
	if len(row) < MinColumns || cell(row, ColName) == "" {
		return MenuItem{}, false
	}

	item := MenuItem{
		ID:          orDefault(cell(row, ColID), fmt.Sprintf("%s%d", syntheticIDPrefix, index)),
		Name:        orDefault(cell(row, ColName), DefaultName),
		Description: cell(row, ColDescription),
		Price:       parsePrice(cell(row, ColPrice)),
		Image:       orDefault(cell(row, ColImage), PlaceholderImage),
		Category:    orDefault(strings.ToLower(cell(row, ColCategory)), DefaultCategory),
		Available:   isTruthy(cell(row, ColAvailable)),
		Popular:     isTruthy(cell(row, ColPopular)),
		Calories:    parseCalories(cell(row, ColCalories)),
	}

	if scale := cell(row, ColScale); scale != "" {
		item.Scale = &scale
	}

	return item, true
}

// cell returns row[i], or "" when the row is too short.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// isTruthy accepts "true" in any case, or exactly "1". Nothing else is trimmed
// or normalized: "yes", "2" and "TRUE " are all false.
func isTruthy(s string) bool {
	return strings.ToLower(s) == "true" || s == "1"
}

// parsePrice reads the leading number of s. Unparsable, negative and
// non-finite values become 0.
func parsePrice(s string) float64 {
	m := floatPrefixRegex.FindString(strings.TrimLeft(s, " \t"))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// parseCalories reads the leading integer of s. Empty, unparsable and
// non-positive values are treated as absent.
func parseCalories(s string) *int {
	if s == "" {
		return nil
	}
	m := intPrefixRegex.FindString(strings.TrimLeft(s, " \t"))
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
