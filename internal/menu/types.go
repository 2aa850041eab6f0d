package menu

// MenuItem is one sellable product as shown on the site and the kiosk.
type MenuItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"`
	Category    string   `json:"category"`
	Available   bool     `json:"available"`
	Popular     bool     `json:"popular"`
	Calories    *int     `json:"calories,omitempty"`
	Scale       *string  `json:"scale,omitempty"`
	Allergens   []string `json:"allergens,omitempty"`
	PrepTime    *string  `json:"prepTime,omitempty"`
}

// Category is a grouping derived from the items of one menu snapshot.
// It has no lifecycle of its own and is recomputed whenever the items change.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}

// CloneItems returns a copy of items that shares no pointers with the input.
func CloneItems(items []MenuItem) []MenuItem {
	if items == nil {
		return nil
	}
	out := make([]MenuItem, len(items))
	for i, it := range items {
		if it.Calories != nil {
			c := *it.Calories
			it.Calories = &c
		}
		if it.Scale != nil {
			s := *it.Scale
			it.Scale = &s
		}
		if it.PrepTime != nil {
			p := *it.PrepTime
			it.PrepTime = &p
		}
		if it.Allergens != nil {
			it.Allergens = append([]string(nil), it.Allergens...)
		}
		out[i] = it
	}
	return out
}

// CloneCategories returns a copy of categories.
func CloneCategories(categories []Category) []Category {
	if categories == nil {
		return nil
	}
	return append([]Category(nil), categories...)
}
