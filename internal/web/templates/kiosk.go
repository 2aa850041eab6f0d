// Package templates holds the server-rendered pages of the menu service.
// The pages are written as .templ files; run `templ generate` after editing them.
package templates

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/a-h/templ"
)

// KioskSection is one category block on the kiosk page.
type KioskSection struct {
	Category menu.Category
	Items    []menu.MenuItem
}

// KioskData is everything the kiosk page renders.
type KioskData struct {
	BusinessName string
	Tagline      string
	Sections     []KioskSection
	LastUpdated  time.Time
	Notice       string // shown above the menu, e.g. the load error
	Loading      bool
}

// imageURL returns the item image, or about:invalid#TemplFailedSanitizationURL
// when the URL uses an unsafe scheme.
func imageURL(it menu.MenuItem) string {
	return string(templ.URL(it.Image))
}

func updatedLabel(t time.Time) string {
	return "Updated " + t.Local().Format("Jan 2, 3:04 PM")
}

// itemMeta joins the optional facts shown under an item.
func itemMeta(it menu.MenuItem) string {
	var parts []string
	if it.Calories != nil {
		parts = append(parts, fmt.Sprintf("%d cal", *it.Calories))
	}
	if it.Scale != nil && *it.Scale != "" {
		parts = append(parts, *it.Scale)
	}
	if it.PrepTime != nil && *it.PrepTime != "" {
		parts = append(parts, *it.PrepTime)
	}
	if len(it.Allergens) > 0 {
		parts = append(parts, "Contains: "+strings.Join(it.Allergens, ", "))
	}
	return strings.Join(parts, " · ")
}

// FormatPrice renders a price in dollars with two decimals.
func FormatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}
