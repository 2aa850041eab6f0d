package web

import (
	"net/http"

	"github.com/JonMunkholm/bakery/internal/loader"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/JonMunkholm/bakery/internal/web/templates"
)

// handleKiosk renders the tablet menu: available items only, grouped by
// category in category order.
func (s *Server) handleKiosk(w http.ResponseWriter, r *http.Request) {
	st := s.menu.State()

	data := templates.KioskData{
		BusinessName: s.cfg.Site.BusinessName,
		Tagline:      s.cfg.Site.Tagline,
		Sections:     kioskSections(st),
		LastUpdated:  st.LastUpdated,
		Notice:       st.Error,
		Loading:      st.Loading,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.KioskPage(data).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// kioskSections groups the available items of st by category. Categories
// with no available items are omitted.
func kioskSections(st loader.State) []templates.KioskSection {
	byCategory := make(map[string][]menu.MenuItem)
	for _, it := range st.MenuItems {
		if it.Available {
			byCategory[it.Category] = append(byCategory[it.Category], it)
		}
	}

	sections := make([]templates.KioskSection, 0, len(byCategory))
	for _, c := range st.Categories {
		items := byCategory[c.ID]
		if len(items) == 0 {
			continue
		}
		c.Count = len(items)
		sections = append(sections, templates.KioskSection{Category: c, Items: items})
	}
	return sections
}
