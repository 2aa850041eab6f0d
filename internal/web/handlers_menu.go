package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/bakery/internal/loader"
	"github.com/JonMunkholm/bakery/internal/logging"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/go-chi/chi/v5"
)

// allCategory selects every item in handleCategory.
const allCategory = "all"

// MenuResponse is the body of GET /api/menu and of websocket messages.
type MenuResponse struct {
	Items        []menu.MenuItem `json:"items"`
	Categories   []menu.Category `json:"categories"`
	LastUpdated  *time.Time      `json:"lastUpdated"`
	CacheAge     int             `json:"cacheAge"`
	Loading      bool            `json:"loading"`
	IsRefreshing bool            `json:"isRefreshing"`
	Error        string          `json:"error,omitempty"`
}

// CategoryResponse is the body of GET /api/menu/category/{categoryID}.
type CategoryResponse struct {
	Category menu.Category   `json:"category"`
	Items    []menu.MenuItem `json:"items"`
}

// StatusResponse is the body of GET /api/menu/status.
type StatusResponse struct {
	Loading       bool       `json:"loading"`
	IsRefreshing  bool       `json:"isRefreshing"`
	LastUpdated   *time.Time `json:"lastUpdated"`
	CacheAge      int        `json:"cacheAge"`
	ShouldRefresh bool       `json:"shouldRefresh"`
	ItemCount     int        `json:"itemCount"`
	Error         string     `json:"error,omitempty"`
}

func newMenuResponse(st loader.State) MenuResponse {
	return MenuResponse{
		Items:        nonNilItems(st.MenuItems),
		Categories:   nonNilCategories(st.Categories),
		LastUpdated:  timePtr(st.LastUpdated),
		CacheAge:     st.CacheAge,
		Loading:      st.Loading,
		IsRefreshing: st.IsRefreshing,
		Error:        st.Error,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// handleMenu returns the displayed menu.
func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, newMenuResponse(s.menu.State()))
}

// handleCategories returns the categories derived from the displayed menu.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	st := s.menu.State()
	writeJSON(w, r, map[string][]menu.Category{
		"categories": nonNilCategories(st.Categories),
	})
}

// handleCategory returns the items of one category, or every item for "all".
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "categoryID")))
	st := s.menu.State()

	if id == allCategory {
		writeJSON(w, r, CategoryResponse{
			Category: menu.Category{ID: allCategory, Name: "All", Icon: menu.Icon(allCategory), Count: len(st.MenuItems)},
			Items:    nonNilItems(st.MenuItems),
		})
		return
	}

	items := filterByCategory(st.MenuItems, id)
	if len(items) == 0 {
		respondError(w, r, fmt.Errorf("%w: %q", ErrCategoryNotFound, id), http.StatusNotFound)
		return
	}

	cat := menu.Category{ID: id, Name: id, Icon: menu.Icon(id), Count: len(items)}
	for _, c := range st.Categories {
		if c.ID == id {
			cat = c
			break
		}
	}
	writeJSON(w, r, CategoryResponse{Category: cat, Items: items})
}

// handleStatus reports loader and cache freshness.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.menu.State()
	writeJSON(w, r, StatusResponse{
		Loading:       st.Loading,
		IsRefreshing:  st.IsRefreshing,
		LastUpdated:   timePtr(st.LastUpdated),
		CacheAge:      st.CacheAge,
		ShouldRefresh: s.cache.ShouldRefresh(),
		ItemCount:     len(st.MenuItems),
		Error:         st.Error,
	})
}

// handleRefresh clears the cache and reloads the menu. The reload finishes
// even if the client goes away so the displayed menu is never left half-loaded.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithFields(r.Context(), "ip", r.RemoteAddr, "route", "refresh")
	logger.Info("manual menu refresh")

	s.menu.Refresh(context.WithoutCancel(r.Context()))
	st := s.menu.State()
	logger.Info("manual menu refresh finished", "items", len(st.MenuItems), "error", st.Error)
	writeJSON(w, r, newMenuResponse(st))
}

func filterByCategory(items []menu.MenuItem, id string) []menu.MenuItem {
	out := make([]menu.MenuItem, 0)
	for _, it := range items {
		if it.Category == id {
			out = append(out, it)
		}
	}
	return out
}

// timePtr maps the zero time to nil so it encodes as null.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNilItems(items []menu.MenuItem) []menu.MenuItem {
	if items == nil {
		return []menu.MenuItem{}
	}
	return items
}

func nonNilCategories(categories []menu.Category) []menu.Category {
	if categories == nil {
		return []menu.Category{}
	}
	return categories
}
