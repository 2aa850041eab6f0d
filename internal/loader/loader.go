// Package loader keeps the menu that consumers display.
//
// A [Loader] sits between the cache and every consumer (HTTP API, kiosk page,
// live updates, publishing). It performs the initial load, refreshes in the
// background, and guarantees that once loading has finished there is always
// something to show: when the sheet fails or comes back empty, the bundled
// fallback menu is installed instead.
//
// Only the initial load can surface an error. Background refresh failures
// are logged and otherwise ignored.
package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/bakery/internal/cache"
	"github.com/JonMunkholm/bakery/internal/clock"
	"github.com/JonMunkholm/bakery/internal/menu"
	"golang.org/x/sync/errgroup"
)

// LoadErrorMessage is the user-facing error shown when the initial load fails.
const LoadErrorMessage = "We couldn't load the latest menu. Showing our regular selection instead."

// Default timer intervals.
const (
	DefaultSoftRefreshInterval = cache.DefaultSoftRefreshInterval
	DefaultAgeInterval         = time.Minute
)

// subscriberBuffer is the number of pending updates a slow subscriber may hold
// before further updates to it are dropped.
const subscriberBuffer = 4

// Source is the cache the loader reads from. *cache.Manager implements it.
type Source interface {
	MenuData(ctx context.Context) ([]menu.MenuItem, error)
	Categories(ctx context.Context) ([]menu.Category, error)
	Clear()
	SoftRefresh(ctx context.Context) (cache.SoftRefreshResult, error)
	ShouldRefresh() bool
	Age() int
}

// State is what consumers render.
type State struct {
	MenuItems    []menu.MenuItem `json:"menuItems"`
	Categories   []menu.Category `json:"categories"`
	Loading      bool            `json:"loading"`
	Error        string          `json:"error,omitempty"`
	IsRefreshing bool            `json:"isRefreshing"`
	LastUpdated  time.Time       `json:"lastUpdated"`
	CacheAge     int             `json:"cacheAge"`
}

func (s State) clone() State {
	s.MenuItems = menu.CloneItems(s.MenuItems)
	s.Categories = menu.CloneCategories(s.Categories)
	return s
}

// Config configures a Loader. Zero values fall back to the defaults.
type Config struct {
	SoftRefreshInterval time.Duration
	AgeInterval         time.Duration
	Fallback            []menu.MenuItem // nil uses menu.Fallback()
	Clock               clock.Clock
	Logger              *slog.Logger
}

// Loader orchestrates loading and refreshing the displayed menu.
type Loader struct {
	src          Source
	clock        clock.Clock
	logger       *slog.Logger
	softInterval time.Duration
	ageInterval  time.Duration
	fallback     []menu.MenuItem
	gate         *refreshGate

	mu    sync.RWMutex
	state State

	subMu       sync.Mutex
	subscribers map[int]chan State
	nextSubID   int
}

// New creates a Loader reading from src. Nothing is loaded until Load or Run;
// until then the state reports Loading with no items.
func New(src Source, cfg Config) *Loader {
	if cfg.SoftRefreshInterval <= 0 {
		cfg.SoftRefreshInterval = DefaultSoftRefreshInterval
	}
	if cfg.AgeInterval <= 0 {
		cfg.AgeInterval = DefaultAgeInterval
	}
	if cfg.Fallback == nil {
		cfg.Fallback = menu.Fallback()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Loader{
		src:          src,
		clock:        cfg.Clock,
		logger:       cfg.Logger.With("component", "menu_loader"),
		softInterval: cfg.SoftRefreshInterval,
		ageInterval:  cfg.AgeInterval,
		fallback:     menu.CloneItems(cfg.Fallback),
		gate:         newRefreshGate(),
		state:        State{Loading: true},
		subscribers:  make(map[int]chan State),
	}
}

// State returns a copy of the current state.
func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.clone()
}

// Load runs the initial load: items and categories are read concurrently
// through the cache. An empty menu installs the fallback without an error; a
// failure installs the fallback and sets LoadErrorMessage.
func (l *Loader) Load(ctx context.Context) {
	l.mu.Lock()
	l.state.Loading = true
	l.state.Error = ""
	l.mu.Unlock()

	var (
		items      []menu.MenuItem
		categories []menu.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = l.src.MenuData(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = l.src.Categories(gctx)
		return err
	})
	err := g.Wait()

	l.mu.Lock()
	switch {
	case err != nil:
		l.logger.Error("menu load failed, using fallback menu", "error", err)
		l.installFallbackLocked()
		l.state.Error = LoadErrorMessage
	case len(items) == 0:
		l.logger.Warn("menu sheet returned no usable rows, using fallback menu")
		l.installFallbackLocked()
	default:
		l.state.MenuItems = items
		l.state.Categories = categories
		l.state.LastUpdated = l.clock.Now()
		l.logger.Info("menu loaded", "items", len(items), "categories", len(categories))
	}
	l.state.Loading = false
	l.state.CacheAge = l.src.Age()
	snapshot := l.state.clone()
	l.mu.Unlock()

	l.publish(snapshot)
}

// Refresh is the manual reload: the cache is cleared and the full load runs
// again. It does not coordinate with a background refresh in flight.
func (l *Loader) Refresh(ctx context.Context) {
	l.logger.Info("manual menu refresh requested")
	l.src.Clear()
	l.Load(ctx)
}

// SoftRefresh runs one background refresh if the cache asks for it and no
// other background refresh is running. It reports whether a refresh ran.
func (l *Loader) SoftRefresh(ctx context.Context) bool {
	if !l.src.ShouldRefresh() {
		return false
	}
	if !l.gate.TryAcquire() {
		l.logger.Debug("background refresh already running, skipping tick")
		return false
	}
	defer l.gate.Release()

	l.setRefreshing(true)
	defer l.setRefreshing(false)

	res, err := l.src.SoftRefresh(ctx)
	if err != nil {
		l.logger.Warn("background menu refresh failed", "error", err)
		return true
	}
	if !res.IsNew {
		l.logger.Debug("background menu refresh found no changes")
		return true
	}

	l.mu.Lock()
	if len(res.Items) == 0 {
		l.logger.Warn("refreshed menu is empty, keeping fallback menu")
		l.installFallbackLocked()
	} else {
		l.state.MenuItems = res.Items
		l.state.Categories = res.Categories
	}
	l.state.LastUpdated = l.clock.Now()
	l.state.CacheAge = l.src.Age()
	snapshot := l.state.clone()
	l.mu.Unlock()

	l.logger.Info("menu updated in background", "items", len(res.Items))
	l.publish(snapshot)
	return true
}

// Run loads the menu, then refreshes it every soft refresh interval and
// recomputes the cache age every age interval until ctx is cancelled.
// Background refreshes outlive ctx; use WaitForRefresh to wait for them.
func (l *Loader) Run(ctx context.Context) {
	l.Load(ctx)

	soft := l.clock.NewTicker(l.softInterval)
	defer soft.Stop()
	age := l.clock.NewTicker(l.ageInterval)
	defer age.Stop()

	bg := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-soft.C():
			go l.SoftRefresh(bg)
		case <-age.C():
			l.mu.Lock()
			l.state.CacheAge = l.src.Age()
			l.mu.Unlock()
		}
	}
}

// WaitForRefresh blocks until no background refresh is running or ctx ends.
func (l *Loader) WaitForRefresh(ctx context.Context) error {
	return l.gate.WaitForDrain(ctx)
}

// Subscribe returns a channel receiving a copy of the state after every load
// and every background update with new content. Updates are dropped for
// subscribers that fall behind. Call the returned func to unsubscribe.
func (l *Loader) Subscribe() (<-chan State, func()) {
	ch := make(chan State, subscriberBuffer)

	l.subMu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = ch
	l.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subscribers, id)
			l.subMu.Unlock()
			close(ch)
		})
	}
}

func (l *Loader) publish(s State) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	for id, ch := range l.subscribers {
		select {
		case ch <- s.clone():
		default:
			l.logger.Debug("subscriber behind, dropping menu update", "subscriber", id)
		}
	}
}

func (l *Loader) setRefreshing(v bool) {
	l.mu.Lock()
	l.state.IsRefreshing = v
	l.mu.Unlock()
}

// installFallbackLocked replaces the displayed menu with the bundled one.
// l.mu must be held.
func (l *Loader) installFallbackLocked() {
	l.state.MenuItems = menu.CloneItems(l.fallback)
	l.state.Categories = menu.ExtractCategories(l.fallback)
}
