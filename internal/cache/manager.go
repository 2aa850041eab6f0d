// Package cache holds the current menu snapshot and decides when it must be
// fetched again.
//
// A [Manager] owns exactly one [Snapshot]. Reads are served from it while it
// is younger than the hard cache duration; older or missing snapshots are
// replaced by a blocking fetch. [Manager.SoftRefresh] fetches in the
// background and never degrades a working snapshot on failure.
//
// Snapshots are replaced wholesale and never edited in place. Every accessor
// hands out copies, so callers may keep or modify what they receive.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/bakery/internal/clock"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/JonMunkholm/bakery/internal/sheets"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Default freshness windows. The soft interval is shorter than the hard
// duration so background refreshes land before reads have to block.
const (
	DefaultCacheDuration       = 10 * time.Minute
	DefaultSoftRefreshInterval = 5 * time.Minute
)

// persistTimeout bounds a best-effort snapshot save.
const persistTimeout = 5 * time.Second

// Snapshot is one complete fetch result.
type Snapshot struct {
	ID         uuid.UUID
	Items      []menu.MenuItem
	Categories []menu.Category
	Timestamp  time.Time
}

// clone returns a deep copy of s.
func (s *Snapshot) clone() Snapshot {
	return Snapshot{
		ID:         s.ID,
		Items:      menu.CloneItems(s.Items),
		Categories: menu.CloneCategories(s.Categories),
		Timestamp:  s.Timestamp,
	}
}

// Store persists snapshots across restarts.
// Latest returns nil, nil when nothing has been saved yet.
type Store interface {
	Latest(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// SoftRefreshResult is what a soft refresh leaves behind.
// IsNew reports whether the fetched content differs from the previous snapshot.
type SoftRefreshResult struct {
	Items      []menu.MenuItem
	Categories []menu.Category
	IsNew      bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithCacheDuration sets the hard expiry for read-through accessors.
func WithCacheDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cacheDuration = d
		}
	}
}

// WithSoftRefreshInterval sets the age after which ShouldRefresh reports true.
func WithSoftRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.softInterval = d
		}
	}
}

// WithSingleFlight controls whether concurrent cache misses share one fetch.
func WithSingleFlight(enabled bool) Option {
	return func(m *Manager) { m.singleFlight = enabled }
}

// WithStore enables snapshot persistence.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager owns the menu snapshot.
type Manager struct {
	fetcher       sheets.Fetcher
	clock         clock.Clock
	store         Store
	logger        *slog.Logger
	cacheDuration time.Duration
	softInterval  time.Duration
	singleFlight  bool

	group singleflight.Group

	mu   sync.RWMutex
	snap *Snapshot

	persisting sync.WaitGroup
	saveMu     sync.Mutex
	lastSaved  time.Time
}

// New creates an empty Manager that fetches through f.
func New(f sheets.Fetcher, opts ...Option) *Manager {
	m := &Manager{
		fetcher:       f,
		clock:         clock.Real{},
		logger:        slog.Default(),
		cacheDuration: DefaultCacheDuration,
		softInterval:  DefaultSoftRefreshInterval,
		singleFlight:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Warm installs the most recently persisted snapshot, keeping its original
// timestamp so freshness rules still apply. It is a no-op without a store or
// when a newer snapshot is already held.
func (m *Manager) Warm(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	snap, err := m.store.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load persisted snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}

	restored := snap.clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil || m.snap.Timestamp.Before(restored.Timestamp) {
		m.snap = &restored
	}
	return nil
}

// MenuData returns the cached items, fetching first if the snapshot is
// missing or older than the cache duration.
func (m *Manager) MenuData(ctx context.Context) ([]menu.MenuItem, error) {
	snap, err := m.readThrough(ctx)
	if err != nil {
		return nil, err
	}
	return menu.CloneItems(snap.Items), nil
}

// Categories returns the cached categories with the same policy as MenuData.
func (m *Manager) Categories(ctx context.Context) ([]menu.Category, error) {
	snap, err := m.readThrough(ctx)
	if err != nil {
		return nil, err
	}
	return menu.CloneCategories(snap.Categories), nil
}

// Clear drops the snapshot.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.snap = nil
	m.mu.Unlock()
}

// SoftRefresh fetches unconditionally and replaces the snapshot, reporting
// whether items or categories changed. On failure the snapshot is left as
// it was, the result carries its content with IsNew false, and the error is
// returned for logging.
func (m *Manager) SoftRefresh(ctx context.Context) (SoftRefreshResult, error) {
	prev := m.current()

	next, err := m.fetch(ctx)
	if err != nil {
		res := SoftRefreshResult{}
		if prev != nil {
			res.Items = menu.CloneItems(prev.Items)
			res.Categories = menu.CloneCategories(prev.Categories)
		}
		return res, fmt.Errorf("soft refresh: %w", err)
	}

	isNew := prev == nil ||
		!sameJSON(prev.Items, next.Items) ||
		!sameJSON(prev.Categories, next.Categories)

	m.replace(ctx, next)

	return SoftRefreshResult{
		Items:      menu.CloneItems(next.Items),
		Categories: menu.CloneCategories(next.Categories),
		IsNew:      isNew,
	}, nil
}

// ShouldRefresh reports whether there is no snapshot or it is older than the
// soft refresh interval.
func (m *Manager) ShouldRefresh() bool {
	snap := m.current()
	if snap == nil {
		return true
	}
	return m.clock.Now().Sub(snap.Timestamp) > m.softInterval
}

// Age returns the snapshot age in whole minutes, or 0 without a snapshot.
func (m *Manager) Age() int {
	snap := m.current()
	if snap == nil {
		return 0
	}
	age := m.clock.Now().Sub(snap.Timestamp)
	if age < 0 {
		return 0
	}
	return int(age / time.Minute)
}

// Snapshot returns a copy of the current snapshot.
func (m *Manager) Snapshot() (Snapshot, bool) {
	snap := m.current()
	if snap == nil {
		return Snapshot{}, false
	}
	return snap.clone(), true
}

func (m *Manager) current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// fresh returns the snapshot if it is still inside the hard cache window.
func (m *Manager) fresh() *Snapshot {
	snap := m.current()
	if snap != nil && m.clock.Now().Sub(snap.Timestamp) < m.cacheDuration {
		return snap
	}
	return nil
}

// readThrough serves the fresh snapshot or fetches a new one. With
// single-flight enabled, concurrent misses wait on the same fetch.
func (m *Manager) readThrough(ctx context.Context) (*Snapshot, error) {
	if snap := m.fresh(); snap != nil {
		return snap, nil
	}

	if !m.singleFlight {
		return m.fetchAndReplace(ctx)
	}

	v, err, _ := m.group.Do("menu", func() (any, error) {
		if snap := m.fresh(); snap != nil {
			return snap, nil
		}
		return m.fetchAndReplace(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (m *Manager) fetchAndReplace(ctx context.Context) (*Snapshot, error) {
	snap, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}
	m.replace(ctx, snap)
	return snap, nil
}

// fetch runs the full fetch, parse, map and extract cycle.
func (m *Manager) fetch(ctx context.Context) (*Snapshot, error) {
	text, err := m.fetcher.FetchCSV(ctx)
	if err != nil {
		return nil, err
	}

	items := menu.MapRows(menu.ParseCSV(text))
	return &Snapshot{
		ID:         uuid.New(),
		Items:      items,
		Categories: menu.ExtractCategories(items),
		Timestamp:  m.clock.Now(),
	}, nil
}

// replace installs snap and persists it in the background, so a slow store
// never holds up readers waiting on the fetch.
func (m *Manager) replace(ctx context.Context, snap *Snapshot) {
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	if m.store == nil {
		return
	}

	saved := snap.clone()
	bg := context.WithoutCancel(ctx)
	m.persisting.Add(1)
	go func() {
		defer m.persisting.Done()
		m.persist(bg, saved)
	}()
}

// persist saves snap unless a newer snapshot was already saved.
// Failures are logged only.
func (m *Manager) persist(ctx context.Context, snap Snapshot) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if snap.Timestamp.Before(m.lastSaved) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := m.store.Save(ctx, snap); err != nil {
		m.logger.Warn("persist menu snapshot failed",
			"snapshot_id", snap.ID,
			"error", err,
		)
		return
	}
	m.lastSaved = snap.Timestamp
}

// WaitForPersist blocks until background snapshot saves have finished.
func (m *Manager) WaitForPersist() {
	m.persisting.Wait()
}

// sameJSON compares two values by their JSON encoding.
func sameJSON(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
