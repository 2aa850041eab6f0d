package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/bakery/internal/cache"
	"github.com/JonMunkholm/bakery/internal/clock"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records Exec calls and serves QueryRow from a scripted row.
type fakeDB struct {
	mu      sync.Mutex
	execs   []execCall
	execErr error
	tag     pgconn.CommandTag
	row     pgx.Row
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return f.tag, f.execErr
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.row
}

func (f *fakeDB) calls() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]execCall(nil), f.execs...)
}

// fakeRow scans fixed values into the destinations.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func sampleSnapshot() cache.Snapshot {
	items := []menu.MenuItem{
		{ID: "croissant", Name: "Croissant", Category: "pastries", Price: 3.25, Available: true},
	}
	return cache.Snapshot{
		ID:         uuid.MustParse("3f1c2a4e-8d1b-4c1f-9e51-2a7f0d6b9c10"),
		Items:      items,
		Categories: menu.ExtractCategories(items),
		Timestamp:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := New(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	calls := db.calls()
	if len(calls) != 1 || !strings.Contains(calls[0].sql, "CREATE TABLE IF NOT EXISTS menu_snapshots") {
		t.Errorf("unexpected schema statements: %+v", calls)
	}
}

func TestSave(t *testing.T) {
	db := &fakeDB{}
	snap := sampleSnapshot()

	if err := New(db).Save(context.Background(), snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	calls := db.calls()
	if len(calls) != 1 {
		t.Fatalf("got %d Exec calls, want 1", len(calls))
	}
	args := calls[0].args
	if len(args) != 5 {
		t.Fatalf("got %d args, want 5", len(args))
	}
	if id := args[0].(pgtype.UUID); id.Bytes != snap.ID || !id.Valid {
		t.Errorf("id arg = %+v", id)
	}
	if ts := args[1].(pgtype.Timestamptz); !ts.Time.Equal(snap.Timestamp) {
		t.Errorf("fetched_at arg = %v", ts.Time)
	}
	if n := args[2].(int); n != 1 {
		t.Errorf("item_count arg = %d, want 1", n)
	}
	var items []menu.MenuItem
	if err := json.Unmarshal(args[3].([]byte), &items); err != nil {
		t.Fatalf("items arg is not JSON: %v", err)
	}
	if !reflect.DeepEqual(items, snap.Items) {
		t.Errorf("items arg = %+v, want %+v", items, snap.Items)
	}
}

func TestSave_ExecError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset")}
	err := New(db).Save(context.Background(), sampleSnapshot())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Save() error = %v, want wrapped exec error", err)
	}
}

func TestLatest(t *testing.T) {
	snap := sampleSnapshot()
	items, _ := json.Marshal(snap.Items)
	cats, _ := json.Marshal(snap.Categories)

	db := &fakeDB{row: fakeRow{values: []any{
		pgtype.UUID{Bytes: snap.ID, Valid: true},
		pgtype.Timestamptz{Time: snap.Timestamp, Valid: true},
		items,
		cats,
	}}}

	got, err := New(db).Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got == nil {
		t.Fatal("Latest() = nil, want snapshot")
	}
	if got.ID != snap.ID || !got.Timestamp.Equal(snap.Timestamp) {
		t.Errorf("Latest() = %s at %v", got.ID, got.Timestamp)
	}
	if !reflect.DeepEqual(got.Items, snap.Items) || !reflect.DeepEqual(got.Categories, snap.Categories) {
		t.Errorf("Latest() content mismatch: %+v", got)
	}
}

func TestLatest_Empty(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	got, err := New(db).Latest(context.Background())
	if err != nil || got != nil {
		t.Errorf("Latest() = %v, %v; want nil, nil", got, err)
	}
}

func TestLatest_CorruptJSON(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{
		pgtype.UUID{Valid: true},
		pgtype.Timestamptz{Valid: true},
		[]byte("{not json"),
		[]byte("[]"),
	}}}
	if _, err := New(db).Latest(context.Background()); err == nil {
		t.Error("Latest() expected decode error")
	}
}

func TestPrune(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 3")}

	n, err := New(db).Prune(context.Background(), 10)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Prune() = %d, want 3", n)
	}
	if args := db.calls()[0].args; len(args) != 1 || args[0] != 10 {
		t.Errorf("prune args = %v", args)
	}

	if _, err := New(db).Prune(context.Background(), 0); err == nil {
		t.Error("Prune(0) expected error")
	}
}

func TestDatabaseName(t *testing.T) {
	if got := DatabaseName("postgres://user:pw@localhost:5432/bakery?sslmode=disable"); got != "bakery" {
		t.Errorf("DatabaseName() = %q, want bakery", got)
	}
}

func TestStartPruneScheduler(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 0")}
	clk := clock.NewFake(time.Unix(0, 0))
	s := New(db)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.StartPruneScheduler(ctx, PruneConfig{Keep: 5, Interval: time.Hour, Clock: clk})
		close(done)
	}()

	waitFor(t, func() bool { return clk.Tickers() == 1 && len(db.calls()) == 1 })

	clk.Advance(time.Hour)
	waitFor(t, func() bool { return len(db.calls()) == 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if clk.Tickers() != 0 {
		t.Error("ticker not stopped")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
