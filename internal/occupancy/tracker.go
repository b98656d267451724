// Package occupancy tracks how many open orders each table holds.
//
// The list lives in the session store, not in the tracker: every call reads
// the latest persisted value, so no component keeps a private stale copy.
package occupancy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/kiwari-pos/terminal/internal/cache"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/remote"
	"go.uber.org/zap"
)

// TableOccupancy is the number of pending orders held by one table.
type TableOccupancy struct {
	TableNumber      string `json:"tableNumber"`
	ActiveOrderCount int    `json:"activeOrderCount"`
}

// PendingLister returns every pending order known to the service.
// Satisfied by *remote.Client.
type PendingLister interface {
	PendingOrders(ctx context.Context) (*remote.OrderList, error)
}

// Tracker maps table numbers to open-order counts.
type Tracker struct {
	store cache.Store
	log   *zap.Logger

	// mu serialises read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewTracker creates a Tracker persisting into store.
func NewTracker(store cache.Store, log *zap.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// Seed replaces the local list with one derived from the service's pending
// orders, grouped by table. Orders without a table are ignored.
func (t *Tracker) Seed(ctx context.Context, lister PendingLister) error {
	list, err := lister.PendingOrders(ctx)
	if err != nil {
		return fmt.Errorf("seed occupancy: %w", err)
	}

	counts := make(map[string]int)
	for _, o := range list.Orders {
		if o.TableNumber == "" || !o.Pending() {
			continue
		}
		counts[o.TableNumber]++
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.save(ctx, counts); err != nil {
		return err
	}
	if err := t.store.Set(ctx, enum.CacheKeyOccupancySeeded, []byte("1"), 0); err != nil {
		return fmt.Errorf("mark occupancy seeded: %w", err)
	}
	t.log.Info("occupancy seeded", zap.Int("tables", len(counts)), zap.Int("orders", len(list.Orders)))
	return nil
}

// EnsureSeeded seeds the list unless this session already has. Local
// opens and closes alone do not count as seeded.
func (t *Tracker) EnsureSeeded(ctx context.Context, lister PendingLister) error {
	_, ok, err := t.store.Get(ctx, enum.CacheKeyOccupancySeeded)
	if err != nil {
		return fmt.Errorf("load occupancy marker: %w", err)
	}
	if ok {
		return nil
	}
	return t.Seed(ctx, lister)
}

// RecordOrderOpened increments the table's count, creating the entry if
// absent.
func (t *Tracker) RecordOrderOpened(ctx context.Context, tableNumber string) error {
	if tableNumber == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	counts, err := t.load(ctx)
	if err != nil {
		return err
	}
	counts[tableNumber]++
	return t.save(ctx, counts)
}

// RecordOrderClosed decrements the table's count and removes the entry
// once it reaches zero. A table may hold several pending orders, so one
// close never clears the others.
func (t *Tracker) RecordOrderClosed(ctx context.Context, tableNumber string) error {
	if tableNumber == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	counts, err := t.load(ctx)
	if err != nil {
		return err
	}
	if counts[tableNumber] <= 1 {
		delete(counts, tableNumber)
	} else {
		counts[tableNumber]--
	}
	return t.save(ctx, counts)
}

// Count returns the open-order count for one table.
func (t *Tracker) Count(ctx context.Context, tableNumber string) (int, error) {
	counts, err := t.load(ctx)
	if err != nil {
		return 0, err
	}
	return counts[tableNumber], nil
}

// Entries returns the stored entries sorted by table number.
func (t *Tracker) Entries(ctx context.Context) ([]TableOccupancy, error) {
	counts, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TableOccupancy, 0, len(counts))
	for table, n := range counts {
		out = append(out, TableOccupancy{TableNumber: table, ActiveOrderCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return tableLess(out[i].TableNumber, out[j].TableNumber) })
	return out, nil
}

// Tables returns one entry per physical table, including tables the
// service reported orders for that are missing from tables. Free tables
// come first so staff are steered towards them; ties keep table order.
func (t *Tracker) Tables(ctx context.Context, tables []string) ([]TableOccupancy, error) {
	counts, err := t.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(tables))
	out := make([]TableOccupancy, 0, len(tables))
	for _, table := range tables {
		if seen[table] {
			continue
		}
		seen[table] = true
		out = append(out, TableOccupancy{TableNumber: table, ActiveOrderCount: counts[table]})
	}
	for table, n := range counts {
		if !seen[table] {
			out = append(out, TableOccupancy{TableNumber: table, ActiveOrderCount: n})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].ActiveOrderCount == 0, out[j].ActiveOrderCount == 0
		if fi != fj {
			return fi
		}
		return tableLess(out[i].TableNumber, out[j].TableNumber)
	})
	return out, nil
}

func (t *Tracker) load(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	raw, ok, err := t.store.Get(ctx, enum.CacheKeyOccupancy)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	if !ok {
		return counts, nil
	}

	var entries []TableOccupancy
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.log.Warn("discarding corrupt occupancy list", zap.Error(err))
		return counts, nil
	}
	for _, e := range entries {
		if e.ActiveOrderCount > 0 {
			counts[e.TableNumber] = e.ActiveOrderCount
		}
	}
	return counts, nil
}

func (t *Tracker) save(ctx context.Context, counts map[string]int) error {
	entries := make([]TableOccupancy, 0, len(counts))
	for table, n := range counts {
		entries = append(entries, TableOccupancy{TableNumber: table, ActiveOrderCount: n})
	}
	sort.Slice(entries, func(i, j int) bool { return tableLess(entries[i].TableNumber, entries[j].TableNumber) })

	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode occupancy: %w", err)
	}
	// No TTL: the list lives for the session and is reseeded on load.
	if err := t.store.Set(ctx, enum.CacheKeyOccupancy, b, 0); err != nil {
		return fmt.Errorf("save occupancy: %w", err)
	}
	return nil
}

// tableLess orders numeric table numbers numerically, then the rest
// lexically after them.
func tableLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
