// Package catalog serves menu and business-settings reads from a periodically
// refreshed in-memory snapshot.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"restoran-pos/internal/logger"
	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Settings struct {
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	Currency       string          `json:"currency"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	ReceiptFooter  string          `json:"receipt_footer"`
}

type Snapshot struct {
	MenuItems map[uint]models.MenuItem
	Settings  Settings
	LoadedAt  time.Time
}

func (s *Snapshot) MenuItem(id uint) (models.MenuItem, bool) {
	item, ok := s.MenuItems[id]
	return item, ok
}

// Menu returns the items sorted by category then name.
func (s *Snapshot) Menu() []models.MenuItem {
	items := make([]models.MenuItem, 0, len(s.MenuItems))
	for _, it := range s.MenuItems {
		items = append(items, it)
	}
	sortMenu(items)
	return items
}

// Reader is the dependency of query-serving components; tests substitute a
// fixed snapshot.
type Reader interface {
	Snapshot() *Snapshot
}

type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Cache holds the last successfully loaded snapshot. Reads never block and
// are at most one refresh interval (plus one load) stale. A failed refresh
// keeps serving the previous snapshot.
type Cache struct {
	loader   Loader
	interval time.Duration
	log      *logger.Logger
	current  atomic.Pointer[Snapshot]

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewCache(loader Loader, interval time.Duration, fallback Settings, log *logger.Logger) *Cache {
	c := &Cache{
		loader:   loader,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.current.Store(&Snapshot{MenuItems: map[uint]models.MenuItem{}, Settings: fallback})
	return c
}

func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

func (c *Cache) Refresh(ctx context.Context) error {
	snap, err := c.loader.Load(ctx)
	if err != nil {
		return err
	}
	c.current.Store(snap)
	return nil
}

// Start loads once synchronously and then refreshes on a ticker until ctx is
// cancelled or Stop is called. The ticker runs even when the first load
// fails, so the cache recovers once the store is reachable again.
func (c *Cache) Start(ctx context.Context) error {
	initErr := c.Refresh(ctx)

	c.started.Store(true)
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				refreshCtx, cancel := context.WithTimeout(ctx, c.interval)
				if err := c.Refresh(refreshCtx); err != nil {
					c.log.Warnf("CATALOG", "refresh failed, serving snapshot from %s: %v",
						c.Snapshot().LoadedAt.Format(time.RFC3339), err)
				}
				cancel()
			}
		}
	}()

	if initErr != nil {
		return fmt.Errorf("initial catalog load failed: %w", initErr)
	}
	return nil
}

// Stop ends the refresh loop and waits for it. It is a no-op before Start.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.started.Load() {
		<-c.done
	}
}

// DBLoader reads the snapshot through gorm.
type DBLoader struct {
	db       *gorm.DB
	fallback Settings
}

func NewDBLoader(db *gorm.DB, fallback Settings) *DBLoader {
	return &DBLoader{db: db, fallback: fallback}
}

func (l *DBLoader) Load(ctx context.Context) (*Snapshot, error) {
	var items []models.MenuItem
	if err := l.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("menu load failed: %w", err)
	}

	settings := l.fallback
	var rows []models.BusinessSettings
	if err := l.db.WithContext(ctx).Order("id asc").Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("settings load failed: %w", err)
	}
	if len(rows) > 0 {
		r := rows[0]
		settings = Settings{
			Name:           r.Name,
			Address:        r.Address,
			Phone:          r.Phone,
			Currency:       r.Currency,
			TaxRatePercent: r.TaxRatePercent,
			ReceiptFooter:  r.ReceiptFooter,
		}
	}

	snap := &Snapshot{
		MenuItems: make(map[uint]models.MenuItem, len(items)),
		Settings:  settings,
		LoadedAt:  time.Now().UTC(),
	}
	for _, it := range items {
		snap.MenuItems[it.ID] = it
	}
	return snap, nil
}

// Static is a fixed Reader.
type Static struct {
	Snap *Snapshot
}

func (s Static) Snapshot() *Snapshot {
	return s.Snap
}
