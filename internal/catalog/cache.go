// Package catalog resolves item master data needed while mapping documents.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength bounds item descriptions created from document lines.
const MaxDescriptionLength = 100

// StockLevel is the stock snapshot attached to sales order lines.
type StockLevel struct {
	TotalAvailable decimal.Decimal
	DipWarehouse   decimal.Decimal
}

// Store is the item persistence needed by a Cache.
type Store interface {
	Manufacturers(ctx context.Context, codes []string) (map[string]string, error)
	StockLevels(ctx context.Context, codes []string) (map[string]StockLevel, error)
	EnsureItem(ctx context.Context, code, description string) (id int64, created bool, err error)
}

// Cache memoizes item lookups for a single sync run. It is not safe for
// concurrent use and must not outlive the run that created it.
type Cache struct {
	store  Store
	logger *slog.Logger

	manufacturers map[string]string
	stock         map[string]StockLevel
	itemIDs       map[string]int64
	created       int
}

// NewCache returns an empty per-run cache.
func NewCache(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:         store,
		logger:        logger,
		manufacturers: make(map[string]string),
		stock:         make(map[string]StockLevel),
		itemIDs:       make(map[string]int64),
	}
}

// Load batch-fills manufacturers and stock for codes that are not cached yet.
// Codes missing from the catalog are cached as empty so they are not looked up again.
func (c *Cache) Load(ctx context.Context, codes []string) {
	if c == nil || c.store == nil {
		return
	}
	if missing := uncached(codes, c.manufacturers); len(missing) > 0 {
		found, err := c.store.Manufacturers(ctx, missing)
		if err != nil {
			c.logger.Warn("batch load manufacturers", slog.Any("error", err))
		} else {
			for _, code := range missing {
				c.manufacturers[code] = found[code]
			}
		}
	}
	if missing := uncached(codes, c.stock); len(missing) > 0 {
		found, err := c.store.StockLevels(ctx, missing)
		if err != nil {
			c.logger.Warn("batch load stock", slog.Any("error", err))
		} else {
			for _, code := range missing {
				c.stock[code] = found[code]
			}
		}
	}
}

// Manufacturer returns the item firm for code, looking it up once on a miss.
func (c *Cache) Manufacturer(ctx context.Context, code string) string {
	code = strings.TrimSpace(code)
	if c == nil || code == "" {
		return ""
	}
	if v, ok := c.manufacturers[code]; ok {
		return v
	}
	if c.store == nil {
		return ""
	}
	found, err := c.store.Manufacturers(ctx, []string{code})
	if err != nil {
		c.logger.Warn("lookup manufacturer", slog.String("item_code", code), slog.Any("error", err))
		return ""
	}
	c.manufacturers[code] = found[code]
	return found[code]
}

// Stock returns the stock levels for code, looking them up once on a miss.
func (c *Cache) Stock(ctx context.Context, code string) StockLevel {
	code = strings.TrimSpace(code)
	if c == nil || code == "" {
		return StockLevel{}
	}
	if v, ok := c.stock[code]; ok {
		return v
	}
	if c.store == nil {
		return StockLevel{}
	}
	found, err := c.store.StockLevels(ctx, []string{code})
	if err != nil {
		c.logger.Warn("lookup stock", slog.String("item_code", code), slog.Any("error", err))
		return StockLevel{}
	}
	c.stock[code] = found[code]
	return found[code]
}

// EnsureItem returns the catalog id for code, creating a minimal item when the
// code is unknown. The boolean is false when no store is attached.
func (c *Cache) EnsureItem(ctx context.Context, code, description string) (int64, bool, error) {
	code = strings.TrimSpace(code)
	if c == nil || c.store == nil || code == "" {
		return 0, false, nil
	}
	if id, ok := c.itemIDs[code]; ok {
		return id, true, nil
	}
	id, created, err := c.store.EnsureItem(ctx, code, TruncateDescription(description))
	if err != nil {
		return 0, false, err
	}
	if created {
		c.created++
		c.logger.Info("created missing item", slog.String("item_code", code))
	}
	c.itemIDs[code] = id
	return id, true, nil
}

// CreatedItems reports how many catalog items this run created.
func (c *Cache) CreatedItems() int {
	if c == nil {
		return 0
	}
	return c.created
}

// TruncateDescription trims description to MaxDescriptionLength runes.
func TruncateDescription(description string) string {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) <= MaxDescriptionLength {
		return description
	}
	return string([]rune(description)[:MaxDescriptionLength])
}

func uncached[V any](codes []string, cached map[string]V) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := cached[code]; ok {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
