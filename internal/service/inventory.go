package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"
	"travel-booking-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is the persistent side of an inventory: the database
// rows holding the authoritative unit counts.
type InventoryStore interface {
	GetInventoryItem(ctx context.Context, kind models.InventoryKind, id int64) (*models.InventoryItem, error)
	ListInventory(ctx context.Context, kind models.InventoryKind) ([]models.InventoryItem, error)
	ReserveUnitTx(ctx context.Context, kind models.InventoryKind, id int64) error
	ReleaseUnitTx(ctx context.Context, kind models.InventoryKind, id int64) error
}

// InventoryCache is the Redis fast path for unit counts.
type InventoryCache interface {
	ReserveUnit(ctx context.Context, kind models.InventoryKind, id int64) (bool, error)
	ReleaseUnit(ctx context.Context, kind models.InventoryKind, id int64) error
	GetAvailable(ctx context.Context, kind models.InventoryKind, id int64) (int, error)
	InitInventory(ctx context.Context, kind models.InventoryKind, id int64, available, total int) error
}

// InventoryService owns the countable units of one inventory kind
// (flight seats or hotel rooms). ReserveOne is the only way a count
// decreases and ReleaseOne the only way it increases; the check and the
// mutation always execute as one atomic unit, either in a Redis script
// or under a database row lock. A separate availability check is never
// load-bearing for correctness.
type InventoryService struct {
	kind   models.InventoryKind
	store  InventoryStore
	cache  InventoryCache
	logger *zap.Logger
}

// NewInventoryService creates an inventory service for one kind. The
// cache may be nil, in which case every operation goes to the database.
func NewInventoryService(kind models.InventoryKind, store InventoryStore, cache InventoryCache) *InventoryService {
	return &InventoryService{
		kind:   kind,
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// Get retrieves the item detail (price, unit counts)
func (is *InventoryService) Get(ctx context.Context, id int64) (*models.InventoryItem, error) {
	return is.store.GetInventoryItem(ctx, is.kind, id)
}

// List retrieves all items of this inventory kind
func (is *InventoryService) List(ctx context.Context) ([]models.InventoryItem, error) {
	return is.store.ListInventory(ctx, is.kind)
}

// ReserveOne atomically takes one unit. Returns ErrSoldOut when no
// units are left and ErrNotFound for an unknown id.
func (is *InventoryService) ReserveOne(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReserveOne")
	defer span.End()

	start := time.Now()
	defer func() {
		util.InventoryReserveLatency.Observe(time.Since(start).Seconds())
	}()

	if is.cache == nil {
		return is.reserveDB(ctx, id)
	}

	ok, err := is.cache.ReserveUnit(ctx, is.kind, id)
	if err != nil {
		is.logger.Warn("Cache reservation failed, falling back to DB",
			zap.String("kind", string(is.kind)),
			zap.Int64("id", id),
			zap.Error(err))
		return is.reserveDB(ctx, id)
	}

	if !ok {
		util.InventoryReservationsFailed.WithLabelValues(string(is.kind), "sold_out").Inc()
		return fmt.Errorf("%s %d: %w", is.kind, id, errs.ErrSoldOut)
	}

	// Write-through to the authoritative row off the request path.
	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := is.store.ReserveUnitTx(syncCtx, is.kind, id); err != nil {
			is.logger.Error("Failed to sync reservation to DB",
				zap.String("kind", string(is.kind)),
				zap.Int64("id", id),
				zap.Error(err))
		}
	}()

	return nil
}

func (is *InventoryService) reserveDB(ctx context.Context, id int64) error {
	if err := is.store.ReserveUnitTx(ctx, is.kind, id); err != nil {
		reason := "error"
		if errors.Is(err, errs.ErrSoldOut) {
			reason = "sold_out"
		}
		util.InventoryReservationsFailed.WithLabelValues(string(is.kind), reason).Inc()
		return err
	}
	return nil
}

// ReleaseOne returns one unit, used by compensation and cancellation.
// The count is capped at the item's total on both paths.
func (is *InventoryService) ReleaseOne(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReleaseOne")
	defer span.End()

	if is.cache != nil {
		if err := is.cache.ReleaseUnit(ctx, is.kind, id); err != nil {
			is.logger.Error("Failed to release unit in cache",
				zap.String("kind", string(is.kind)),
				zap.Int64("id", id),
				zap.Error(err))
		}
	}

	return is.store.ReleaseUnitTx(ctx, is.kind, id)
}

// CheckAvailable reports whether at least one unit is left. Informative
// only; reservation correctness rests on ReserveOne alone.
func (is *InventoryService) CheckAvailable(ctx context.Context, id int64) (bool, error) {
	if is.cache != nil {
		if available, err := is.cache.GetAvailable(ctx, is.kind, id); err == nil {
			return available > 0, nil
		}
	}

	item, err := is.store.GetInventoryItem(ctx, is.kind, id)
	if err != nil {
		return false, err
	}
	return item.Available(), nil
}

// SyncToCache seeds the cache from the database counts at startup
func (is *InventoryService) SyncToCache(ctx context.Context) error {
	if is.cache == nil {
		return nil
	}

	items, err := is.store.ListInventory(ctx, is.kind)
	if err != nil {
		return fmt.Errorf("failed to list %s inventory: %w", is.kind, err)
	}

	for _, item := range items {
		if err := is.cache.InitInventory(ctx, is.kind, item.ID, item.AvailableUnits, item.TotalUnits); err != nil {
			is.logger.Error("Failed to init cached inventory",
				zap.String("kind", string(is.kind)),
				zap.Int64("id", item.ID),
				zap.Error(err))
		}
	}

	is.logger.Info("Inventory synced to cache",
		zap.String("kind", string(is.kind)),
		zap.Int("count", len(items)))
	return nil
}
