package store

import (
	"context"
	"database/sql"
	"fmt"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"
)

// inventorySpec maps an inventory kind to its table layout. Flights and
// hotels are structurally identical countable resources and share all
// inventory operations.
type inventorySpec struct {
	table    string
	priceCol string
	availCol string
	totalCol string
	descCols string
}

var inventorySpecs = map[models.InventoryKind]inventorySpec{
	models.KindFlight: {
		table:    "flights",
		priceCol: "price",
		availCol: "available_seats",
		totalCol: "total_seats",
		descCols: "flight_number, airline, origin, destination",
	},
	models.KindHotel: {
		table:    "hotels",
		priceCol: "price_per_night",
		availCol: "available_rooms",
		totalCol: "total_rooms",
		descCols: "name, location",
	},
}

func specFor(kind models.InventoryKind) (inventorySpec, error) {
	spec, ok := inventorySpecs[kind]
	if !ok {
		return inventorySpec{}, fmt.Errorf("unknown inventory kind %q", kind)
	}
	return spec, nil
}

// GetInventoryItem retrieves the reservable view of a flight or hotel
func (s *Store) GetInventoryItem(ctx context.Context, kind models.InventoryKind, id int64) (*models.InventoryItem, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT id, %s, %s AS price, %s AS available_units, %s AS total_units FROM %s WHERE id = $1",
		spec.descCols, spec.priceCol, spec.availCol, spec.totalCol, spec.table)

	var item models.InventoryItem
	err = s.db.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %d: %w", kind, id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListInventory retrieves all items of a kind, used for the startup
// cache sync
func (s *Store) ListInventory(ctx context.Context, kind models.InventoryKind) ([]models.InventoryItem, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT id, %s, %s AS price, %s AS available_units, %s AS total_units FROM %s ORDER BY id",
		spec.descCols, spec.priceCol, spec.availCol, spec.totalCol, spec.table)

	var items []models.InventoryItem
	err = s.db.SelectContext(ctx, &items, query)
	return items, err
}

// ReserveUnitTx atomically reserves one unit within a transaction. The
// availability read and the decrement happen under a row lock, so two
// racing reservations of the last unit yield exactly one success.
func (s *Store) ReserveUnitTx(ctx context.Context, kind models.InventoryKind, id int64) error {
	spec, err := specFor(kind)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var available int
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", spec.availCol, spec.table)
	err = tx.GetContext(ctx, &available, query, id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %d: %w", kind, id, errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s inventory: %w", kind, err)
	}

	if available <= 0 {
		return fmt.Errorf("%s %d: %w", kind, id, errs.ErrSoldOut)
	}

	update := fmt.Sprintf(
		"UPDATE %s SET %s = %s - 1, available = (%s - 1) > 0, updated_at = NOW() WHERE id = $1",
		spec.table, spec.availCol, spec.availCol, spec.availCol)
	if _, err := tx.ExecContext(ctx, update, id); err != nil {
		return fmt.Errorf("failed to reserve %s unit: %w", kind, err)
	}

	return tx.Commit()
}

// ReleaseUnitTx returns one unit to the pool, capped at the item's
// total so repeated compensations cannot inflate inventory.
func (s *Store) ReleaseUnitTx(ctx context.Context, kind models.InventoryKind, id int64) error {
	spec, err := specFor(kind)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var counts struct {
		Available int `db:"available_units"`
		Total     int `db:"total_units"`
	}
	query := fmt.Sprintf(
		"SELECT %s AS available_units, %s AS total_units FROM %s WHERE id = $1 FOR UPDATE",
		spec.availCol, spec.totalCol, spec.table)
	err = tx.GetContext(ctx, &counts, query, id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %d: %w", kind, id, errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s inventory: %w", kind, err)
	}

	if counts.Available < counts.Total {
		update := fmt.Sprintf(
			"UPDATE %s SET %s = %s + 1, available = TRUE, updated_at = NOW() WHERE id = $1",
			spec.table, spec.availCol, spec.availCol)
		if _, err := tx.ExecContext(ctx, update, id); err != nil {
			return fmt.Errorf("failed to release %s unit: %w", kind, err)
		}
	}

	return tx.Commit()
}
