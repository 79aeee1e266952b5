package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- INVENTORY ----------------

// ItemsForLineItems resolves cart line items to break product items by
// their commerce platform product/variant ids.
func (d *DB) ItemsForLineItems(ctx context.Context, lineItems []models.LineItem) ([]models.ProductItem, error) {
	if len(lineItems) == 0 {
		return []models.ProductItem{}, nil
	}

	var items []models.ProductItem
	q := d.Bun.NewSelect().
		Model(&items).
		Relation("Break")

	q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, li := range lineItems {
			pid, vid := li.ProductID, li.VariantID
			q = q.WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					Where("bc_product_id = ?", pid).
					Where("bc_variant_id = ?", vid)
			})
		}
		return q
	})

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

// ReserveItem attempts to take the spot for the given order: the quantity
// flip 1->0 and the ledger insert happen in one transaction, so a racing
// checkout either gets both or neither. Returns false when the spot was
// already taken.
func (d *DB) ReserveItem(ctx context.Context, itemID, orderID, userID string) (bool, error) {
	tx, err := d.Bun.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.NewUpdate().
		Model((*models.ProductItem)(nil)).
		Set("quantity = ?", 0).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", itemID).
		Where("quantity = ?", 1).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	entry := models.ReservationEntry{
		ProductItemID: itemID,
		OrderID:       orderID,
		UserID:        userID,
		CreatedAt:     time.Now(),
	}
	res, err = tx.NewInsert().
		Model(&entry).
		Ignore().
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		// Another checkout already holds the ledger row; the rollback
		// undoes our quantity flip.
		return false, nil
	}

	return true, tx.Commit()
}

// ReleaseItem undoes one reservation. The order_id guard means a spot that
// some other checkout has since finalized is never touched.
func (d *DB) ReleaseItem(ctx context.Context, itemID, orderID string) error {
	tx, err := d.Bun.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NewUpdate().
		Model((*models.ProductItem)(nil)).
		Set("quantity = ?", 1).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", itemID).
		Where("quantity = ?", 0).
		Where("order_id IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = tx.NewDelete().
		Model((*models.ReservationEntry)(nil)).
		Where("product_item_id = ?", itemID).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ReleaseExpired gives quantity back to every spot reserved before the
// cutoff that never made it into an order, and drops the dead sagas'
// ledger rows in the same transaction. Without the ledger cleanup a
// released spot could never be reserved again. Safe to run concurrently
// with live checkouts.
func (d *DB) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := d.Bun.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.NewUpdate().
		Model((*models.ProductItem)(nil)).
		Set("quantity = ?", 1).
		Set("updated_at = ?", time.Now()).
		Where("quantity = ?", 0).
		Where("order_id IS NULL").
		Where("updated_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	_, err = tx.NewDelete().
		Model((*models.ReservationEntry)(nil)).
		Where("created_at < ?", cutoff).
		Where("product_item_id IN (SELECT id FROM break_product_items WHERE order_id IS NULL)").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return rows, tx.Commit()
}

// ---------------- RESERVATION LEDGER ----------------

// ReservationsByOrder reports which of this checkout's reservation inserts
// actually landed, used to detect partial wins after a race.
func (d *DB) ReservationsByOrder(ctx context.Context, orderID string) ([]models.ReservationEntry, error) {
	var entries []models.ReservationEntry
	err := d.Bun.NewSelect().
		Model(&entries).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *DB) DeleteReservations(ctx context.Context, orderID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.ReservationEntry)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

// ---------------- ORDERS ----------------

// CommitOrder inserts the order row and finalizes its spots in a single
// transaction. Every reserved spot must still be unfinalized; otherwise
// the whole commit rolls back.
func (d *DB) CommitOrder(ctx context.Context, order models.Order, itemIDs []string) error {
	tx, err := d.Bun.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
		return err
	}

	res, err := tx.NewUpdate().
		Model((*models.ProductItem)(nil)).
		Set("order_id = ?", order.ID).
		Set("quantity = ?", 0).
		Set("updated_at = ?", time.Now()).
		Where("id IN (?)", bun.In(itemIDs)).
		Where("order_id IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows != int64(len(itemIDs)) {
		return fmt.Errorf("finalized %d of %d spots", rows, len(itemIDs))
	}

	return tx.Commit()
}

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ---------------- FOLLOWS ----------------

// FollowBreaks registers the buyer as a follower of each purchased break.
// Duplicates are swallowed by the composite primary key.
func (d *DB) FollowBreaks(ctx context.Context, userID string, breakIDs []string) error {
	if len(breakIDs) == 0 {
		return nil
	}

	follows := make([]models.BreakFollow, 0, len(breakIDs))
	for _, breakID := range breakIDs {
		follows = append(follows, models.BreakFollow{
			UserID:    userID,
			BreakID:   breakID,
			CreatedAt: time.Now(),
		})
	}

	_, err := d.Bun.NewInsert().
		Model(&follows).
		Ignore().
		Exec(ctx)
	return err
}
