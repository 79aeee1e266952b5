package db

import (
	"context"
	"log"

	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the checkout tables if they do not exist yet.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{
		(*models.Break)(nil),
		(*models.ProductItem)(nil),
		(*models.ReservationEntry)(nil),
		(*models.Order)(nil),
		(*models.BreakFollow)(nil),
	}

	for _, m := range tables {
		_, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx)
		if err != nil {
			log.Fatalf("create table failed for %T: %v", m, err)
		}
	}

	log.Println("checkout tables ready")
}
