package migrations

import (
	"context"
	"fmt"

	"github.com/threadkeep/threadkeep/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Server)(nil),
			(*types.Channel)(nil),
			(*types.UserServerSettings)(nil),
			(*types.IgnoredAccount)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		// Channel lookups during guild reconciliation are by server
		_, err := db.NewCreateIndex().
			Model((*types.Channel)(nil)).
			Index("channels_server_id_idx").
			Column("server_id").
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create channel server index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.IgnoredAccount)(nil),
			(*types.UserServerSettings)(nil),
			(*types.Channel)(nil),
			(*types.Server)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
