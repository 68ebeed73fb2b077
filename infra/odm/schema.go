package odm

import (
	"context"
	"fmt"

	"github.com/kilianp07/datagrid/core/persistence"
)

// CreateCollections creates the missing collection tables of every class in
// cfg.
func CreateCollections(ctx context.Context, conn *persistence.Connection, cfg *persistence.Configuration) error {
	d := conn.Dialect()
	for _, class := range cfg.Classes() {
		meta, err := cfg.Metadata(class)
		if err != nil {
			return err
		}
		q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id %s, body %s NOT NULL)",
			d.Quote(Collection(meta)), d.IdentityColumn(), d.BlobType())
		if _, err := conn.DB().ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create collection for %s: %w", class, err)
		}
	}
	return nil
}
