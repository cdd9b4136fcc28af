// SQLite snapshot loader.
//
// DESIGN: The storefront exports its product table to a SQLite file; the
// engine reads it once at startup into an in-memory Snapshot. The database
// is opened read-only; the engine is never a writer of catalog data.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const snapshotQuery = `
SELECT id, name, price_cents, COALESCE(category, ''), COALESCE(brand, '')
FROM products
ORDER BY id ASC`

// LoadSnapshot reads all products from a SQLite catalog export.
func LoadSnapshot(ctx context.Context, path string) (*Snapshot, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, snapshotQuery)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.PriceMin, &it.Category, &it.Brand); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog rows: %w", err)
	}

	log.Info().Int("items", len(items)).Str("path", path).Msg("Catalog snapshot loaded")
	return NewSnapshot(items), nil
}
