package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Summary describes a finished database file.
type Summary struct {
	Inventory   int64    `db:"inv"`
	Stock       int64    `db:"stock"`
	Purchases   int64    `db:"com"`
	JournalMode string   `db:"-"`
	Indexes     []string `db:"-"`
}

const summarySQL = `
	SELECT
		(SELECT COUNT(*) FROM inventarioc)     AS inv,
		(SELECT COUNT(*) FROM stock)           AS stock,
		(SELECT COUNT(*) FROM comprasgalpones) AS com`

// Inspect opens the database at path read-only and reports persisted row
// counts, the journal mode and the names of the secondary indexes.
func Inspect(ctx context.Context, path string) (Summary, error) {
	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return Summary{}, fmt.Errorf("store: inspect %s: %w", path, err)
	}
	defer db.Close()

	var s Summary
	if err := db.GetContext(ctx, &s, summarySQL); err != nil {
		return Summary{}, fmt.Errorf("store: inspect %s: %w", path, err)
	}
	if err := db.GetContext(ctx, &s.JournalMode, "PRAGMA journal_mode"); err != nil {
		return Summary{}, fmt.Errorf("store: inspect %s: %w", path, err)
	}
	if err := db.SelectContext(ctx, &s.Indexes,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%' ORDER BY name`); err != nil {
		return Summary{}, fmt.Errorf("store: inspect %s: %w", path, err)
	}
	return s, nil
}
