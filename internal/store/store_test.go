package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/JonMunkholm/dbexport/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Create(context.Background(), filepath.Join(t.TempDir(), "out", "inventario.db"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func openReadOnly(t *testing.T, path string) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ============================================================================
// Load Tests
// ============================================================================

func TestStore_LoadAndFinalize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inv := []core.InventoryRecord{
		{Code: "123", Name: "Camisa", Reference: "R1", RetailPrice: "10.5"},
		{Code: "456", Name: "Pantalon", Reference: "R2"},
	}
	stock := []core.StockRecord{
		{Code: "123", Location: "Centro", Quantity: 3},
		{Code: "123", Location: "Norte", Quantity: 7},
	}
	purchases := []core.PurchaseRecord{
		{Code: "123", Document: "F-1", Quantity: 12, Date: "2024-01-05"},
		{Code: "123", Document: "F-1", Quantity: 12, Date: "2024-01-05"},
	}

	if err := s.InsertInventory(ctx, inv); err != nil {
		t.Fatalf("InsertInventory() error = %v", err)
	}
	if err := s.UpsertStock(ctx, stock); err != nil {
		t.Fatalf("UpsertStock() error = %v", err)
	}
	// Same key again: last write wins.
	if err := s.UpsertStock(ctx, []core.StockRecord{{Code: "123", Location: "Centro", Quantity: 9}}); err != nil {
		t.Fatalf("UpsertStock() error = %v", err)
	}
	if err := s.CreateInventoryIndexes(ctx); err != nil {
		t.Fatalf("CreateInventoryIndexes() error = %v", err)
	}
	if err := s.InsertPurchases(ctx, purchases); err != nil {
		t.Fatalf("InsertPurchases() error = %v", err)
	}
	if err := s.CreatePurchaseIndexes(ctx); err != nil {
		t.Fatalf("CreatePurchaseIndexes() error = %v", err)
	}
	if err := s.Finalize(ctx); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(s.Path() + suffix); !os.IsNotExist(err) {
			t.Errorf("%s side file left behind (stat err = %v)", suffix, err)
		}
	}

	sum, err := Inspect(ctx, s.Path())
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if sum.Inventory != 2 || sum.Stock != 2 || sum.Purchases != 2 {
		t.Errorf("Summary = %+v, want inv 2 stock 2 com 2", sum)
	}
	if !strings.EqualFold(sum.JournalMode, "delete") {
		t.Errorf("JournalMode = %q, want delete", sum.JournalMode)
	}
	wantIdx := []string{
		"idx_compras_codigo", "idx_compras_doc", "idx_compras_fecha",
		"idx_inv_codigo", "idx_stock_codigo", "idx_stock_tienda",
	}
	if !slices.Equal(sum.Indexes, wantIdx) {
		t.Errorf("Indexes = %v, want %v", sum.Indexes, wantIdx)
	}

	db := openReadOnly(t, s.Path())
	var qty int64
	if err := db.Get(&qty, `SELECT Existencia FROM stock WHERE CodigoBarra = ? AND Tienda = ?`, "123", "Centro"); err != nil {
		t.Fatalf("select stock: %v", err)
	}
	if qty != 9 {
		t.Errorf("stock(123, Centro) = %d, want 9", qty)
	}

	var got core.InventoryRecord
	if err := db.Get(&got, `SELECT * FROM inventarioc WHERE CodigoBarra = ?`, "123"); err != nil {
		t.Fatalf("select inventory: %v", err)
	}
	if got != inv[0] {
		t.Errorf("inventory row = %+v, want %+v", got, inv[0])
	}
}

func TestCreate_ReplacesExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inventario.db")

	for _, name := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.WriteFile(name, []byte("stale"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := Create(ctx, path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Finalize(ctx); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sum, err := Inspect(ctx, path)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if sum.Inventory != 0 || sum.Stock != 0 || sum.Purchases != 0 {
		t.Errorf("Summary = %+v, want empty tables", sum)
	}
}

func TestStore_EmptyBatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertInventory(context.Background(), nil); err != nil {
		t.Errorf("InsertInventory(nil) error = %v", err)
	}
}

// ============================================================================
// Lifecycle Tests
// ============================================================================

func TestStore_ClosedOperations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := s.Finalize(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Finalize() after Close error = %v, want ErrClosed", err)
	}
	err := s.InsertPurchases(ctx, []core.PurchaseRecord{{Code: "1"}})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("InsertPurchases() after Close error = %v, want ErrClosed", err)
	}
	if err == nil || !strings.HasPrefix(err.Error(), "store: ") {
		t.Errorf("error %v should carry the store prefix", err)
	}
}

func TestStore_CloseAfterFinalize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Finalize(ctx); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() after Finalize error = %v", err)
	}
}
