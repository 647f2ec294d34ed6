package store

// Table names are consumed by the mobile client and must not change.
const (
	TableInventory = "inventarioc"
	TableStock     = "stock"
	TablePurchases = "comprasgalpones"
)

// loadPragmas relax durability while the store is built. The file is
// recreated from scratch every run, so a crash only loses a rebuildable file.
var loadPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=OFF",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA cache_size=-20000",
}

var schemaStatements = []string{
	`DROP TABLE IF EXISTS inventarioc`,
	`DROP TABLE IF EXISTS stock`,
	`DROP TABLE IF EXISTS comprasgalpones`,
	`CREATE TABLE inventarioc (
		CodigoBarra     TEXT,
		Nombre          TEXT,
		Referencia      TEXT,
		PrecioDetal     TEXT,
		PrecioMayor     TEXT,
		PrecioPromocion TEXT,
		CREACION        TEXT
	)`,
	`CREATE TABLE stock (
		CodigoBarra TEXT NOT NULL,
		Tienda      TEXT NOT NULL,
		Existencia  INTEGER NOT NULL,
		PRIMARY KEY (CodigoBarra, Tienda)
	)`,
	`CREATE TABLE comprasgalpones (
		NombreGalpon TEXT,
		CodigoBarra  TEXT,
		Referencia   TEXT,
		Nombre       TEXT,
		Documento    TEXT,
		Cantidad     INTEGER,
		FechaCompra  TEXT
	)`,
}

const insertInventorySQL = `
	INSERT INTO inventarioc
		(CodigoBarra, Nombre, Referencia, PrecioDetal, PrecioMayor, PrecioPromocion, CREACION)
	VALUES
		(:CodigoBarra, :Nombre, :Referencia, :PrecioDetal, :PrecioMayor, :PrecioPromocion, :CREACION)`

const upsertStockSQL = `
	INSERT OR REPLACE INTO stock
		(CodigoBarra, Tienda, Existencia)
	VALUES
		(:CodigoBarra, :Tienda, :Existencia)`

const insertPurchaseSQL = `
	INSERT INTO comprasgalpones
		(NombreGalpon, CodigoBarra, Referencia, Nombre, Documento, Cantidad, FechaCompra)
	VALUES
		(:NombreGalpon, :CodigoBarra, :Referencia, :Nombre, :Documento, :Cantidad, :FechaCompra)`

// Indexes are created after the bulk load of the tables they cover.
var inventoryIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_inv_codigo ON inventarioc (CodigoBarra)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_codigo ON stock (CodigoBarra)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_tienda ON stock (Tienda)`,
}

var purchaseIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_compras_codigo ON comprasgalpones (CodigoBarra)`,
	`CREATE INDEX IF NOT EXISTS idx_compras_fecha ON comprasgalpones (FechaCompra DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_compras_doc ON comprasgalpones (Documento)`,
}
