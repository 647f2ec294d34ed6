package tables

import "github.com/JonMunkholm/dbexport/internal/core"

func init() {
	registerInventory()
}

// registerInventory registers the inventory export. One row per product and
// location; it feeds both inventarioc and stock.
func registerInventory() {
	core.Register(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:   core.SourceInventory,
			Label: "Inventory",
		},
		Fields: []core.CanonicalField{
			{Name: core.ColCode, Type: core.FieldText, Required: true, Candidates: []string{
				"CodigoBarra", "codigo", "codigobarra", "codigo_barras", "codigodebarras", "barcode", "ean",
			}},
			{Name: core.ColReference, Type: core.FieldText, Required: true, Candidates: []string{
				"Referencia", "ref", "reference",
			}},
			{Name: core.ColName, Type: core.FieldText, Required: true, Candidates: []string{
				"NombreProducto", "Nombre", "descripcion", "producto", "nombre_producto",
				"product_name", "productname", "product",
			}},
			{Name: core.ColRetailPrice, Type: core.FieldText, Candidates: []string{
				"PrecioDetal", "precio_detal", "precioventa", "precio",
				"price_detal", "price", "retail_price", "unit_price",
			}},
			{Name: core.ColWholesalePrice, Type: core.FieldText, Candidates: []string{
				"PrecioMayor", "precio_mayor", "mayor", "price_mayor", "wholesale_price",
			}},
			{Name: core.ColPromoPrice, Type: core.FieldText, Candidates: []string{
				"PrecioPromocion", "promo", "promocion", "preciopromocion",
				"price_promo", "promo_price", "discount_price",
			}},
			// Kept to a single alias: "fecha" or "date" would match purchase-style headers.
			{Name: core.ColCreatedAt, Type: core.FieldText, Candidates: []string{
				"CREACION",
			}},
			{Name: core.ColStock, Type: core.FieldInteger, Required: true, Candidates: []string{
				"ExistenciaPorTienda", "Existencia", "stock", "existencias", "cantidad", "qty", "quantity",
			}},
			{Name: core.ColLocation, Type: core.FieldText, Required: true, Candidates: []string{
				"Tienda", "NombreTienda", "sucursal", "almacen", "bodega", "galpon",
				"store_name", "store", "shop", "branch",
			}},
		},
	})
}
