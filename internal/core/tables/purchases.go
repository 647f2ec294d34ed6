package tables

import "github.com/JonMunkholm/dbexport/internal/core"

func init() {
	registerPurchases()
}

// registerPurchases registers the purchases export. Every row becomes one
// comprasgalpones row.
func registerPurchases() {
	core.Register(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:   core.SourcePurchases,
			Label: "Purchases",
		},
		Fields: []core.CanonicalField{
			// No alias containing "nombre": the fuzzy pass would match the product name column.
			{Name: core.ColPurchaseLocation, Type: core.FieldText, Candidates: []string{
				"Galpon", "bodega", "almacen", "warehouse",
			}},
			{Name: core.ColCode, Type: core.FieldText, Required: true, Candidates: []string{
				"CodigoBarra", "codigo", "codigobarra", "barcode", "ean",
			}},
			{Name: core.ColReference, Type: core.FieldText, Required: true, Candidates: []string{
				"Referencia", "ref", "reference",
			}},
			{Name: core.ColName, Type: core.FieldText, Required: true, Candidates: []string{
				"NombreProducto", "Nombre", "descripcion", "producto",
				"product_name", "productname", "product",
			}},
			{Name: core.ColDocument, Type: core.FieldText, Required: true, Candidates: []string{
				"Documento", "doc", "numdoc", "document", "invoice", "receipt", "doc_number", "documento",
			}},
			{Name: core.ColQuantity, Type: core.FieldInteger, Required: true, Candidates: []string{
				"Cantidad", "cantidad", "cant", "qty", "quantity",
			}},
			{Name: core.ColPurchaseDate, Type: core.FieldText, Required: true, Candidates: []string{
				"Fecha", "FechaCompra", "fecha_compra", "fecha", "date", "purchase_date",
			}},
		},
	})
}
