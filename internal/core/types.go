package core

import (
	"fmt"
	"slices"
)

// FieldType represents how a resolved column is coerced.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldInteger:
		return "integer"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Source keys used with the registry.
const (
	SourceInventory = "inventory"
	SourcePurchases = "purchases"
)

// Canonical field names. They double as the output column names.
const (
	ColCode             = "CodigoBarra"
	ColName             = "Nombre"
	ColReference        = "Referencia"
	ColRetailPrice      = "PrecioDetal"
	ColWholesalePrice   = "PrecioMayor"
	ColPromoPrice       = "PrecioPromocion"
	ColCreatedAt        = "CREACION"
	ColStock            = "Existencia"
	ColLocation         = "Tienda"
	ColPurchaseLocation = "NombreGalpon"
	ColDocument         = "Documento"
	ColQuantity         = "Cantidad"
	ColPurchaseDate     = "FechaCompra"
)

// CanonicalField is a target column and the raw header names that may carry it.
type CanonicalField struct {
	Name       string    // Canonical name: "CodigoBarra"
	Type       FieldType // Coercion applied to cells
	Required   bool      // Source ingestion fails if the column cannot be resolved
	Candidates []string  // Aliases in priority order
}

// SourceInfo contains descriptive information about a source.
type SourceInfo struct {
	Key   string // Unique identifier: "inventory"
	Label string // Display name: "Inventory"
}

// SourceDefinition contains everything needed to resolve one source file.
type SourceDefinition struct {
	Info   SourceInfo
	Fields []CanonicalField
}

// Field returns the canonical field with the given name.
func (d SourceDefinition) Field(name string) (CanonicalField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return CanonicalField{}, false
}

// FieldTypeError reports a definition whose field is missing or declared
// with a type the record layout cannot hold.
type FieldTypeError struct {
	Source   string
	Field    string
	Declared FieldType
	Want     FieldType
	Missing  bool
}

func (e *FieldTypeError) Error() string {
	if e.Missing {
		return fmt.Sprintf("field type mismatch: source %s does not define %s", e.Source, e.Field)
	}
	return fmt.Sprintf("field type mismatch: source %s field %s is %s, want %s",
		e.Source, e.Field, e.Declared, e.Want)
}

// CheckTypes verifies that every field named in want is defined with the
// given type.
func (d SourceDefinition) CheckTypes(want map[string]FieldType) error {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		f, ok := d.Field(name)
		if !ok {
			return &FieldTypeError{Source: d.Info.Key, Field: name, Want: want[name], Missing: true}
		}
		if f.Type != want[name] {
			return &FieldTypeError{Source: d.Info.Key, Field: name, Declared: f.Type, Want: want[name]}
		}
	}
	return nil
}

// InventoryRecord is one product row. At most one is emitted per code.
type InventoryRecord struct {
	Code           string `db:"CodigoBarra"`
	Name           string `db:"Nombre"`
	Reference      string `db:"Referencia"`
	RetailPrice    string `db:"PrecioDetal"`
	WholesalePrice string `db:"PrecioMayor"`
	PromoPrice     string `db:"PrecioPromocion"`
	CreatedAt      string `db:"CREACION"`
}

// StockRecord is the quantity of a product at one location.
// Keyed by (Code, Location); later records replace earlier ones.
type StockRecord struct {
	Code     string `db:"CodigoBarra"`
	Location string `db:"Tienda"`
	Quantity int64  `db:"Existencia"`
}

// PurchaseRecord is one purchase line. No identity; duplicates are kept.
type PurchaseRecord struct {
	Location  string `db:"NombreGalpon"`
	Code      string `db:"CodigoBarra"`
	Reference string `db:"Referencia"`
	Name      string `db:"Nombre"`
	Document  string `db:"Documento"`
	Quantity  int64  `db:"Cantidad"`
	Date      string `db:"FechaCompra"`
}

// Counts holds the number of records emitted per output table.
type Counts struct {
	Inventory int `json:"inv_rows"`
	Stock     int `json:"stock_rows"`
	Purchases int `json:"com_rows"`
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Inventory: c.Inventory + o.Inventory,
		Stock:     c.Stock + o.Stock,
		Purchases: c.Purchases + o.Purchases,
	}
}
