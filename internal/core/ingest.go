package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/dbexport/internal/logging"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 1000

// ProgressLogInterval is how often (in rows) read progress is logged.
var ProgressLogInterval = 100000

// Field types each record layout reads. A definition must declare every
// listed field with the same type.
var (
	inventoryFieldTypes = map[string]FieldType{
		ColCode:           FieldText,
		ColName:           FieldText,
		ColReference:      FieldText,
		ColRetailPrice:    FieldText,
		ColWholesalePrice: FieldText,
		ColPromoPrice:     FieldText,
		ColCreatedAt:      FieldText,
		ColStock:          FieldInteger,
		ColLocation:       FieldText,
	}
	purchaseFieldTypes = map[string]FieldType{
		ColPurchaseLocation: FieldText,
		ColCode:             FieldText,
		ColReference:        FieldText,
		ColName:             FieldText,
		ColDocument:         FieldText,
		ColQuantity:         FieldInteger,
		ColPurchaseDate:     FieldText,
	}
)

// InventorySink receives the records derived from an inventory source.
type InventorySink interface {
	InsertInventory(ctx context.Context, records []InventoryRecord) error
	UpsertStock(ctx context.Context, records []StockRecord) error
}

// PurchaseSink receives the records derived from a purchases source.
type PurchaseSink interface {
	InsertPurchases(ctx context.Context, records []PurchaseRecord) error
}

// Ingestor streams sources into sinks in fixed-size batches.
type Ingestor struct {
	BatchSize  int // Records per bulk write (default: DefaultBatchSize)
	SampleSize int // Bytes sampled for dialect detection (default: DefaultSampleSize)
}

// NewIngestor creates an ingestor with the given batch and sample sizes.
// Non-positive values select the defaults.
func NewIngestor(batchSize, sampleSize int) *Ingestor {
	return &Ingestor{BatchSize: batchSize, SampleSize: sampleSize}
}

// open checks def against the record layout, opens a source and resolves
// def against its header. No row has been read when it returns.
func (in *Ingestor) open(ctx context.Context, path string, def SourceDefinition, types map[string]FieldType) (*Source, *ResolvedSchema, error) {
	if err := def.CheckTypes(types); err != nil {
		return nil, nil, err
	}

	src, err := OpenSource(path, in.SampleSize)
	if err != nil {
		return nil, nil, err
	}

	schema, err := ResolveSchema(def, src.Header)
	if err != nil {
		src.Close()
		return nil, nil, err
	}

	logging.WithFields(ctx, "source", def.Info.Key).Info("columns resolved",
		"file", path,
		"delimiter", string(src.Dialect.Delimiter),
		"headers", src.Header,
		"mapping", schema,
	)

	return src, schema, nil
}

// IngestInventory reads an inventory source.
//
// Rows with an empty code are skipped. The first row for a code produces
// the InventoryRecord; later rows for that code only contribute stock.
// Every row with a non-empty location produces a StockRecord.
func (in *Ingestor) IngestInventory(ctx context.Context, path string, def SourceDefinition, sink InventorySink) (Counts, error) {
	src, schema, err := in.open(ctx, path, def, inventoryFieldTypes)
	if err != nil {
		return Counts{}, err
	}
	defer src.Close()

	inv := newBatch(in.BatchSize, sink.InsertInventory)
	stock := newBatch(in.BatchSize, sink.UpsertStock)
	seen := make(map[string]struct{})

	err = in.scan(ctx, src, func(row []string) error {
		code := schema.Text(row, ColCode)
		if code == "" {
			return nil
		}

		if _, dup := seen[code]; !dup {
			seen[code] = struct{}{}
			if err := inv.add(ctx, InventoryRecord{
				Code:           code,
				Name:           schema.Text(row, ColName),
				Reference:      schema.Text(row, ColReference),
				RetailPrice:    schema.Text(row, ColRetailPrice),
				WholesalePrice: schema.Text(row, ColWholesalePrice),
				PromoPrice:     schema.Text(row, ColPromoPrice),
				CreatedAt:      schema.Text(row, ColCreatedAt),
			}); err != nil {
				return fmt.Errorf("insert inventory: %w", err)
			}
		}

		if location := schema.Text(row, ColLocation); location != "" {
			if err := stock.add(ctx, StockRecord{
				Code:     code,
				Location: location,
				Quantity: schema.Int(row, ColStock),
			}); err != nil {
				return fmt.Errorf("upsert stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}

	if err := inv.drain(ctx); err != nil {
		return Counts{}, fmt.Errorf("insert inventory: %w", err)
	}
	if err := stock.drain(ctx); err != nil {
		return Counts{}, fmt.Errorf("upsert stock: %w", err)
	}

	return Counts{Inventory: inv.emitted, Stock: stock.emitted}, nil
}

// IngestPurchases reads a purchases source. Every row produces a PurchaseRecord.
func (in *Ingestor) IngestPurchases(ctx context.Context, path string, def SourceDefinition, sink PurchaseSink) (Counts, error) {
	src, schema, err := in.open(ctx, path, def, purchaseFieldTypes)
	if err != nil {
		return Counts{}, err
	}
	defer src.Close()

	purchases := newBatch(in.BatchSize, sink.InsertPurchases)

	err = in.scan(ctx, src, func(row []string) error {
		if err := purchases.add(ctx, PurchaseRecord{
			Location:  schema.Text(row, ColPurchaseLocation),
			Code:      schema.Text(row, ColCode),
			Reference: schema.Text(row, ColReference),
			Name:      schema.Text(row, ColName),
			Document:  schema.Text(row, ColDocument),
			Quantity:  schema.Int(row, ColQuantity),
			Date:      schema.Text(row, ColPurchaseDate),
		}); err != nil {
			return fmt.Errorf("insert purchases: %w", err)
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}

	if err := purchases.drain(ctx); err != nil {
		return Counts{}, fmt.Errorf("insert purchases: %w", err)
	}

	return Counts{Purchases: purchases.emitted}, nil
}

// scan calls fn for every record of src, checking ctx periodically.
func (in *Ingestor) scan(ctx context.Context, src *Source, fn func([]string) error) error {
	logger := logging.WithFields(ctx, "file", src.Path)
	start := time.Now()

	rows := 0
	for {
		if rows%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("ingest %s cancelled: %w", src.Path, err)
			}
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		rows++

		if err := fn(row); err != nil {
			return fmt.Errorf("%s line %d: %w", src.Path, src.Line(), err)
		}

		if rows%ProgressLogInterval == 0 {
			logger.Debug("ingest progress", "rows", rows, "bytes_read", src.BytesRead(), "percent", src.Progress())
		}
	}

	logger.Info("source read", "rows", rows, "bytes_read", src.BytesRead(), "duration", time.Since(start))
	return nil
}
