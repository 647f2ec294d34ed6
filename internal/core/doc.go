// Package core provides the business logic for turning exported CSV sources
// into relational records.
//
// This package contains all domain logic independent of storage and
// transport. The store, publish and pipeline packages build on it.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Source Definitions: Registered via the registry, each source lists its
//     canonical fields and the header aliases that may carry them.
//   - Resolution: [ResolveSchema] maps canonical fields onto the headers of
//     one file, once, before any row is read.
//   - Streaming: [OpenSource] decodes a gzip CSV lazily and detects its
//     delimiter from a peeked sample.
//   - Ingestion: [Ingestor] turns rows into records and writes them to a sink
//     in batches.
//
// # Source Registry
//
// Sources are registered at init time using [Register]:
//
//	core.Register(SourceDefinition{
//	    Info: SourceInfo{Key: "purchases", Label: "Purchases"},
//	    Fields: []CanonicalField{
//	        {Name: ColCode, Required: true, Candidates: []string{"CodigoBarra", "barcode"}},
//	        {Name: ColQuantity, Type: FieldInteger, Required: true, Candidates: []string{"Cantidad", "qty"}},
//	    },
//	})
//
// # Streaming Ingestion
//
// Ingestion uses O(batch_size) memory regardless of file size. The flow is:
//
//  1. [OpenSource] wraps the file with byte counting, gzip and permissive
//     UTF-8 decoding, then reads the header row
//  2. [ResolveSchema] fails the source if a required field has no column
//  3. Rows are coerced and handed to the sink in batches of [Ingestor.BatchSize]
//
// # Error Handling
//
// Technical errors are mapped to operator messages using [MapError].
// Each error category has a unique code; see error_messages.go.
package core
