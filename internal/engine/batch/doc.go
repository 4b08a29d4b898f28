// Package batch chunks large shipment sets for estimation.
//
// A batch file can carry thousands of records. Processing them as one
// slice would build the whole result set before anything is reported, so
// the pipeline walks fixed-size chunks instead:
//   - configurable chunk size (default 100 shipments per chunk)
//   - progress tracking with callbacks for status line updates
//   - context-aware cancellation between chunks
//
// Concurrency lives in the engine, which fans out per shipment and per
// leg; this package only sequences the chunks.
package batch
