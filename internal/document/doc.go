// Package document loads raw content from external sources and turns it
// into uniform Document records for indexing.
//
// Three loaders are provided:
//
//   - WebLoader: fetches a list of URLs and extracts readable page text
//   - SearchLoader: queries Google Programmable Search and builds one
//     document per result snippet
//   - RecordLoader: selects previously stored rows from PostgreSQL
//
// All loaders normalize document text so that runs of consecutive blank
// lines collapse to a single blank line. Network and database failures
// are reported wrapped in ErrSourceUnavailable; a source that responds
// with zero content yields an empty slice and a nil error.
package document
