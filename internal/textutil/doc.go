// Package textutil provides text cleanup helpers shared by the shelves parser,
// the configuration layer, and the CLI.
//
// The primary use cases are:
//   - Stripping control characters that break HTML parsing of vendor pages
//   - Parsing vote counts printed with thousands separators
//   - Splitting and deduplicating comma separated tag lists
package textutil
