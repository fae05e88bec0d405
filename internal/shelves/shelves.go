package shelves

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFetch marks failures retrieving a shelves page.
	ErrFetch = errors.New("shelves fetch failed")
	// ErrParse marks pages that could not be turned into shelf counts.
	ErrParse = errors.New("shelves parse failed")
)

// Fetcher retrieves the raw shelves page for a vendor identifier.
type Fetcher interface {
	Fetch(ctx context.Context, vendorID string, timeout time.Duration) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, vendorID string, timeout time.Duration) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, vendorID string, timeout time.Duration) ([]byte, error) {
	return f(ctx, vendorID, timeout)
}

// Parser extracts shelf name to vote count pairs from a raw page.
type Parser interface {
	Parse(raw []byte) (map[string]int, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(raw []byte) (map[string]int, error)

// Parse calls f.
func (f ParserFunc) Parse(raw []byte) (map[string]int, error) {
	return f(raw)
}
