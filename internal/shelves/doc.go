// Package shelves retrieves and parses vendor "shelves" pages: the community
// tag cloud listing each shelf name with the number of readers who used it.
//
// Fetcher and Parser are the pluggable collaborators the worker depends on.
// HTTPFetcher and HTMLParser are the default implementations; failures are
// wrapped with ErrFetch and ErrParse so callers can classify them with
// errors.Is.
package shelves
