package testsupport

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"shelftags/internal/shelves"
)

// ExampleShelves returns a shelf cloud whose default-mapped result is
// Fantasy 370, Fiction 200, Classics 150, Science Fiction 120, Young Adult 45,
// Non-Fiction 7, Self Help 4.
func ExampleShelves() map[string]int {
	return map[string]int{
		"to-read":         1000,
		"fantasy":         300,
		"fiction":         200,
		"classics":        150,
		"sci-fi-fantasy":  70,
		"science-fiction": 50,
		"young-adult":     30,
		"ya":              15,
		"non-fiction":     7,
		"self-help":       4,
	}
}

// ShelvesPage renders counts in the vendor shelves page markup, highest
// count first.
func ShelvesPage(counts map[string]int) []byte {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	var b strings.Builder
	b.WriteString("<html><body><div class=\"leftContainer\">\n")
	for _, name := range names {
		escaped := html.EscapeString(name)
		fmt.Fprintf(&b, "<div class=\"shelfStat\"><div class=\"left\"><a class=\"mediumText actionLinkLite\" href=\"/shelf/show/%s\">%s</a></div>", escaped, escaped)
		fmt.Fprintf(&b, "<div class=\"smallText\"><a href=\"#\">%s people</a></div></div>\n", groupThousands(counts[name]))
	}
	b.WriteString("</div></body></html>\n")
	return []byte(b.String())
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}

// FakeFetcher serves canned pages by vendor id and records calls. Unknown ids
// fail with shelves.ErrFetch. A non-nil Gate blocks every fetch until it is
// closed or the context ends.
type FakeFetcher struct {
	Pages map[string][]byte
	Delay time.Duration
	Gate  chan struct{}

	mu    sync.Mutex
	calls []string
}

// NewFakeFetcher returns a fetcher serving ShelvesPage(counts) for each id.
func NewFakeFetcher(pages map[string]map[string]int) *FakeFetcher {
	f := &FakeFetcher{Pages: make(map[string][]byte, len(pages))}
	for id, counts := range pages {
		f.Pages[id] = ShelvesPage(counts)
	}
	return f
}

// Fetch implements shelves.Fetcher.
func (f *FakeFetcher) Fetch(ctx context.Context, vendorID string, timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, vendorID)
	f.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", shelves.ErrFetch, vendorID, ctx.Err())
		}
	}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", shelves.ErrFetch, vendorID, ctx.Err())
		}
	}
	page, ok := f.Pages[vendorID]
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected status 404", shelves.ErrFetch, vendorID)
	}
	return page, nil
}

// Calls returns the vendor ids fetched so far, in call order.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
