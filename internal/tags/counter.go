package tags

import (
	"fmt"
	"sort"
	"strings"
)

// Counter maps tag names to accumulated vote counts.
type Counter struct {
	counts map[string]int
	order  []string
}

// Ranked is a single rank lookup result. OK is false when the counter holds
// fewer entries than the requested rank.
type Ranked struct {
	Rank  int
	Tag   string
	Count int
	OK    bool
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add accumulates count into the running total for tag.
func (c *Counter) Add(tag string, count int) {
	if count < 0 {
		count = 0
	}
	if _, ok := c.counts[tag]; !ok {
		c.order = append(c.order, tag)
	}
	c.counts[tag] += count
}

// Count returns the accumulated votes for tag.
func (c *Counter) Count(tag string) (int, bool) {
	n, ok := c.counts[tag]
	return n, ok
}

// Len reports the number of tags held.
func (c *Counter) Len() int {
	return len(c.counts)
}

// ApplyThreshold removes every entry whose count is strictly below min.
func (c *Counter) ApplyThreshold(min float64) {
	kept := c.order[:0]
	for _, tag := range c.order {
		if float64(c.counts[tag]) < min {
			delete(c.counts, tag)
			continue
		}
		kept = append(kept, tag)
	}
	c.order = kept
}

// Ranked returns every entry ordered by descending count. Ties keep
// insertion order.
func (c *Counter) Ranked() []Ranked {
	out := make([]Ranked, 0, len(c.order))
	for _, tag := range c.order {
		out = append(out, Ranked{Tag: tag, Count: c.counts[tag], OK: true})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// RankedPositions selects the entries at the given 1-based ranks. This is a
// selection, not a prefix: ranks past the end come back with OK unset.
func (c *Counter) RankedPositions(ranks []int) []Ranked {
	all := c.Ranked()
	out := make([]Ranked, len(ranks))
	for i, rank := range ranks {
		if rank < 1 || rank > len(all) {
			out[i] = Ranked{Rank: rank}
			continue
		}
		out[i] = all[rank-1]
	}
	return out
}

// Tags returns the tag names sorted alphabetically.
func (c *Counter) Tags() []string {
	out := make([]string, 0, len(c.counts))
	for tag := range c.counts {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Snapshot copies the current counts.
func (c *Counter) Snapshot() map[string]int {
	out := make(map[string]int, len(c.counts))
	for tag, n := range c.counts {
		out[tag] = n
	}
	return out
}

// String renders the counter ranked, e.g. "Fantasy=370 Fiction=200".
func (c *Counter) String() string {
	ranked := c.Ranked()
	parts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		parts = append(parts, fmt.Sprintf("%s=%d", r.Tag, r.Count))
	}
	return strings.Join(parts, " ")
}

// PercentageBase averages the counts of the present entries. It returns 0
// when every requested rank was missing.
func PercentageBase(ranked []Ranked) float64 {
	var (
		sum     int
		present int
	)
	for _, r := range ranked {
		if !r.OK {
			continue
		}
		sum += r.Count
		present++
	}
	if present == 0 {
		return 0
	}
	return float64(sum) / float64(present)
}
