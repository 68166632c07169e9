// Package listopt pages, searches and sorts large in-memory collections
// without recomputing derived state on every page request.
package listopt

import (
	"sort"
	"strings"
	"sync"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

const (
	defaultPageSize      = 20
	defaultPageCacheSize = 10
)

// Less reports whether a sorts before b.
type Less[T any] func(a, b T) bool

// Options configures a Pager.
type Options[T any] struct {
	PageSize     int
	EnableSearch bool
	// SearchFields extract the text matched by Search.
	SearchFields []func(T) string
	EnableSort   bool
	// SortFields maps a sort key to its ascending comparator.
	SortFields      map[string]Less[T]
	EnablePageCache bool
	// PageCacheSize bounds the page cache; oldest cached page goes first.
	PageCacheSize int
}

// PageInfo describes the current page position.
type PageInfo struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
	TotalItems int    `json:"total_items"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
	SearchTerm string `json:"search,omitempty"`
	SortKey    string `json:"sort,omitempty"`
	SortDir    string `json:"dir,omitempty"`
}

// Pager presents a collection through search, sort and fixed-size pages.
// The backing slice is never modified.
type Pager[T any] struct {
	mu   sync.Mutex
	opts Options[T]

	items    []T
	filtered []T
	current  int

	term    string
	sortKey string
	sortDir string

	pageCache map[int][]T
	// cacheOrder is insertion order of cached pages; index 0 is evicted first.
	cacheOrder []int
}

// New creates a pager over items.
func New[T any](items []T, opts Options[T]) *Pager[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.PageCacheSize <= 0 {
		opts.PageCacheSize = defaultPageCacheSize
	}
	p := &Pager[T]{
		opts:      opts,
		items:     items,
		current:   1,
		pageCache: make(map[int][]T),
	}
	p.filtered = p.items
	return p
}

// SetItems replaces the backing collection, keeping the active search and sort.
func (p *Pager[T]) SetItems(items []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
	p.refilter()
	p.current = p.clamp(p.current)
}

// Search filters items by case-insensitive substring match across the search
// fields. Only the empty term restores the full collection; whitespace is
// matched literally. It is a no-op when search is disabled.
func (p *Pager[T]) Search(term string) {
	if !p.opts.EnableSearch {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term = term
	p.refilter()
	p.current = 1
}

// Sort orders the filtered items by key. Equal elements keep their relative
// order in either direction. Unknown keys and disabled sorting are no-ops.
func (p *Pager[T]) Sort(key, direction string) {
	if !p.opts.EnableSort {
		return
	}
	if _, ok := p.opts.SortFields[key]; !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sortKey = key
	p.sortDir = normalizeDir(direction)
	p.applySort()
	p.resetCache()
}

// refilter recomputes the filtered view from items. Caller holds mu.
func (p *Pager[T]) refilter() {
	if p.term == "" || len(p.opts.SearchFields) == 0 {
		p.filtered = p.items
	} else {
		needle := strings.ToLower(p.term)
		out := make([]T, 0, len(p.items))
		for _, it := range p.items {
			if p.matches(it, needle) {
				out = append(out, it)
			}
		}
		p.filtered = out
	}
	if p.sortKey != "" {
		p.applySort()
	}
	p.resetCache()
}

func (p *Pager[T]) matches(it T, needle string) bool {
	for _, field := range p.opts.SearchFields {
		if strings.Contains(strings.ToLower(field(it)), needle) {
			return true
		}
	}
	return false
}

// applySort sorts a private copy of filtered. Caller holds mu.
func (p *Pager[T]) applySort() {
	less := p.opts.SortFields[p.sortKey]
	if less == nil {
		return
	}
	sorted := make([]T, len(p.filtered))
	copy(sorted, p.filtered)
	if p.sortDir == Desc {
		sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[j], sorted[i]) })
	} else {
		sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	}
	p.filtered = sorted
}

func normalizeDir(d string) string {
	if strings.EqualFold(d, Desc) {
		return Desc
	}
	return Asc
}

// GetPage returns page n, clamped into [1, TotalPages]. An empty collection
// yields an empty page for any n.
func (p *Pager[T]) GetPage(n int) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page(n)
}

// page does the work of GetPage. Caller holds mu.
func (p *Pager[T]) page(n int) []T {
	total := p.totalPages()
	if total == 0 {
		return []T{}
	}
	n = p.clamp(n)

	if p.opts.EnablePageCache {
		if cached, ok := p.pageCache[n]; ok {
			metrics.ListPageRequests.WithLabelValues("hit").Inc()
			return append([]T(nil), cached...)
		}
		metrics.ListPageRequests.WithLabelValues("miss").Inc()
	}

	start := (n - 1) * p.opts.PageSize
	end := start + p.opts.PageSize
	if end > len(p.filtered) {
		end = len(p.filtered)
	}
	out := make([]T, end-start)
	copy(out, p.filtered[start:end])

	if p.opts.EnablePageCache {
		p.cachePage(n, out)
		return append([]T(nil), out...)
	}
	return out
}

func (p *Pager[T]) cachePage(n int, items []T) {
	p.pageCache[n] = items
	p.cacheOrder = append(p.cacheOrder, n)
	for len(p.cacheOrder) > p.opts.PageCacheSize {
		oldest := p.cacheOrder[0]
		p.cacheOrder = p.cacheOrder[1:]
		delete(p.pageCache, oldest)
	}
}

// CurrentItems returns the items on the current page.
func (p *Pager[T]) CurrentItems() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page(p.current)
}

// SetCurrentPage moves to page n, clamped into range.
func (p *Pager[T]) SetCurrentPage(n int) {
	p.mu.Lock()
	p.current = p.clamp(n)
	p.mu.Unlock()
}

// CurrentPage returns the current page number.
func (p *Pager[T]) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// TotalPages returns ceil(filtered / page size).
func (p *Pager[T]) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPages()
}

func (p *Pager[T]) totalPages() int {
	return (len(p.filtered) + p.opts.PageSize - 1) / p.opts.PageSize
}

// clamp keeps n inside [1, totalPages]; with no pages it returns 1.
func (p *Pager[T]) clamp(n int) int {
	total := p.totalPages()
	if n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	return n
}

// TotalItems returns the number of items after search.
func (p *Pager[T]) TotalItems() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.filtered)
}

// Filtered returns a copy of the searched and sorted view.
func (p *Pager[T]) Filtered() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.filtered...)
}

// Goto moves to page n and returns that page with the matching position in
// one step, so concurrent readers of a shared pager never see each other's
// page. n <= 0 stays on the current page.
func (p *Pager[T]) Goto(n int) ([]T, PageInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.current = p.clamp(n)
	}
	return p.page(p.current), p.info()
}

// Info returns the current page position.
func (p *Pager[T]) Info() PageInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info()
}

func (p *Pager[T]) info() PageInfo {
	total := p.totalPages()
	return PageInfo{
		Page:       p.current,
		PageSize:   p.opts.PageSize,
		TotalPages: total,
		TotalItems: len(p.filtered),
		HasNext:    p.current < total,
		HasPrev:    p.current > 1,
		SearchTerm: p.term,
		SortKey:    p.sortKey,
		SortDir:    p.sortDir,
	}
}

// CachedPages returns the page numbers currently cached, oldest first.
func (p *Pager[T]) CachedPages() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.cacheOrder...)
}

// ClearCache drops cached pages but keeps the filtered view.
func (p *Pager[T]) ClearCache() {
	p.mu.Lock()
	p.resetCache()
	p.mu.Unlock()
}

func (p *Pager[T]) resetCache() {
	p.pageCache = make(map[int][]T)
	p.cacheOrder = nil
}
