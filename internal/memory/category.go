package memory

import (
	"strings"
	"time"
)

// Category groups cache keys sharing a prefix and an idle age limit.
type Category struct {
	Name   string
	Prefix string
	MaxAge time.Duration
}

// Built-in category names.
const (
	CategoryTab       = "tab"
	CategoryCalc      = "calc"
	CategoryComponent = "component"
	CategoryList      = "list"
)

// Default idle limits.
const (
	DefaultDataMaxAge      = 5 * time.Minute
	DefaultComponentMaxAge = 10 * time.Minute
)

// DefaultCategories returns the tab, calc, component and list categories with
// their default age limits.
func DefaultCategories() []Category {
	return []Category{
		{Name: CategoryTab, Prefix: "tab-", MaxAge: DefaultDataMaxAge},
		{Name: CategoryCalc, Prefix: "calc-", MaxAge: DefaultDataMaxAge},
		{Name: CategoryComponent, Prefix: "component-", MaxAge: DefaultComponentMaxAge},
		{Name: CategoryList, Prefix: "list-", MaxAge: DefaultComponentMaxAge},
	}
}

// Evictable is anything the reaper can drop keys from.
type Evictable interface {
	// Evict removes key and reports whether it was present.
	Evict(key string) bool
	Has(key string) bool
	// Clear drops everything and returns the number of removed entries.
	Clear() int
	Len() int
}

func categoryFor(cats []Category, key string) (Category, bool) {
	for _, c := range cats {
		if strings.HasPrefix(key, c.Prefix) {
			return c, true
		}
	}
	return Category{}, false
}

func maxCategoryAge(cats []Category) time.Duration {
	var longest time.Duration
	for _, c := range cats {
		if c.MaxAge > longest {
			longest = c.MaxAge
		}
	}
	return longest
}
