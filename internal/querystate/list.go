package querystate

import (
	"math"
	"strconv"
	"strings"
)

// Recognized keys.
const (
	KeyQuery    = "q"
	KeySortBy   = "sortBy"
	KeyOrder    = "order"
	KeyTake     = "take"
	KeySkip     = "skip"
	KeyCategory = "category"
	KeyBrand    = "brand"
	KeyPriceMin = "priceMin"
	KeyPriceMax = "priceMax"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// DefaultTake is the page size used when take is absent or invalid.
const DefaultTake = 10

// Getter is anything that reads a key with a fallback.
type Getter interface {
	Get(key, fallback string) string
}

// Int parses raw as an integer. Unparsable, non-finite or out of range
// input (beyond ±math.MaxInt32) yields def; fractional input is truncated;
// the result is never below min.
func Int(raw string, def, min int) int {
	n, ok := parseInt(raw)
	if !ok {
		n = def
	}
	if n < min {
		return min
	}
	return n
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Filters are the free-form filter keys. Empty fields are inactive.
type Filters struct {
	Category string
	Brand    string
	PriceMin string
	PriceMax string
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return f != Filters{}
}

// Patch writes every filter key, deleting empty ones.
func (f Filters) Patch() Patch {
	return Patch{
		KeyCategory: strings.TrimSpace(f.Category),
		KeyBrand:    strings.TrimSpace(f.Brand),
		KeyPriceMin: strings.TrimSpace(f.PriceMin),
		KeyPriceMax: strings.TrimSpace(f.PriceMax),
	}
}

// ListQuery is the coerced view of a products list state.
type ListQuery struct {
	Q       string
	SortBy  string
	Order   string
	Take    int
	Skip    int
	Filters Filters
}

// ReadListQuery reads and clamps the list keys from g.
func ReadListQuery(g Getter) ListQuery {
	order := g.Get(KeyOrder, OrderAsc)
	if order != OrderDesc {
		order = OrderAsc
	}
	return ListQuery{
		Q:      g.Get(KeyQuery, ""),
		SortBy: g.Get(KeySortBy, ""),
		Order:  order,
		Take:   Int(g.Get(KeyTake, ""), DefaultTake, 1),
		Skip:   Int(g.Get(KeySkip, ""), 0, 0),
		Filters: Filters{
			Category: g.Get(KeyCategory, ""),
			Brand:    g.Get(KeyBrand, ""),
			PriceMin: g.Get(KeyPriceMin, ""),
			PriceMax: g.Get(KeyPriceMax, ""),
		},
	}
}

// Through is the number of rows the view shows once its current page is
// loaded: skip+take, capped at math.MaxInt32.
func (q ListQuery) Through() int {
	return min(q.Skip+q.Take, math.MaxInt32)
}

// NextOrder is the order a sort toggle on field produces: desc only when
// field is already sorted ascending.
func (q ListQuery) NextOrder(field string) string {
	if q.SortBy == field && q.Order == OrderAsc {
		return OrderDesc
	}
	return OrderAsc
}

// SortMark returns an arrow for field's header, or "".
func (q ListQuery) SortMark(field string) string {
	if q.SortBy != field {
		return ""
	}
	if q.Order == OrderDesc {
		return "↓"
	}
	return "↑"
}

// Href builds path?query for state with patch applied.
func Href(path string, s State, patch Patch) string {
	enc := s.Apply(patch).Encode()
	if enc == "" {
		return path
	}
	return path + "?" + enc
}
