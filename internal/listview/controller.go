// Package listview holds the products page logic shared by the terminal
// browser and tests: read the query state, fetch, and keep the displayed
// rows in step with the most recently applied state.
package listview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/me/shopadmin/internal/catalog"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/querystate"
	"github.com/me/shopadmin/pkg/model"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load started after it.
var ErrSuperseded = errors.New("listview: superseded by a newer load")

// Catalog is the subset of catalog.Client the controller uses.
type Catalog interface {
	List(ctx context.Context, p catalog.ListParams) (*model.ProductsPage, error)
	Create(ctx context.Context, in model.ProductInput) (*model.Product, error)
	Update(ctx context.Context, id int, in model.ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id int) (*model.DeleteResult, error)
}

// View is a snapshot of the list for rendering.
type View struct {
	Rows        []model.Product
	Total       int
	Loading     bool
	Error       string
	Query       querystate.ListQuery
	Location    string
	CanShowMore bool
}

// Controller drives one products list. It is safe for concurrent use.
type Controller struct {
	api    Catalog
	qs     *querystate.Synchronizer
	logger *slog.Logger

	mu      sync.Mutex
	rows    []model.Product
	total   int
	loading bool
	errMsg  string
	base    string // encoded state of the committed rows, without skip
	gen     uint64
	cancel  context.CancelFunc
	subs    map[int]func(View)
	nextSub int
}

// New creates a Controller reading its state from qs.
func New(api Catalog, qs *querystate.Synchronizer, logger *slog.Logger) *Controller {
	return &Controller{
		api:    api,
		qs:     qs,
		logger: logging.OrDiscard(logger).With("component", "listview"),
		subs:   map[int]func(View){},
	}
}

// Subscribe registers fn to receive a View after every change. The
// returned func unregisters it.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	v := c.viewLocked()
	fns := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	state := c.qs.State()
	return View{
		Rows:        append([]model.Product(nil), c.rows...),
		Total:       c.total,
		Loading:     c.loading,
		Error:       c.errMsg,
		Query:       querystate.ReadListQuery(state),
		Location:    state.Encode(),
		CanShowMore: len(c.rows) < c.total,
	}
}

// Load fetches the page described by the current query state. Starting a
// load cancels the previous one; a result is committed only while its load
// is still the newest, otherwise ErrSuperseded is returned.
//
// A state with skip > 0 appends the next page only when the committed rows
// are exactly the first skip rows of the same query. Otherwise every row up
// to skip+take is fetched again in one request.
func (c *Controller) Load(ctx context.Context) error {
	state := c.qs.State()
	q := querystate.ReadListQuery(state)
	base := withoutSkip(state)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loading = true
	c.errMsg = ""
	appending := q.Skip > 0 && c.base == base && len(c.rows) == q.Skip
	c.mu.Unlock()
	c.notify()

	params := catalog.ParamsFromQuery(q)
	if q.Skip > 0 && !appending {
		params.Skip = 0
		params.Limit = q.Through()
	}
	page, err := c.api.List(lctx, params)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		cancel()
		return ErrSuperseded
	}
	cancel()
	c.cancel = nil
	if err == nil && appending && len(c.rows) != q.Skip {
		// A save or delete moved the rows while the page was in flight.
		c.mu.Unlock()
		return c.Load(ctx)
	}
	c.loading = false
	if err != nil {
		c.errMsg = gateway.UserMessage(err)
		c.mu.Unlock()
		c.logger.Debug("load failed", "query", state.Encode(), "error", err)
		c.notify()
		return err
	}
	if appending {
		c.rows = append(c.rows, page.Products...)
	} else {
		c.rows = append([]model.Product(nil), page.Products...)
	}
	c.base = base
	c.total = page.Total
	c.mu.Unlock()
	c.notify()
	return nil
}

func withoutSkip(s querystate.State) string {
	return s.Apply(querystate.Patch{querystate.KeySkip: nil}).Encode()
}

// Close cancels any in-flight load.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
}

func (c *Controller) apply(ctx context.Context, patch querystate.Patch) error {
	c.qs.Set(patch)
	return c.Load(ctx)
}

func (c *Controller) query() querystate.ListQuery {
	return querystate.ReadListQuery(c.qs.State())
}

// Search sets the free-text query and returns to the first page.
func (c *Controller) Search(ctx context.Context, q string) error {
	return c.apply(ctx, querystate.Patch{querystate.KeyQuery: q, querystate.KeySkip: nil})
}

// ClearSearch removes the free-text query.
func (c *Controller) ClearSearch(ctx context.Context) error {
	return c.Search(ctx, "")
}

// ToggleSort sorts by field, flipping to descending when field is already
// sorted ascending.
func (c *Controller) ToggleSort(ctx context.Context, field string) error {
	return c.apply(ctx, querystate.Patch{
		querystate.KeySortBy: field,
		querystate.KeyOrder:  c.query().NextOrder(field),
		querystate.KeySkip:   nil,
	})
}

// ShowMore loads the next page and appends it. It is a no-op when every
// row is already shown or while a load is in flight.
func (c *Controller) ShowMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || len(c.rows) >= c.total {
		c.mu.Unlock()
		return nil
	}
	// Claimed before unlocking so a second press sees the load.
	c.loading = true
	q := c.query()
	c.qs.Set(querystate.Patch{querystate.KeySkip: q.Skip + q.Take})
	c.mu.Unlock()
	return c.Load(ctx)
}

// SetPageSize changes take and returns to the first page.
func (c *Controller) SetPageSize(ctx context.Context, take int) error {
	return c.apply(ctx, querystate.Patch{querystate.KeyTake: max(take, 1), querystate.KeySkip: nil})
}

// ApplyFilters writes every filter key and returns to the first page.
func (c *Controller) ApplyFilters(ctx context.Context, f querystate.Filters) error {
	patch := f.Patch()
	patch[querystate.KeySkip] = nil
	return c.apply(ctx, patch)
}

// ClearFilters removes every filter key.
func (c *Controller) ClearFilters(ctx context.Context) error {
	return c.ApplyFilters(ctx, querystate.Filters{})
}

// Save validates form and creates (id == 0) or updates the product. The
// server's copy is prepended on create and replaces the row on update.
// Validation failures return model.FieldErrors without any request.
func (c *Controller) Save(ctx context.Context, id int, form model.ProductForm) (*model.Product, error) {
	in, err := form.Parse()
	if err != nil {
		return nil, err
	}

	var p *model.Product
	if id == 0 {
		p, err = c.api.Create(ctx, in)
	} else {
		p, err = c.api.Update(ctx, id, in)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if id == 0 {
		c.rows = append([]model.Product{*p}, c.rows...)
		c.total++
	} else {
		for i := range c.rows {
			if c.rows[i].ID == id {
				c.rows[i] = *p
				break
			}
		}
	}
	c.mu.Unlock()
	c.notify()
	return p, nil
}

// Remove deletes product id and drops its row.
func (c *Controller) Remove(ctx context.Context, id int) error {
	if _, err := c.api.Delete(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	for i := range c.rows {
		if c.rows[i].ID == id {
			c.rows = append(c.rows[:i:i], c.rows[i+1:]...)
			if c.total > 0 {
				c.total--
			}
			break
		}
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Row returns the displayed product with id.
func (c *Controller) Row(id int) (model.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.rows {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}
