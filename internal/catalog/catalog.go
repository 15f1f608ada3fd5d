// Package catalog is the typed products API, bound to a session.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/querystate"
	"github.com/me/shopadmin/pkg/model"
)

// Session supplies the bearer token and is cleared when the API rejects it.
type Session interface {
	Token() string
	Logout(ctx context.Context) error
}

// StaticToken is a Session holding a fixed token, for callers that manage
// expiry themselves.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token() string { return string(t) }

// Logout is a no-op.
func (StaticToken) Logout(context.Context) error { return nil }

// Client calls the products API with the session's token. On a 401 it logs
// the session out and then runs the expiry hook.
type Client struct {
	gw        *gateway.Client
	session   Session
	onExpired func()
	logger    *slog.Logger
}

// New binds gw to session. onExpired may be nil.
func New(gw *gateway.Client, session Session, onExpired func(), logger *slog.Logger) *Client {
	return &Client{
		gw:        gw,
		session:   session,
		onExpired: onExpired,
		logger:    logging.OrDiscard(logger).With("component", "catalog"),
	}
}

// authed builds the per-call options: current token, and a 401 hook that
// clears the session before notifying the caller.
func (c *Client) authed(ctx context.Context) gateway.Options {
	return gateway.Options{
		Token: c.session.Token(),
		OnUnauthorized: func() {
			c.logger.Warn("session rejected by API, logging out")
			if err := c.session.Logout(context.WithoutCancel(ctx)); err != nil {
				c.logger.Error("logout after 401", "error", err)
			}
			if c.onExpired != nil {
				c.onExpired()
			}
		},
	}
}

// ListParams selects one page of products.
type ListParams struct {
	Q        string
	SortBy   string
	Order    string
	Limit    int
	Skip     int
	Category string
	Brand    string
	PriceMin string
	PriceMax string
}

// ParamsFromQuery maps a list view's query state onto API parameters.
func ParamsFromQuery(q querystate.ListQuery) ListParams {
	return ListParams{
		Q:        strings.TrimSpace(q.Q),
		SortBy:   q.SortBy,
		Order:    q.Order,
		Limit:    q.Take,
		Skip:     q.Skip,
		Category: strings.TrimSpace(q.Filters.Category),
		Brand:    strings.TrimSpace(q.Filters.Brand),
		PriceMin: strings.TrimSpace(q.Filters.PriceMin),
		PriceMax: strings.TrimSpace(q.Filters.PriceMax),
	}
}

// request picks the endpoint for p: search when q is set, the category
// collection when only a category filter is set, else the full collection.
// Remaining filters are forwarded as query parameters.
func (p ListParams) request() gateway.Request {
	v := url.Values{}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("skip", strconv.Itoa(max(p.Skip, 0)))
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
		order := p.Order
		if order == "" {
			order = querystate.OrderAsc
		}
		v.Set("order", order)
	}
	if p.Brand != "" {
		v.Set("brand", p.Brand)
	}
	if p.PriceMin != "" {
		v.Set("priceMin", p.PriceMin)
	}
	if p.PriceMax != "" {
		v.Set("priceMax", p.PriceMax)
	}

	path := "/products"
	switch {
	case p.Q != "":
		path = "/products/search"
		v.Set("q", p.Q)
		if p.Category != "" {
			v.Set("category", p.Category)
		}
	case p.Category != "":
		path = "/products/category/" + url.PathEscape(p.Category)
	}
	return gateway.Request{Method: http.MethodGet, Path: path, Query: v}
}

// List fetches one page of products.
func (c *Client) List(ctx context.Context, p ListParams) (*model.ProductsPage, error) {
	page, err := gateway.Call[model.ProductsPage](ctx, c.gw, p.request(), c.authed(ctx))
	if err != nil {
		return nil, err
	}
	if page.Products == nil {
		page.Products = []model.Product{}
	}
	return &page, nil
}

// Get fetches a single product.
func (c *Client) Get(ctx context.Context, id int) (*model.Product, error) {
	p, err := gateway.Call[model.Product](ctx, c.gw, gateway.Request{
		Method: http.MethodGet,
		Path:   productPath(id),
	}, c.authed(ctx))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create adds a product and returns the server's copy.
func (c *Client) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	p, err := gateway.Call[model.Product](ctx, c.gw, gateway.Request{
		Method: http.MethodPost,
		Path:   "/products/add",
		Body:   in,
	}, c.authed(ctx))
	if err != nil {
		return nil, err
	}
	c.logger.Info("product created", "id", p.ID, "title", p.Title)
	return &p, nil
}

// Update replaces the editable fields of product id.
func (c *Client) Update(ctx context.Context, id int, in model.ProductInput) (*model.Product, error) {
	p, err := gateway.Call[model.Product](ctx, c.gw, gateway.Request{
		Method: http.MethodPut,
		Path:   productPath(id),
		Body:   in,
	}, c.authed(ctx))
	if err != nil {
		return nil, err
	}
	c.logger.Info("product updated", "id", id)
	return &p, nil
}

// Delete removes product id.
func (c *Client) Delete(ctx context.Context, id int) (*model.DeleteResult, error) {
	res, err := gateway.Call[model.DeleteResult](ctx, c.gw, gateway.Request{
		Method: http.MethodDelete,
		Path:   productPath(id),
	}, c.authed(ctx))
	if err != nil {
		return nil, err
	}
	if res.ID == 0 {
		res.ID = id
	}
	c.logger.Info("product deleted", "id", id)
	return &res, nil
}

// Categories lists the category slugs offered by the filter controls.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	return gateway.Call[[]string](ctx, c.gw, gateway.Request{
		Method: http.MethodGet,
		Path:   "/products/category-list",
		Quiet:  true,
	}, c.authed(ctx))
}

func productPath(id int) string {
	return "/products/" + strconv.Itoa(id)
}

// Login exchanges credentials for a bearer token. It sends no token and a
// 401 here means bad credentials, so no session is touched.
func Login(ctx context.Context, gw *gateway.Client, username, password string) (string, error) {
	resp, err := gateway.Call[model.LoginResponse](ctx, gw, gateway.Request{
		Method: http.MethodPost,
		Path:   "/user/login",
		Body:   model.LoginRequest{Username: username, Password: password},
	}, gateway.Options{})
	if err != nil {
		return "", err
	}
	token := resp.BearerToken()
	if token == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return token, nil
}

// Login exchanges credentials using c's gateway. See Login.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	return Login(ctx, c.gw, username, password)
}
