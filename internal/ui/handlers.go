package ui

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/shopadmin/internal/catalog"
	"github.com/me/shopadmin/internal/debounce"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/querystate"
	"github.com/me/shopadmin/internal/session"
	"github.com/me/shopadmin/internal/store"
	"github.com/me/shopadmin/pkg/model"
)

// Notification keys carried next to the list state in redirects.
const (
	keyNotice = "notice"
	keyError  = "error"
)

// UI handles the web user interface.
type UI struct {
	sessions *Sessions
	gw       *gateway.Client
	logger   *slog.Logger
	pageSize int
	debounce time.Duration
}

// Config holds UI configuration.
type Config struct {
	Secure     bool // Use secure cookies for HTTPS
	SessionTTL time.Duration
	PageSize   int
	Debounce   time.Duration
}

// New creates a new UI handler.
func New(st store.Store, gw *gateway.Client, logger *slog.Logger, cfg Config) *UI {
	if cfg.PageSize <= 0 {
		cfg.PageSize = querystate.DefaultTake
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = debounce.DefaultDelay
	}
	return &UI{
		sessions: NewSessions(st, cfg.SessionTTL, cfg.Secure),
		gw:       gw,
		logger:   logging.OrDiscard(logger).With("component", "ui"),
		pageSize: cfg.PageSize,
		debounce: cfg.Debounce,
	}
}

// Sessions returns the session keeper, for periodic cleanup.
func (ui *UI) Sessions() *Sessions {
	return ui.sessions
}

// HandleLogin renders the login page.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if sess, _ := ui.sessions.Lookup(r); sess != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	data := map[string]any{
		"Title":    "Login - shopadmin",
		"Error":    r.URL.Query().Get(keyError),
		"Username": r.URL.Query().Get("username"),
		"Next":     next,
	}
	ui.render(w, http.StatusOK, "login", data)
}

// HandleLoginPost exchanges the form credentials for an API token and
// starts a session holding it.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=Invalid+request", http.StatusSeeOther)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := safeNext(r.FormValue("next"))
	retry := func(msg string) {
		q := url.Values{keyError: {msg}}
		if username != "" {
			q.Set("username", username)
		}
		if next != "/products" {
			q.Set("next", next)
		}
		http.Redirect(w, r, "/login?"+q.Encode(), http.StatusSeeOther)
	}
	if username == "" || password == "" {
		retry("Username and password required")
		return
	}

	token, err := catalog.Login(r.Context(), ui.gw, username, password)
	if err != nil {
		ui.logger.Warn("login failed", "username", username, "error", err)
		msg := gateway.UserMessage(err)
		if gateway.StatusCode(err) == 0 && !isTransport(err) {
			msg = "Login failed"
		}
		retry(msg)
		return
	}

	// Claims are advisory: the API stays the judge of the token.
	sessionUser := username
	var tokenExp time.Time
	if claims, err := session.ParseClaims(token); err == nil {
		if claims.Username != "" {
			sessionUser = claims.Username
		}
		tokenExp = claims.ExpiresAt
	}

	sess, err := ui.sessions.Start(r.Context(), w, sessionUser, token, tokenExp)
	if err != nil {
		ui.logger.Error("start session", "error", err)
		retry("Session creation failed")
		return
	}

	ui.logger.Info("signed in", "username", sessionUser, "session", sess.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func isTransport(err error) bool {
	var te *gateway.TransportError
	return errors.As(err, &te)
}

// HandleLogout clears the session and redirects to login.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var id string
	if sess := SessionFromContext(r.Context()); sess != nil {
		id = sess.ID
		ui.logger.Info("signed out", "username", sess.Username, "session", sess.ID)
	}
	if err := ui.sessions.End(r.Context(), w, id); err != nil {
		ui.logger.Warn("end session", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// --- Product Handlers ---

// HandleProductList renders the products table. The request's query string
// is the whole view state: search, sort, page size, offset and filters.
func (ui *UI) HandleProductList(w http.ResponseWriter, r *http.Request) {
	full := querystate.Parse(r.URL.RawQuery)
	if canonical := full.Encode(); canonical != r.URL.RawQuery {
		// Drops key= noise left by GET forms.
		http.Redirect(w, r, querystate.Href("/products", full, nil), http.StatusFound)
		return
	}

	state := listState(full)
	q := ui.listQuery(state)
	api := ui.catalogFor(r)

	// The page is rendered from scratch, so rows accumulated by "show more"
	// are fetched in one request.
	params := catalog.ParamsFromQuery(q)
	params.Skip = 0
	params.Limit = q.Through()

	var rows []model.Product
	total := 0
	errMsg := full.Get(keyError, "")
	page, err := api.List(r.Context(), params)
	switch {
	case gateway.IsUnauthorized(err):
		ui.sessionExpired(w, r)
		return
	case err != nil:
		ui.logger.Warn("list products failed", "query", state.Encode(), "error", err)
		errMsg = gateway.UserMessage(err)
	default:
		rows = page.Products
		total = page.Total
	}

	filterPatch := querystate.Filters{}.Patch()
	filterPatch[querystate.KeySkip] = nil

	data := map[string]any{
		"Title":      "Products - shopadmin",
		"Session":    SessionFromContext(r.Context()),
		"Rows":       rows,
		"Query":      q,
		"Location":   state.Encode(),
		"Notice":     full.Get(keyNotice, ""),
		"Error":      errMsg,
		"Categories": ui.categories(r, api, q.Filters.Category),
		"Pagination": model.NewPagination(q.Skip, q.Take, len(rows), total),
		"DebounceMS": ui.debounce.Milliseconds(),
		"Links": map[string]string{
			"SortTitle":    querystate.Href("/products", state, ui.sortPatch(q, "title")),
			"SortPrice":    querystate.Href("/products", state, ui.sortPatch(q, "price")),
			"ShowMore":     querystate.Href("/products", state, querystate.Patch{querystate.KeySkip: q.Skip + q.Take}),
			"ClearSearch":  querystate.Href("/products", state, querystate.Patch{querystate.KeyQuery: nil, querystate.KeySkip: nil}),
			"ClearFilters": querystate.Href("/products", state, filterPatch),
			"New":          "/products/new?" + url.Values{"return": {state.Encode()}}.Encode(),
		},
		"TitleMark": q.SortMark("title"),
		"PriceMark": q.SortMark("price"),
	}
	ui.render(w, http.StatusOK, "products/list", data)
}

func (ui *UI) sortPatch(q querystate.ListQuery, field string) querystate.Patch {
	return querystate.Patch{
		querystate.KeySortBy: field,
		querystate.KeyOrder:  q.NextOrder(field),
		querystate.KeySkip:   nil,
	}
}

// HandleProductNew renders an empty product form.
func (ui *UI) HandleProductNew(w http.ResponseWriter, r *http.Request) {
	ui.renderForm(w, r, http.StatusOK, formPage{
		Heading: "New product",
		Action:  "/products",
		Form:    model.NewProductForm(),
		Return:  r.URL.Query().Get("return"),
	})
}

// HandleProductCreate validates the form and creates the product.
func (ui *UI) HandleProductCreate(w http.ResponseWriter, r *http.Request) {
	ui.saveProduct(w, r, 0, formPage{Heading: "New product", Action: "/products"})
}

// HandleProductEdit renders the form for an existing product.
func (ui *UI) HandleProductEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := ui.productID(w, r)
	if !ok {
		return
	}
	p, err := ui.catalogFor(r).Get(r.Context(), id)
	if err != nil {
		ui.apiFailure(w, r, err, r.URL.Query().Get("return"))
		return
	}
	ui.renderForm(w, r, http.StatusOK, formPage{
		Heading: "Edit product #" + strconv.Itoa(id),
		Action:  "/products/" + strconv.Itoa(id),
		Form:    model.FormFromProduct(*p),
		Return:  r.URL.Query().Get("return"),
	})
}

// HandleProductUpdate validates the form and updates the product.
func (ui *UI) HandleProductUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := ui.productID(w, r)
	if !ok {
		return
	}
	ui.saveProduct(w, r, id, formPage{
		Heading: "Edit product #" + strconv.Itoa(id),
		Action:  "/products/" + strconv.Itoa(id),
	})
}

// saveProduct handles both create (id == 0) and update. Validation errors
// re-render the form and never reach the API.
func (ui *UI) saveProduct(w http.ResponseWriter, r *http.Request, id int, page formPage) {
	if err := r.ParseForm(); err != nil {
		ui.renderError(w, http.StatusBadRequest, "Invalid form submission", err)
		return
	}
	page.Form = model.ProductForm{
		Title:    r.PostFormValue("title"),
		Price:    r.PostFormValue("price"),
		Stock:    r.PostFormValue("stock"),
		Category: r.PostFormValue("category"),
		Brand:    r.PostFormValue("brand"),
	}
	page.Return = r.PostFormValue("return")

	in, err := page.Form.Parse()
	if err != nil {
		var fe model.FieldErrors
		if errors.As(err, &fe) {
			page.Errors = fe
		} else {
			page.Error = err.Error()
		}
		ui.renderForm(w, r, http.StatusUnprocessableEntity, page)
		return
	}

	api := ui.catalogFor(r)
	var p *model.Product
	if id == 0 {
		p, err = api.Create(r.Context(), in)
	} else {
		p, err = api.Update(r.Context(), id, in)
	}
	if err != nil {
		if gateway.IsUnauthorized(err) {
			ui.sessionExpired(w, r)
			return
		}
		page.Error = gateway.UserMessage(err)
		ui.renderForm(w, r, http.StatusBadGateway, page)
		return
	}

	notice := "Product updated"
	if id == 0 {
		notice = "Product created (#" + strconv.Itoa(p.ID) + ")"
	}
	ui.backToList(w, r, page.Return, querystate.Patch{keyNotice: notice})
}

// HandleProductDeleteConfirm renders the delete confirmation.
func (ui *UI) HandleProductDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := ui.productID(w, r)
	if !ok {
		return
	}
	ret := r.URL.Query().Get("return")
	p, err := ui.catalogFor(r).Get(r.Context(), id)
	if err != nil {
		ui.apiFailure(w, r, err, ret)
		return
	}
	ui.render(w, http.StatusOK, "products/delete", map[string]any{
		"Title":   "Delete product - shopadmin",
		"Session": SessionFromContext(r.Context()),
		"Product": p,
		"Return":  ret,
		"Cancel":  querystate.Href("/products", querystate.Parse(ret), nil),
	})
}

// HandleProductDelete deletes the product and returns to the list.
func (ui *UI) HandleProductDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := ui.productID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		ui.renderError(w, http.StatusBadRequest, "Invalid form submission", err)
		return
	}
	ret := r.PostFormValue("return")
	if _, err := ui.catalogFor(r).Delete(r.Context(), id); err != nil {
		ui.apiFailure(w, r, err, ret)
		return
	}
	ui.backToList(w, r, ret, querystate.Patch{keyNotice: "Product deleted"})
}

// --- Helper Methods ---

// catalogFor binds the catalog client to the request's session. A 401 from
// the API deletes that session.
func (ui *UI) catalogFor(r *http.Request) *catalog.Client {
	var sess catalog.Session = catalog.StaticToken("")
	if s := SessionFromContext(r.Context()); s != nil {
		sess = tokenSession{sessions: ui.sessions, sess: s}
	}
	return catalog.New(ui.gw, sess, nil, ui.logger)
}

// listQuery reads the list state, using the configured page size when
// take is absent.
func (ui *UI) listQuery(state querystate.State) querystate.ListQuery {
	q := querystate.ReadListQuery(state)
	if !state.Has(querystate.KeyTake) {
		q.Take = ui.pageSize
	}
	return q
}

func (ui *UI) categories(r *http.Request, api *catalog.Client, current string) []string {
	cats, err := api.Categories(r.Context())
	if err != nil || len(cats) == 0 {
		cats = slices.Clone(model.DefaultCategories)
	}
	if current != "" && !slices.Contains(cats, current) {
		cats = append(cats, current)
	}
	return cats
}

// listState strips notifications so links built from it do not repeat them.
func listState(s querystate.State) querystate.State {
	return s.Apply(querystate.Patch{keyNotice: nil, keyError: nil})
}

// backToList redirects to the list view encoded in ret with patch applied.
func (ui *UI) backToList(w http.ResponseWriter, r *http.Request, ret string, patch querystate.Patch) {
	state := listState(querystate.Parse(ret))
	http.Redirect(w, r, querystate.Href("/products", state, patch), http.StatusSeeOther)
}

// sessionExpired ends the browser's login after the API rejected its token.
// The stored session is already gone by the time this runs.
func (ui *UI) sessionExpired(w http.ResponseWriter, r *http.Request) {
	_ = ui.sessions.End(r.Context(), w, "")
	http.Redirect(w, r, "/login?error=Session+expired", http.StatusSeeOther)
}

// apiFailure routes an API error: 401 ends the session, 404 renders not
// found, anything else returns to the list with the message.
func (ui *UI) apiFailure(w http.ResponseWriter, r *http.Request, err error, ret string) {
	switch {
	case gateway.IsUnauthorized(err):
		ui.sessionExpired(w, r)
	case gateway.IsNotFound(err):
		ui.renderNotFound(w, gateway.UserMessage(err))
	case gateway.IsCanceled(err):
		ui.logger.Debug("request canceled", "path", r.URL.Path)
	default:
		ui.logger.Warn("api call failed", "path", r.URL.Path, "error", err)
		ui.backToList(w, r, ret, querystate.Patch{keyError: gateway.UserMessage(err)})
	}
}

func (ui *UI) productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		ui.renderNotFound(w, "Product not found")
		return 0, false
	}
	return id, true
}

// formPage is the data of the create/edit form.
type formPage struct {
	Heading string
	Action  string
	Form    model.ProductForm
	Errors  model.FieldErrors
	Error   string
	Return  string
}

func (ui *UI) renderForm(w http.ResponseWriter, r *http.Request, status int, page formPage) {
	if page.Errors == nil {
		page.Errors = model.FieldErrors{}
	}
	ui.render(w, status, "products/form", map[string]any{
		"Title":      page.Heading + " - shopadmin",
		"Session":    SessionFromContext(r.Context()),
		"Page":       page,
		"Categories": ui.categories(r, ui.catalogFor(r), page.Form.Category),
		"Cancel":     querystate.Href("/products", querystate.Parse(page.Return), nil),
	})
}

func (ui *UI) render(w http.ResponseWriter, status int, template string, data map[string]any) {
	var buf bytes.Buffer
	if err := renderTemplate(&buf, template, data); err != nil {
		ui.logger.Error("template render failed", "template", template, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (ui *UI) renderError(w http.ResponseWriter, status int, message string, err error) {
	ui.logger.Error(message, "error", err)
	ui.render(w, status, "error", map[string]any{
		"Title":   "Error - shopadmin",
		"Heading": "Something went wrong",
		"Message": message,
	})
}

func (ui *UI) renderNotFound(w http.ResponseWriter, message string) {
	ui.render(w, http.StatusNotFound, "error", map[string]any{
		"Title":   "Not Found - shopadmin",
		"Heading": "Not found",
		"Message": message,
	})
}
