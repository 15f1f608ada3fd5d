// Package tui is the interactive products browser started by
// "shopadmin browse". The current list view lives in an in-memory history
// of query strings, shown on the location line, and every change goes
// through a listview.Controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/me/shopadmin/internal/debounce"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/listview"
	"github.com/me/shopadmin/internal/querystate"
	"github.com/me/shopadmin/pkg/model"
)

type focusArea int

const (
	focusTable focusArea = iota
	focusSearch
	focusBrand
	focusForm
	focusConfirm
)

const pageStep = 5

// ---------- messages ----------

// eventMsg wraps a message delivered through the events channel.
type eventMsg struct{ msg tea.Msg }

type viewMsg struct{ view listview.View }
type loadedMsg struct{ err error }
type searchMsg struct{ q string }
type brandMsg struct{ brand string }
type expiredMsg struct{}

type categoriesMsg struct {
	names []string
	err   error
}

type savedMsg struct {
	id      int
	product *model.Product
	err     error
}

type removedMsg struct {
	id  int
	err error
}

// deps is everything a Model needs from outside.
type deps struct {
	ctrl       *listview.Controller
	hist       *querystate.History
	qs         *querystate.Synchronizer
	categories func(context.Context) ([]string, error)
	loading    *gateway.Loading
	debounce   time.Duration
	events     chan tea.Msg
}

// Model is the bubbletea model of the products browser.
type Model struct {
	ctx        context.Context
	ctrl       *listview.Controller
	hist       *querystate.History
	qs         *querystate.Synchronizer
	categoryFn func(context.Context) ([]string, error)
	loading    *gateway.Loading
	events     chan tea.Msg

	searchDeb *debounce.Debouncer[string]
	brandDeb  *debounce.Debouncer[string]

	keys     keyMap
	formKeys formKeys
	help     help.Model
	search   textinput.Model
	brand    textinput.Model
	spinner  spinner.Model
	form     *productForm

	focus      focusArea
	view       listview.View
	cursor     int
	categories []string
	notice     string
	errText    string
	confirmID  int
	width      int
	height     int
	expired    bool
}

func newModel(ctx context.Context, d deps) Model {
	m := Model{
		ctx:        ctx,
		ctrl:       d.ctrl,
		hist:       d.hist,
		qs:         d.qs,
		categoryFn: d.categories,
		loading:    d.loading,
		events:     d.events,
		keys:       defaultKeys(),
		formKeys:   defaultFormKeys(),
		help:       help.New(),
	}

	m.searchDeb = debounce.New(d.debounce, func(q string) { post(ctx, d.events, searchMsg{q: q}) })
	m.brandDeb = debounce.New(d.debounce, func(b string) { post(ctx, d.events, brandMsg{brand: b}) })

	m.search = textinput.New()
	m.search.Prompt = "Search: "
	m.search.Placeholder = "title, brand, description"
	m.search.CharLimit = 100
	m.search.Width = 30

	m.brand = textinput.New()
	m.brand.Prompt = "Brand: "
	m.brand.Placeholder = "any"
	m.brand.CharLimit = 60
	m.brand.Width = 18

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = dimStyle

	m.view = d.ctrl.View()
	m.syncInputs()
	return m
}

// post delivers msg to the program unless ctx has ended.
func post(ctx context.Context, ch chan<- tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	case <-ctx.Done():
	}
}

func waitForEvent(ctx context.Context, ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return eventMsg{msg: msg}
		case <-ctx.Done():
			return nil
		}
	}
}

// stop cancels pending debounced input.
func (m Model) stop() {
	m.searchDeb.Stop()
	m.brandDeb.Stop()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.ctx, m.events),
		m.do(m.ctrl.Load),
		m.loadCategories(),
	)
}

// do runs fn off the update loop and reports its outcome as a loadedMsg.
func (m Model) do(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: fn(ctx)}
	}
}

// navigate is do preceded by a new history entry, so the previous view can
// be restored with Back.
func (m Model) navigate(fn func(context.Context) error) tea.Cmd {
	m.hist.Push(m.hist.Location())
	return m.do(fn)
}

func (m Model) loadCategories() tea.Cmd {
	if m.categoryFn == nil {
		return nil
	}
	fn, ctx := m.categoryFn, m.ctx
	return func() tea.Msg {
		names, err := fn(ctx)
		return categoriesMsg{names: names, err: err}
	}
}

// reload refetches the current location from the first row. Rows beyond
// the first page are dropped.
func (m *Model) reload() tea.Cmd {
	m.qs.Set(querystate.Patch{querystate.KeySkip: nil})
	m.syncInputs()
	return m.do(m.ctrl.Load)
}

// syncInputs copies the location's search and brand into the text fields.
func (m *Model) syncInputs() {
	m.searchDeb.Cancel()
	m.brandDeb.Cancel()
	lq := querystate.ReadListQuery(m.qs.State())
	m.search.SetValue(lq.Q)
	m.brand.SetValue(lq.Filters.Brand)
}

func (m *Model) setView(v listview.View) {
	m.view = v
	if m.cursor >= len(v.Rows) {
		m.cursor = max(len(v.Rows)-1, 0)
	}
}

// handleErr ends the program when the session has expired. Other load
// failures are carried by the view.
func (m *Model) handleErr(err error) tea.Cmd {
	switch {
	case err == nil, errors.Is(err, listview.ErrSuperseded), gateway.IsCanceled(err):
		return nil
	case gateway.IsUnauthorized(err):
		m.expired = true
		return tea.Quit
	}
	return nil
}

func (m Model) selected() (model.Product, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return model.Product{}, false
	}
	return m.view.Rows[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, waitForEvent(m.ctx, m.events))

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case viewMsg:
		m.setView(msg.view)
		return m, nil

	case loadedMsg:
		m.setView(m.ctrl.View())
		cmd := m.handleErr(msg.err)
		return m, cmd

	case searchMsg:
		q := msg.q
		return m, m.do(func(ctx context.Context) error { return m.ctrl.Search(ctx, q) })

	case brandMsg:
		return m, m.do(m.applyBrand(msg.brand))

	case categoriesMsg:
		if msg.err != nil {
			cmd := m.handleErr(msg.err)
			return m, cmd
		}
		m.categories = msg.names
		return m, nil

	case savedMsg:
		return m.saved(msg)

	case removedMsg:
		if msg.err != nil {
			m.errText = gateway.UserMessage(msg.err)
			cmd := m.handleErr(msg.err)
			return m, cmd
		}
		m.setView(m.ctrl.View())
		m.notice = fmt.Sprintf("Product deleted (#%d)", msg.id)
		return m, nil

	case expiredMsg:
		m.expired = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.focus {
		case focusSearch:
			cmd := m.editInput(msg, &m.search, m.searchDeb, func(q string) tea.Cmd {
				return m.do(func(ctx context.Context) error { return m.ctrl.Search(ctx, q) })
			})
			return m, cmd
		case focusBrand:
			cmd := m.editInput(msg, &m.brand, m.brandDeb, func(b string) tea.Cmd {
				return m.do(m.applyBrand(b))
			})
			return m, cmd
		case focusForm:
			return m.updateForm(msg)
		case focusConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateTable(msg)
		}
	}
	return m, nil
}

// applyBrand keeps the other filters and replaces the brand.
func (m Model) applyBrand(brand string) func(context.Context) error {
	ctrl := m.ctrl
	return func(ctx context.Context) error {
		f := ctrl.View().Query.Filters
		f.Brand = brand
		return ctrl.ApplyFilters(ctx, f)
	}
}

// editInput feeds a key to a focused text field. Typing is debounced;
// enter applies the pending value at once and esc keeps it pending.
func (m *Model) editInput(msg tea.KeyMsg, in *textinput.Model, deb *debounce.Debouncer[string], apply func(string) tea.Cmd) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		in.Blur()
		m.focus = focusTable
		return nil
	case tea.KeyEnter:
		in.Blur()
		m.focus = focusTable
		if !deb.Pending() {
			return nil
		}
		deb.Cancel()
		return apply(in.Value())
	}

	before := in.Value()
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	if v := in.Value(); v != before {
		deb.Trigger(v)
	}
	return cmd
}

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	m.notice, m.errText = "", ""

	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.view.Rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, k.Search):
		m.focus = focusSearch
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, k.Brand):
		m.focus = focusBrand
		cmd := m.brand.Focus()
		return m, cmd
	case key.Matches(msg, k.Category):
		f := m.view.Query.Filters
		f.Category = nextCategory(m.categories, f.Category)
		return m, m.navigate(func(ctx context.Context) error { return m.ctrl.ApplyFilters(ctx, f) })
	case key.Matches(msg, k.SortTitle):
		return m, m.sortBy("title")
	case key.Matches(msg, k.SortPrice):
		return m, m.sortBy("price")
	case key.Matches(msg, k.SortStock):
		return m, m.sortBy("stock")
	case key.Matches(msg, k.SortRating):
		return m, m.sortBy("rating")
	case key.Matches(msg, k.More):
		if !m.view.CanShowMore {
			return m, nil
		}
		return m, m.do(m.ctrl.ShowMore)
	case key.Matches(msg, k.ClearSearch):
		m.searchDeb.Cancel()
		m.search.SetValue("")
		return m, m.navigate(m.ctrl.ClearSearch)
	case key.Matches(msg, k.ClearFilter):
		m.brandDeb.Cancel()
		m.brand.SetValue("")
		return m, m.navigate(m.ctrl.ClearFilters)
	case key.Matches(msg, k.Bigger):
		return m, m.pageSize(m.view.Query.Take + pageStep)
	case key.Matches(msg, k.Smaller):
		return m, m.pageSize(m.view.Query.Take - pageStep)
	case key.Matches(msg, k.Back):
		if m.hist.Back() {
			cmd := m.reload()
			return m, cmd
		}
	case key.Matches(msg, k.Forward):
		if m.hist.Forward() {
			cmd := m.reload()
			return m, cmd
		}
	case key.Matches(msg, k.Reload):
		cmd := m.reload()
		return m, cmd
	case key.Matches(msg, k.Add):
		m.form = newProductForm(0, model.NewProductForm())
		m.focus = focusForm
	case key.Matches(msg, k.Edit):
		if p, ok := m.selected(); ok {
			m.form = newProductForm(p.ID, model.FormFromProduct(p))
			m.focus = focusForm
		}
	case key.Matches(msg, k.Delete):
		if p, ok := m.selected(); ok {
			m.confirmID = p.ID
			m.focus = focusConfirm
		}
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) sortBy(field string) tea.Cmd {
	return m.navigate(func(ctx context.Context) error { return m.ctrl.ToggleSort(ctx, field) })
}

func (m Model) pageSize(take int) tea.Cmd {
	take = max(take, 1)
	if take == m.view.Query.Take {
		return nil
	}
	return m.do(func(ctx context.Context) error { return m.ctrl.SetPageSize(ctx, take) })
}

// nextCategory cycles through names and back to no category.
func nextCategory(names []string, current string) string {
	if len(names) == 0 {
		return ""
	}
	for i, n := range names {
		if n == current {
			if i == len(names)-1 {
				return ""
			}
			return names[i+1]
		}
	}
	return names[0]
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.confirmID
	m.confirmID = 0
	m.focus = focusTable

	switch msg.String() {
	case "y", "Y":
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			return removedMsg{id: id, err: ctrl.Remove(ctx, id)}
		}
	case "ctrl+c":
		return m, tea.Quit
	}
	m.notice = "Delete cancelled"
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if f.saving {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.formKeys.Cancel):
		m.form = nil
		m.focus = focusTable
	case key.Matches(msg, m.formKeys.Save):
		f.saving = true
		f.err = ""
		id, value := f.id, f.value()
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			p, err := ctrl.Save(ctx, id, value)
			return savedMsg{id: id, product: p, err: err}
		}
	case key.Matches(msg, m.formKeys.Next):
		f.move(1)
	case key.Matches(msg, m.formKeys.Prev):
		f.move(-1)
	default:
		return m, f.update(msg)
	}
	return m, nil
}

func (m Model) saved(msg savedMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	m.form.saving = false

	var fieldErrs model.FieldErrors
	switch {
	case errors.As(msg.err, &fieldErrs):
		m.form.errs = fieldErrs
		m.form.err = gateway.UserMessage(msg.err)
		return m, nil
	case msg.err != nil:
		m.form.errs = nil
		m.form.err = gateway.UserMessage(msg.err)
		cmd := m.handleErr(msg.err)
		return m, cmd
	}

	m.form = nil
	m.focus = focusTable
	m.setView(m.ctrl.View())
	if msg.id == 0 {
		m.cursor = 0
		m.notice = fmt.Sprintf("Product created (#%d)", msg.product.ID)
	} else {
		m.notice = fmt.Sprintf("Product updated (#%d)", msg.id)
	}
	return m, nil
}

// ---------- view ----------

func (m Model) busy() bool {
	return m.view.Loading || (m.loading != nil && m.loading.IsLoading())
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.form != nil {
		b.WriteString(m.form.view())
		b.WriteString("\n")
		b.WriteString(m.help.View(m.formKeys))
		return b.String()
	}

	b.WriteString(m.search.View())
	b.WriteString("   ")
	b.WriteString(m.brand.View())
	b.WriteString("   Category: ")
	b.WriteString(orDash(m.view.Query.Filters.Category))
	b.WriteString("\n\n")
	b.WriteString(m.tableView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) headerView() string {
	loc := "/products"
	if m.view.Location != "" {
		loc += "?" + m.view.Location
	}
	line := titleStyle.Render("shopadmin") + "  " + locationStyle.Render(loc)
	if m.busy() {
		line += "  " + m.spinner.View()
	}
	return line
}

const rowFormat = "%-6s %-34s %12s %8s %6s %-16s %-16s"

func (m Model) tableView() string {
	q := m.view.Query
	head := fmt.Sprintf(rowFormat,
		"ID",
		"Title"+q.SortMark("title"),
		"Price"+q.SortMark("price"),
		"Stock"+q.SortMark("stock"),
		"Rating"+q.SortMark("rating"),
		"Brand",
		"Category")

	var b strings.Builder
	b.WriteString(headerStyle.Render(head))
	b.WriteString("\n")

	if len(m.view.Rows) == 0 {
		if !m.busy() && m.view.Error == "" {
			b.WriteString(dimStyle.Render("No products found."))
			b.WriteString("\n")
		}
		return b.String()
	}

	start, end := m.window()
	for i := start; i < end; i++ {
		p := m.view.Rows[i]
		line := fmt.Sprintf(rowFormat,
			strconv.Itoa(p.ID),
			truncate(p.Title, 34),
			formatPrice(p.Price),
			humanize.Comma(int64(p.Stock)),
			strconv.FormatFloat(p.Rating, 'f', 2, 64),
			truncate(orDash(p.Brand), 16),
			truncate(orDash(p.Category), 16))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// window returns the row range that fits the terminal, keeping the cursor
// visible.
func (m Model) window() (int, int) {
	n := len(m.view.Rows)
	avail := m.height - 10
	if m.height == 0 || avail >= n {
		return 0, n
	}
	avail = max(avail, 1)
	start := 0
	if m.cursor >= avail {
		start = m.cursor - avail + 1
	}
	return start, min(start+avail, n)
}

func (m Model) statusView() string {
	var lines []string

	if len(m.view.Rows) > 0 {
		s := fmt.Sprintf("Showing %s of %s", humanize.Comma(int64(len(m.view.Rows))), humanize.Comma(int64(m.view.Total)))
		if m.view.CanShowMore {
			s += " · n: show more"
		}
		lines = append(lines, dimStyle.Render(s))
	}
	if m.view.Error != "" {
		lines = append(lines, errorStyle.Render(m.view.Error))
	}
	if m.errText != "" {
		lines = append(lines, errorStyle.Render(m.errText))
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	if m.focus == focusConfirm {
		lines = append(lines, confirmStyle.Render(fmt.Sprintf("Delete product #%d? (y/N)", m.confirmID)))
	}
	return strings.Join(lines, "\n")
}

func formatPrice(p float64) string {
	return "$" + humanize.FormatFloat("#,###.##", p)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
