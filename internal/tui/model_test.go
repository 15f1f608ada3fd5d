package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/me/shopadmin/internal/catalog"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/listview"
	"github.com/me/shopadmin/internal/querystate"
	"github.com/me/shopadmin/pkg/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCatalog struct {
	mu       sync.Mutex
	products []model.Product
	lists    []catalog.ListParams
	created  []model.ProductInput
	deleted  []int
	listErr  error
}

func newFakeCatalog(n int) *fakeCatalog {
	fc := &fakeCatalog{}
	for i := 1; i <= n; i++ {
		fc.products = append(fc.products, model.Product{
			ID:       i,
			Title:    fmt.Sprintf("Product %d", i),
			Price:    float64(i) * 10,
			Stock:    i,
			Category: "smartphones",
		})
	}
	return fc
}

func (f *fakeCatalog) List(_ context.Context, p catalog.ListParams) (*model.ProductsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, p)
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := min(p.Skip, len(f.products))
	end := min(p.Skip+p.Limit, len(f.products))
	return &model.ProductsPage{
		Products: append([]model.Product(nil), f.products[start:end]...),
		Total:    len(f.products),
		Skip:     p.Skip,
		Limit:    p.Limit,
	}, nil
}

func (f *fakeCatalog) Create(_ context.Context, in model.ProductInput) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	p := in.Apply(model.Product{ID: 101})
	return &p, nil
}

func (f *fakeCatalog) Update(_ context.Context, id int, in model.ProductInput) (*model.Product, error) {
	p := in.Apply(model.Product{ID: id})
	return &p, nil
}

func (f *fakeCatalog) Delete(_ context.Context, id int) (*model.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return &model.DeleteResult{ID: id, IsDeleted: true}, nil
}

func (f *fakeCatalog) lastList(t *testing.T) catalog.ListParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lists) == 0 {
		t.Fatal("no list request made")
	}
	return f.lists[len(f.lists)-1]
}

func (f *fakeCatalog) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// newTestModel builds a Model at location and runs its first load.
func newTestModel(t *testing.T, fc *fakeCatalog, location string) Model {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hist := querystate.NewHistory(location)
	qs := querystate.NewSynchronizer(hist)
	ctrl := listview.New(fc, qs, nil)
	t.Cleanup(ctrl.Close)

	m := newModel(ctx, deps{
		ctrl:     ctrl,
		hist:     hist,
		qs:       qs,
		debounce: 30 * time.Millisecond,
		events:   make(chan tea.Msg, 32),
	})
	t.Cleanup(m.stop)
	return run(t, m, m.do(ctrl.Load))
}

// run executes cmd and feeds its messages back into m until no command is
// left.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 20 {
			t.Fatal("command chain did not settle")
		}
		msg := cmd()
		if msg == nil {
			return m
		}
		if _, ok := msg.(tea.QuitMsg); ok {
			return m
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(k)
		m = run(t, next.(Model), cmd)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestInitialLoad(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "")

	if len(m.view.Rows) != 10 || m.view.Total != 25 || !m.view.CanShowMore {
		t.Fatalf("view = %d rows of %d, more=%v", len(m.view.Rows), m.view.Total, m.view.CanShowMore)
	}
	if got := fc.lastList(t); got.Limit != 10 || got.Skip != 0 {
		t.Errorf("first request = %+v", got)
	}
	if !strings.Contains(m.View(), "Showing 10 of 25") {
		t.Errorf("status line missing from view:\n%s", m.View())
	}
}

func TestWindowSize(t *testing.T) {
	m := newTestModel(t, newFakeCatalog(3), "")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	got := next.(Model)
	if got.width != 120 || got.height != 40 {
		t.Errorf("size = %dx%d", got.width, got.height)
	}
}

func TestSortKeyTogglesAndRecordsHistory(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "")

	m = press(t, m, runes("p"))
	if got := m.hist.Location(); got != "order=asc&sortBy=price" {
		t.Fatalf("location after first toggle = %q", got)
	}
	m = press(t, m, runes("p"))
	if got := m.hist.Location(); got != "order=desc&sortBy=price" {
		t.Fatalf("location after second toggle = %q", got)
	}
	if got := fc.lastList(t); got.SortBy != "price" || got.Order != "desc" {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(m.View(), "/products?order=desc&sortBy=price") {
		t.Errorf("location line missing from view")
	}

	m = press(t, m, runes("["))
	if got := m.hist.Location(); got != "order=asc&sortBy=price" {
		t.Errorf("location after back = %q", got)
	}
	if got := fc.lastList(t); got.Order != "asc" {
		t.Errorf("request after back = %+v", got)
	}

	m = press(t, m, runes("]"))
	if got := m.hist.Location(); got != "order=desc&sortBy=price" {
		t.Errorf("location after forward = %q", got)
	}
}

func TestShowMoreAppendsUntilExhausted(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "")

	m = press(t, m, runes("n"))
	if len(m.view.Rows) != 20 {
		t.Fatalf("rows after one show more = %d", len(m.view.Rows))
	}
	if got := fc.lastList(t); got.Skip != 10 {
		t.Errorf("skip = %d, want 10", got.Skip)
	}

	m = press(t, m, runes("n"))
	if len(m.view.Rows) != 25 || m.view.CanShowMore {
		t.Fatalf("rows = %d, more = %v", len(m.view.Rows), m.view.CanShowMore)
	}

	_, cmd := m.Update(runes("n"))
	if cmd != nil {
		t.Error("show more with every row loaded returned a command")
	}
}

func TestSearchIsDebounced(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "")

	m = press(t, m, runes("/"))
	if m.focus != focusSearch {
		t.Fatalf("focus = %v, want search", m.focus)
	}
	for _, r := range []string{"a", "b", "c"} {
		next, _ := m.Update(runes(r))
		m = next.(Model)
	}

	var got []tea.Msg
	timeout := time.After(time.Second)
collect:
	for {
		select {
		case msg := <-m.events:
			got = append(got, msg)
		case <-time.After(150 * time.Millisecond):
			if len(got) > 0 {
				break collect
			}
		case <-timeout:
			break collect
		}
	}
	if diff := cmp.Diff([]tea.Msg{searchMsg{q: "abc"}}, got, cmp.AllowUnexported(searchMsg{})); diff != "" {
		t.Fatalf("debounced messages (-want +got):\n%s", diff)
	}

	next, cmd := m.Update(got[0])
	m = run(t, next.(Model), cmd)
	if p := fc.lastList(t); p.Q != "abc" || p.Skip != 0 {
		t.Errorf("request = %+v", p)
	}
	if got := m.hist.Location(); got != "q=abc" {
		t.Errorf("location = %q", got)
	}
}

func TestSearchEnterAppliesAtOnce(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "")

	m = press(t, m, runes("/"), runes("phone"), enter)
	if m.focus != focusTable {
		t.Errorf("focus = %v, want table", m.focus)
	}
	if p := fc.lastList(t); p.Q != "phone" {
		t.Errorf("request = %+v", p)
	}
	if m.searchDeb.Pending() {
		t.Error("debounced search still pending after enter")
	}
}

func TestClearSearchResetsInput(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "q=phone&skip=10")

	if m.search.Value() != "phone" {
		t.Fatalf("search input = %q", m.search.Value())
	}
	m = press(t, m, runes("x"))
	if m.search.Value() != "" {
		t.Errorf("search input = %q after clear", m.search.Value())
	}
	if got := m.hist.Location(); got != "" {
		t.Errorf("location = %q, want empty", got)
	}
}

func TestCategoryCycles(t *testing.T) {
	fc := newFakeCatalog(5)
	m := newTestModel(t, fc, "")
	m.categories = []string{"laptops", "smartphones"}

	m = press(t, m, runes("c"))
	if got := m.hist.Location(); got != "category=laptops" {
		t.Errorf("location = %q", got)
	}
	m = press(t, m, runes("c"), runes("c"))
	if got := m.hist.Location(); got != "" {
		t.Errorf("location after full cycle = %q", got)
	}
}

func TestNextCategory(t *testing.T) {
	names := []string{"a", "b"}
	tests := []struct {
		current, want string
	}{
		{"", "a"},
		{"a", "b"},
		{"b", ""},
		{"unknown", "a"},
	}
	for _, tt := range tests {
		if got := nextCategory(names, tt.current); got != tt.want {
			t.Errorf("nextCategory(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
	if got := nextCategory(nil, "a"); got != "" {
		t.Errorf("nextCategory(nil) = %q", got)
	}
}

func TestDeleteConfirm(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "")

	m = press(t, m, down, runes("d"))
	if m.focus != focusConfirm || m.confirmID != 2 {
		t.Fatalf("focus = %v, confirmID = %d", m.focus, m.confirmID)
	}
	if !strings.Contains(m.View(), "Delete product #2?") {
		t.Error("confirmation prompt not shown")
	}

	m = press(t, m, runes("y"))
	if diff := cmp.Diff([]int{2}, fc.deleted); diff != "" {
		t.Errorf("deleted (-want +got):\n%s", diff)
	}
	if len(m.view.Rows) != 9 || m.view.Total != 24 {
		t.Errorf("view = %d rows of %d", len(m.view.Rows), m.view.Total)
	}
	if m.notice != "Product deleted (#2)" {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestDeleteCancelled(t *testing.T) {
	fc := newFakeCatalog(5)
	m := newTestModel(t, fc, "")

	m = press(t, m, runes("d"), runes("n"))
	if len(fc.deleted) != 0 {
		t.Errorf("deleted = %v", fc.deleted)
	}
	if m.focus != focusTable || m.notice != "Delete cancelled" {
		t.Errorf("focus = %v, notice = %q", m.focus, m.notice)
	}
}

func TestFormValidationThenCreate(t *testing.T) {
	fc := newFakeCatalog(25)
	m := newTestModel(t, fc, "")

	m = press(t, m, runes("a"), enter)
	if m.form == nil {
		t.Fatal("form closed after invalid save")
	}
	if got := m.form.errs.Field("title"); got != model.MsgRequired {
		t.Errorf("title error = %q", got)
	}
	if got := m.form.errs.Field("category"); got != model.MsgRequired {
		t.Errorf("category error = %q", got)
	}
	if len(fc.created) != 0 {
		t.Fatalf("invalid form reached the API: %+v", fc.created)
	}

	m = press(t, m, runes("Desk"), tab, tab, tab, runes("furniture"), enter)
	if m.form != nil {
		t.Fatalf("form still open: %+v", m.form.errs)
	}
	want := []model.ProductInput{{Title: "Desk", Price: 1, Stock: 0, Category: "furniture"}}
	if diff := cmp.Diff(want, fc.created); diff != "" {
		t.Errorf("created (-want +got):\n%s", diff)
	}
	if m.view.Rows[0].ID != 101 || m.view.Total != 26 {
		t.Errorf("first row = %+v, total = %d", m.view.Rows[0], m.view.Total)
	}
	if m.notice != "Product created (#101)" {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestEditUpdatesRow(t *testing.T) {
	fc := newFakeCatalog(5)
	m := newTestModel(t, fc, "")

	m = press(t, m, runes("e"))
	if m.form == nil || m.form.id != 1 {
		t.Fatalf("form = %+v", m.form)
	}
	if got := m.form.value().Title; got != "Product 1" {
		t.Fatalf("prefilled title = %q", got)
	}

	m = press(t, m, runes("!"), enter)
	if got := m.view.Rows[0].Title; got != "Product 1!" {
		t.Errorf("row title = %q", got)
	}
	if m.notice != "Product updated (#1)" {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestUnauthorizedQuits(t *testing.T) {
	fc := newFakeCatalog(5)
	m := newTestModel(t, fc, "")

	fc.setListErr(&gateway.HTTPError{StatusCode: 401, Message: "Token Expired!"})
	next, cmd := m.Update(runes("R"))
	m = next.(Model)
	msg := cmd()
	next, cmd = m.Update(msg)
	m = next.(Model)

	if !m.expired {
		t.Error("model not marked expired")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command is not tea.Quit")
	}
}

func TestExpiredMessageQuits(t *testing.T) {
	m := newTestModel(t, newFakeCatalog(1), "")
	next, cmd := m.Update(expiredMsg{})
	if !next.(Model).expired || cmd == nil {
		t.Error("expiredMsg did not quit")
	}
}

func TestLoadErrorShown(t *testing.T) {
	fc := newFakeCatalog(5)
	m := newTestModel(t, fc, "")

	fc.setListErr(&gateway.HTTPError{StatusCode: 500, Message: "database down"})
	m = press(t, m, runes("R"))
	if m.expired {
		t.Fatal("500 treated as expiry")
	}
	if !strings.Contains(m.View(), "database down") {
		t.Errorf("error not rendered:\n%s", m.View())
	}
}

func TestInitialLocation(t *testing.T) {
	tests := []struct {
		raw      string
		pageSize int
		want     string
	}{
		{"", 10, ""},
		{"q=a&skip=20", 10, "q=a"},
		{"", 25, "take=25"},
		{"take=5", 25, "take=5"},
		{"?sortBy=price&order=desc", 0, "sortBy=price&order=desc"},
	}
	for _, tt := range tests {
		if got := initialLocation(tt.raw, tt.pageSize); got != tt.want {
			t.Errorf("initialLocation(%q, %d) = %q, want %q", tt.raw, tt.pageSize, got, tt.want)
		}
	}
}
