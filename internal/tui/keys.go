package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Search      key.Binding
	Brand       key.Binding
	Category    key.Binding
	SortTitle   key.Binding
	SortPrice   key.Binding
	SortStock   key.Binding
	SortRating  key.Binding
	More        key.Binding
	ClearSearch key.Binding
	ClearFilter key.Binding
	Bigger      key.Binding
	Smaller     key.Binding
	Back        key.Binding
	Forward     key.Binding
	Reload      key.Binding
	Add         key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Brand:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "brand")),
		Category:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category")),
		SortTitle:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "sort title")),
		SortPrice:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "sort price")),
		SortStock:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort stock")),
		SortRating:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "sort rating")),
		More:        key.NewBinding(key.WithKeys("n", " "), key.WithHelp("n", "show more")),
		ClearSearch: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear search")),
		ClearFilter: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "clear filters")),
		Bigger:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "page size")),
		Smaller:     key.NewBinding(key.WithKeys("-")),
		Back:        key.NewBinding(key.WithKeys("["), key.WithHelp("[/]", "back/forward")),
		Forward:     key.NewBinding(key.WithKeys("]")),
		Reload:      key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "reload")),
		Add:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:        key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
		Delete:      key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.SortPrice, k.More, k.Edit, k.Delete, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.More, k.Bigger, k.Reload},
		{k.Search, k.Brand, k.Category, k.ClearSearch, k.ClearFilter},
		{k.SortTitle, k.SortPrice, k.SortStock, k.SortRating, k.Back},
		{k.Add, k.Edit, k.Delete, k.Help, k.Quit},
	}
}

// formKeys are active while the product form is open.
type formKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Save   key.Binding
	Cancel key.Binding
}

func defaultFormKeys() formKeys {
	return formKeys{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous")),
		Save:   key.NewBinding(key.WithKeys("enter", "ctrl+s"), key.WithHelp("enter", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k formKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Save, k.Cancel}
}

func (k formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
