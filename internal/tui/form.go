package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/me/shopadmin/pkg/model"
)

var formFields = []struct {
	name, label string
}{
	{"title", "Title"},
	{"price", "Price"},
	{"stock", "Stock"},
	{"category", "Category"},
	{"brand", "Brand"},
}

// productForm edits one product. id is 0 for a new product.
type productForm struct {
	id     int
	inputs []textinput.Model
	focus  int
	errs   model.FieldErrors
	err    string
	saving bool
}

func newProductForm(id int, f model.ProductForm) *productForm {
	values := []string{f.Title, f.Price, f.Stock, f.Category, f.Brand}
	pf := &productForm{id: id}
	for i, field := range formFields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 120
		in.Width = 40
		in.Placeholder = strings.ToLower(field.label)
		in.SetValue(values[i])
		pf.inputs = append(pf.inputs, in)
	}
	pf.inputs[0].Focus()
	return pf
}

// value returns the form exactly as typed.
func (f *productForm) value() model.ProductForm {
	return model.ProductForm{
		Title:    f.inputs[0].Value(),
		Price:    f.inputs[1].Value(),
		Stock:    f.inputs[2].Value(),
		Category: f.inputs[3].Value(),
		Brand:    f.inputs[4].Value(),
	}
}

func (f *productForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *productForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *productForm) title() string {
	if f.id == 0 {
		return "New product"
	}
	return fmt.Sprintf("Edit product #%d", f.id)
}

func (f *productForm) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title()))
	b.WriteString("\n\n")
	for i, field := range formFields {
		label := fmt.Sprintf("%-9s", field.label)
		if i == f.focus {
			label = selectedStyle.Render(label)
		}
		b.WriteString(label + " " + f.inputs[i].View() + "\n")
		if msg := f.errs.Field(field.name); msg != "" {
			b.WriteString(strings.Repeat(" ", 10) + errorStyle.Render(msg) + "\n")
		}
	}
	switch {
	case f.saving:
		b.WriteString("\n" + dimStyle.Render("Saving…"))
	case f.err != "":
		b.WriteString("\n" + errorStyle.Render(f.err))
	}
	return formStyle.Render(b.String())
}
