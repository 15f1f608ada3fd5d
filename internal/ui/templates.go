package ui

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

var funcs = template.FuncMap{
	"formatPrice": func(p float64) string {
		return "$" + humanize.FormatFloat("#,###.##", p)
	},
	"formatCount": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"formatRating": func(r float64) string {
		if r == 0 {
			return "-"
		}
		return fmt.Sprintf("%.1f", r)
	},
	"orDash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	},
	"fieldError": func(errs map[string]string, field string) string {
		return errs[field]
	},
}

// pages holds every page parsed into the shared shell, keyed by page name.
var pages = parsePages()

func parsePages() map[string]*template.Template {
	shell := template.Must(template.New("shell").Funcs(funcs).Parse(sources["shell"]))
	template.Must(shell.New("flash").Parse(sources["flash"]))

	out := make(map[string]*template.Template)
	for name, src := range sources {
		if name == "shell" || name == "flash" {
			continue
		}
		t := template.Must(shell.Clone())
		template.Must(t.New("content").Parse(src))
		out[name] = t
	}
	return out
}

// renderTemplate executes page name inside the shell.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	t, ok := pages[name]
	if !ok {
		return fmt.Errorf("no page %q", name)
	}
	return t.ExecuteTemplate(w, "shell", data)
}

// sources maps page names to their markup. "shell" wraps every page and
// "flash" is the notice banner shared by list views.
var sources = map[string]string{
	"shell": `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-slate-100 text-slate-900 min-h-screen">
{{with .Session}}
<header class="bg-slate-900 text-slate-100">
  <div class="max-w-6xl mx-auto px-4 h-12 flex items-center justify-between">
    <a href="/products" class="font-semibold tracking-wide">shopadmin</a>
    <div class="flex items-center gap-4 text-sm">
      <span id="signed-in-as" class="text-slate-400">{{.Username}}</span>
      <form action="/logout" method="POST"><button class="hover:underline">Sign out</button></form>
    </div>
  </div>
</header>
{{end}}
<main class="max-w-6xl mx-auto p-4">
{{template "content" .}}
</main>
</body>
</html>`,

	"flash": `{{if .Notice}}
<div id="notice" class="mb-4 rounded-md bg-green-50 p-4 text-sm text-green-700">{{.Notice}}</div>
{{end}}
{{if .Error}}
<div id="error" class="mb-4 rounded-md bg-red-50 p-4 text-sm text-red-700">{{.Error}}</div>
{{end}}`,

	"login": `
<div class="max-w-sm mx-auto mt-24 bg-white rounded-lg shadow p-8">
  <h1 class="text-2xl font-semibold text-center">shopadmin</h1>
  <p class="text-sm text-slate-500 text-center mb-6">Sign in with your products API account</p>
  {{with .Error}}<div id="error" class="mb-4 rounded bg-rose-50 px-3 py-2 text-sm text-rose-700">{{.}}</div>{{end}}
  <form action="/login" method="POST" class="space-y-3">
    <input type="hidden" name="next" value="{{.Next}}">
    <label class="block text-sm">Username
      <input id="username" name="username" value="{{.Username}}" required autofocus class="mt-1 w-full rounded border border-slate-300 px-3 py-2">
    </label>
    <label class="block text-sm">Password
      <input id="password" name="password" type="password" required class="mt-1 w-full rounded border border-slate-300 px-3 py-2">
    </label>
    <button class="w-full rounded bg-slate-900 py-2 text-white font-medium hover:bg-slate-700">Sign in</button>
  </form>
</div>`,

	"error": `
<div class="mt-24 text-center">
  <h1 class="text-3xl font-semibold mb-2">{{.Heading}}</h1>
  <p id="message" class="text-slate-600 mb-6">{{.Message}}</p>
  <a href="/products" class="text-sky-700 hover:underline">Back to products</a>
</div>`,

	"products/list": `
<div class="px-4 py-6 sm:px-0 space-y-4">
    <div class="flex flex-wrap items-center justify-between gap-3">
        <div>
            <h1 class="text-2xl font-semibold text-gray-900">Products</h1>
            <p class="text-sm text-gray-500">Loaded {{formatCount .Pagination.Shown}} / {{formatCount .Pagination.Total}}</p>
        </div>
        <div class="flex items-center gap-2">
            <form id="search-form" action="/products" method="GET" class="flex gap-2">
                <input id="search" name="q" value="{{.Query.Q}}" placeholder="Search..." autocomplete="off"
                       class="w-64 px-3 py-2 border border-gray-300 rounded-md text-sm">
                {{with .Query.SortBy}}<input type="hidden" name="sortBy" value="{{.}}">{{end}}
                {{if .Query.SortBy}}<input type="hidden" name="order" value="{{.Query.Order}}">{{end}}
                <input type="hidden" name="take" value="{{.Query.Take}}">
                {{with .Query.Filters.Category}}<input type="hidden" name="category" value="{{.}}">{{end}}
                {{with .Query.Filters.Brand}}<input type="hidden" name="brand" value="{{.}}">{{end}}
                {{with .Query.Filters.PriceMin}}<input type="hidden" name="priceMin" value="{{.}}">{{end}}
                {{with .Query.Filters.PriceMax}}<input type="hidden" name="priceMax" value="{{.}}">{{end}}
            </form>
            {{if .Query.Q}}
            <a href="{{.Links.ClearSearch}}" class="px-3 py-2 border border-gray-300 rounded-md text-sm text-gray-700 bg-white">Clear</a>
            {{end}}
            <a href="{{.Links.New}}" class="px-4 py-2 rounded-md text-sm font-medium text-white bg-indigo-600 hover:bg-indigo-700">New product</a>
        </div>
    </div>

    {{template "flash" .}}

    <form id="filters" action="/products" method="GET" class="flex flex-wrap items-end gap-3 bg-white p-4 rounded-md shadow-sm">
        {{with .Query.Q}}<input type="hidden" name="q" value="{{.}}">{{end}}
        {{with .Query.SortBy}}<input type="hidden" name="sortBy" value="{{.}}">{{end}}
        {{if .Query.SortBy}}<input type="hidden" name="order" value="{{.Query.Order}}">{{end}}
        <input type="hidden" name="take" value="{{.Query.Take}}">
        <label class="text-sm">Category
            <select name="category" class="block mt-1 px-3 py-2 border border-gray-300 rounded-md">
                <option value="">All categories</option>
                {{range .Categories}}
                <option value="{{.}}"{{if eq . $.Query.Filters.Category}} selected{{end}}>{{.}}</option>
                {{end}}
            </select>
        </label>
        <label class="text-sm">Brand
            <input name="brand" value="{{.Query.Filters.Brand}}" placeholder="Brand" class="block mt-1 px-3 py-2 border border-gray-300 rounded-md">
        </label>
        <label class="text-sm">Min price
            <input name="priceMin" value="{{.Query.Filters.PriceMin}}" inputmode="decimal" class="block mt-1 w-28 px-3 py-2 border border-gray-300 rounded-md">
        </label>
        <label class="text-sm">Max price
            <input name="priceMax" value="{{.Query.Filters.PriceMax}}" inputmode="decimal" class="block mt-1 w-28 px-3 py-2 border border-gray-300 rounded-md">
        </label>
        <button type="submit" class="px-4 py-2 rounded-md text-sm font-medium text-white bg-indigo-600">Apply</button>
        {{if .Query.Filters.Active}}
        <a href="{{.Links.ClearFilters}}" class="px-3 py-2 text-sm text-gray-700">Clear filters</a>
        {{end}}
    </form>

    <div class="bg-white shadow overflow-hidden sm:rounded-md">
        <table class="min-w-full divide-y divide-gray-200 text-sm">
            <thead class="bg-gray-50">
                <tr>
                    <th class="px-4 py-2 text-left w-16">ID</th>
                    <th class="px-4 py-2 text-left"><a id="sort-title" href="{{.Links.SortTitle}}">Title {{.TitleMark}}</a></th>
                    <th class="px-4 py-2 text-left"><a id="sort-price" href="{{.Links.SortPrice}}">Price {{.PriceMark}}</a></th>
                    <th class="px-4 py-2 text-left">Stock</th>
                    <th class="px-4 py-2 text-left">Category</th>
                    <th class="px-4 py-2 text-left">Brand</th>
                    <th class="px-4 py-2 text-left">Rating</th>
                    <th class="px-4 py-2 text-left w-40">Actions</th>
                </tr>
            </thead>
            <tbody class="divide-y divide-gray-200">
                {{range .Rows}}
                <tr id="product-{{.ID}}">
                    <td class="px-4 py-2 text-gray-500">{{.ID}}</td>
                    <td class="px-4 py-2 font-medium">{{.Title}}</td>
                    <td class="px-4 py-2">{{formatPrice .Price}}</td>
                    <td class="px-4 py-2">{{formatCount .Stock}}</td>
                    <td class="px-4 py-2">{{orDash .Category}}</td>
                    <td class="px-4 py-2">{{orDash .Brand}}</td>
                    <td class="px-4 py-2">{{formatRating .Rating}}</td>
                    <td class="px-4 py-2 space-x-2">
                        <a href="/products/{{.ID}}/edit?return={{$.Location}}" class="text-indigo-600">Edit</a>
                        <a href="/products/{{.ID}}/delete?return={{$.Location}}" class="text-red-600">Delete</a>
                    </td>
                </tr>
                {{else}}
                <tr><td colspan="8" class="px-4 py-8 text-center text-gray-500">No products found.</td></tr>
                {{end}}
            </tbody>
        </table>
    </div>

    {{if .Pagination.HasMore}}
    <div class="flex justify-center">
        <a id="show-more" href="{{.Links.ShowMore}}" class="px-4 py-2 border border-gray-300 text-sm font-medium rounded-md text-gray-700 bg-white hover:bg-gray-50">Show more</a>
    </div>
    {{end}}
</div>
<script>
(function () {
    var input = document.getElementById("search");
    if (!input) return;
    var timer = null;
    input.addEventListener("input", function () {
        clearTimeout(timer);
        timer = setTimeout(function () {
            var params = new URLSearchParams(window.location.search);
            params.delete("notice");
            params.delete("error");
            params.delete("skip");
            if (input.value) { params.set("q", input.value); } else { params.delete("q"); }
            var qs = params.toString();
            window.location.replace(window.location.pathname + (qs ? "?" + qs : ""));
        }, {{.DebounceMS}});
    });
    window.addEventListener("pagehide", function () { clearTimeout(timer); });
})();
</script>
`,

	"products/form": `
<div class="px-4 py-6 sm:px-0 max-w-xl">
    <h1 class="text-2xl font-semibold text-gray-900 mb-6">{{.Page.Heading}}</h1>
    {{with .Page.Error}}
    <div id="error" class="mb-4 rounded-md bg-red-50 p-4 text-sm text-red-700">{{.}}</div>
    {{end}}
    <form action="{{.Page.Action}}" method="POST" class="space-y-4 bg-white p-6 rounded-md shadow-sm" novalidate>
        <input type="hidden" name="return" value="{{.Page.Return}}">
        <div>
            <label for="title" class="block text-sm font-medium">Title</label>
            <input id="title" name="title" value="{{.Page.Form.Title}}" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md">
            {{with fieldError .Page.Errors "title"}}<p class="mt-1 text-sm text-red-600" data-field="title">{{.}}</p>{{end}}
        </div>
        <div class="grid grid-cols-2 gap-4">
            <div>
                <label for="price" class="block text-sm font-medium">Price</label>
                <input id="price" name="price" value="{{.Page.Form.Price}}" inputmode="decimal" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md">
                {{with fieldError .Page.Errors "price"}}<p class="mt-1 text-sm text-red-600" data-field="price">{{.}}</p>{{end}}
            </div>
            <div>
                <label for="stock" class="block text-sm font-medium">Stock</label>
                <input id="stock" name="stock" value="{{.Page.Form.Stock}}" inputmode="numeric" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md">
                {{with fieldError .Page.Errors "stock"}}<p class="mt-1 text-sm text-red-600" data-field="stock">{{.}}</p>{{end}}
            </div>
        </div>
        <div>
            <label for="category" class="block text-sm font-medium">Category</label>
            <select id="category" name="category" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md">
                <option value="">Select a category</option>
                {{range .Categories}}
                <option value="{{.}}"{{if eq . $.Page.Form.Category}} selected{{end}}>{{.}}</option>
                {{end}}
            </select>
            {{with fieldError .Page.Errors "category"}}<p class="mt-1 text-sm text-red-600" data-field="category">{{.}}</p>{{end}}
        </div>
        <div>
            <label for="brand" class="block text-sm font-medium">Brand</label>
            <input id="brand" name="brand" value="{{.Page.Form.Brand}}" placeholder="Optional" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md">
        </div>
        <div class="flex justify-end gap-2">
            <a href="{{.Cancel}}" class="px-4 py-2 border border-gray-300 rounded-md text-sm text-gray-700">Cancel</a>
            <button type="submit" class="px-4 py-2 rounded-md text-sm font-medium text-white bg-indigo-600 hover:bg-indigo-700">Save</button>
        </div>
    </form>
</div>
`,

	"products/delete": `
<div class="px-4 py-6 sm:px-0 max-w-xl">
    <h1 class="text-2xl font-semibold text-gray-900 mb-4">Delete product</h1>
    <p class="text-gray-700 mb-6">Delete <strong>{{.Product.Title}}</strong> (#{{.Product.ID}})? This cannot be undone.</p>
    <form action="/products/{{.Product.ID}}/delete" method="POST" class="flex gap-2">
        <input type="hidden" name="return" value="{{.Return}}">
        <a href="{{.Cancel}}" class="px-4 py-2 border border-gray-300 rounded-md text-sm text-gray-700">Cancel</a>
        <button type="submit" class="px-4 py-2 rounded-md text-sm font-medium text-white bg-red-600 hover:bg-red-700">Delete</button>
    </form>
</div>
`,
}
