package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/me/shopadmin/pkg/model"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return checkFormat(format)
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

// printProducts writes rows as an aligned table.
func printProducts(w io.Writer, rows []model.Product) {
	const row = "%-6s  %-32s  %12s  %8s  %6s  %-18s  %s\n"
	fmt.Fprintf(w, row, "ID", "TITLE", "PRICE", "STOCK", "RATING", "BRAND", "CATEGORY")
	fmt.Fprintf(w, row, "--", "-----", "-----", "-----", "------", "-----", "--------")
	for _, p := range rows {
		fmt.Fprintf(w, row,
			strconv.Itoa(p.ID),
			truncate(p.Title, 32),
			formatPrice(p.Price),
			humanize.Comma(int64(p.Stock)),
			strconv.FormatFloat(p.Rating, 'f', 2, 64),
			truncate(orDash(p.Brand), 18),
			orDash(p.Category),
		)
	}
}

// printProduct writes one product as labelled lines.
func printProduct(w io.Writer, p model.Product) {
	fmt.Fprintf(w, "ID:          %d\n", p.ID)
	fmt.Fprintf(w, "Title:       %s\n", p.Title)
	fmt.Fprintf(w, "Price:       %s\n", formatPrice(p.Price))
	fmt.Fprintf(w, "Stock:       %s\n", humanize.Comma(int64(p.Stock)))
	fmt.Fprintf(w, "Rating:      %.2f\n", p.Rating)
	fmt.Fprintf(w, "Brand:       %s\n", orDash(p.Brand))
	fmt.Fprintf(w, "Category:    %s\n", orDash(p.Category))
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", strings.TrimSpace(p.Description))
	}
}

// printFieldErrors lists validation failures one field per line.
func printFieldErrors(w io.Writer, errs model.FieldErrors) {
	for _, f := range []string{"title", "price", "stock", "category", "brand"} {
		if msg := errs.Field(f); msg != "" {
			fmt.Fprintf(w, "  %-9s %s\n", f+":", msg)
		}
	}
}
