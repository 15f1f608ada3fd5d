package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/me/shopadmin/internal/catalog"
	"github.com/me/shopadmin/internal/querystate"
	"github.com/me/shopadmin/pkg/model"
)

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product", "p"},
		Short:   "List and manage products",
	}
	cmd.AddCommand(
		newProductsListCmd(a),
		newProductsGetCmd(a),
		newProductsCreateCmd(a),
		newProductsUpdateCmd(a),
		newProductsDeleteCmd(a),
	)
	return cmd
}

// listFlags maps the list flags onto query state keys.
var listFlags = []struct {
	flag, key, usage string
}{
	{"q", querystate.KeyQuery, "Search text"},
	{"sort-by", querystate.KeySortBy, "Sort field (title, price, stock, rating, ...)"},
	{"order", querystate.KeyOrder, "Sort order (asc, desc)"},
	{"take", querystate.KeyTake, "Page size"},
	{"skip", querystate.KeySkip, "Rows to skip"},
	{"category", querystate.KeyCategory, "Category filter"},
	{"brand", querystate.KeyBrand, "Brand filter"},
	{"price-min", querystate.KeyPriceMin, "Minimum price filter"},
	{"price-max", querystate.KeyPriceMax, "Maximum price filter"},
}

// listState merges an explicit --query with any list flags given. Flags
// win over keys of the same name in --query.
func listState(query string, flags *pflag.FlagSet) querystate.State {
	patch := querystate.Patch{}
	for _, lf := range listFlags {
		if flags.Changed(lf.flag) {
			v, _ := flags.GetString(lf.flag)
			patch[lf.key] = v
		}
	}
	return querystate.Parse(query).Apply(patch)
}

func newProductsListCmd(a *app) *cobra.Command {
	var query, output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Long: `List one page of products.

The view can be given as flags or as a shareable query string, e.g.
  shopadmin products list --query "q=phone&sortBy=price&order=desc"
The query line printed under the table reproduces the same view.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output); err != nil {
				return err
			}
			client, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}

			state := listState(query, cmd.Flags())
			lq := querystate.ReadListQuery(state)
			if lq.Take == querystate.DefaultTake && !state.Has(querystate.KeyTake) {
				lq.Take = a.cfg.UI.PageSize
			}

			page, err := client.List(cmd.Context(), catalog.ParamsFromQuery(lq))
			if err != nil {
				return apiError("list products", err)
			}

			out := cmd.OutOrStdout()
			if output != formatTable {
				return encode(out, output, page)
			}

			if len(page.Products) == 0 {
				fmt.Fprintln(out, "No products found.")
			} else {
				printProducts(out, page.Products)
				p := model.NewPagination(lq.Skip, lq.Take, lq.Skip+len(page.Products), page.Total)
				fmt.Fprintf(out, "\nShowing %s-%s of %s\n",
					humanize.Comma(int64(lq.Skip+1)),
					humanize.Comma(int64(lq.Skip+len(page.Products))),
					humanize.Comma(int64(page.Total)))
				if p.HasMore {
					next := state.Apply(querystate.Patch{querystate.KeySkip: p.NextOffset()})
					fmt.Fprintf(out, "next:  --query %q\n", next.Encode())
				}
			}
			if enc := state.Encode(); enc != "" {
				fmt.Fprintf(out, "query: %s\n", enc)
			}
			return nil
		},
	}

	for _, lf := range listFlags {
		cmd.Flags().String(lf.flag, "", lf.usage)
	}
	cmd.Flags().StringVar(&query, "query", "", "Shareable view state (q=...&sortBy=...&order=...&take=...&skip=...)")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "Output format (table, json, yaml)")
	return cmd
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", arg)
	}
	return id, nil
}

func newProductsGetCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			p, err := client.Get(cmd.Context(), id)
			if err != nil {
				return apiError("get product", err)
			}
			if output != formatTable {
				return encode(cmd.OutOrStdout(), output, p)
			}
			printProduct(cmd.OutOrStdout(), *p)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "Output format (table, json, yaml)")
	return cmd
}

// addFormFlags registers one flag per product form field.
func addFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Product title")
	cmd.Flags().String("price", "", "Price (> 0)")
	cmd.Flags().String("stock", "", "Units in stock (>= 0)")
	cmd.Flags().String("category", "", "Category slug")
	cmd.Flags().String("brand", "", "Brand")
}

// fillForm overwrites the fields of f whose flags were given.
func fillForm(f model.ProductForm, flags *pflag.FlagSet) model.ProductForm {
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	set("title", &f.Title)
	set("price", &f.Price)
	set("stock", &f.Stock)
	set("category", &f.Category)
	set("brand", &f.Brand)
	return f
}

// validateForm parses f, printing field errors to stderr on failure.
func validateForm(cmd *cobra.Command, f model.ProductForm) (model.ProductInput, error) {
	in, err := f.Parse()
	var fieldErrs model.FieldErrors
	if errors.As(err, &fieldErrs) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Please fix the following fields:")
		printFieldErrors(cmd.ErrOrStderr(), fieldErrs)
		return in, errors.New("invalid product")
	}
	return in, err
}

func newProductsCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := validateForm(cmd, fillForm(model.NewProductForm(), cmd.Flags()))
			if err != nil {
				return err
			}
			client, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			p, err := client.Create(cmd.Context(), in)
			if err != nil {
				return apiError("create product", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product created (#%d)\n", p.ID)
			return nil
		},
	}
	addFormFlags(cmd)
	return cmd
}

func newProductsUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product",
		Long:  "Update a product. Fields without a flag keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			current, err := client.Get(cmd.Context(), id)
			if err != nil {
				return apiError("get product", err)
			}
			in, err := validateForm(cmd, fillForm(model.FormFromProduct(*current), cmd.Flags()))
			if err != nil {
				return err
			}
			if _, err := client.Update(cmd.Context(), id, in); err != nil {
				return apiError("update product", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product updated (#%d)\n", id)
			return nil
		},
	}
	addFormFlags(cmd)
	return cmd
}

func newProductsDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				answer, err := prompt(cmd.OutOrStdout(), bufio.NewReader(cmd.InOrStdin()),
					fmt.Sprintf("Delete product #%d? [y/N] ", id))
				if err != nil {
					return err
				}
				if ans := strings.ToLower(answer); ans != "y" && ans != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			client, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := client.Delete(cmd.Context(), id); err != nil {
				return apiError("delete product", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product deleted (#%d)\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			cats, err := client.Categories(cmd.Context())
			if err != nil {
				return apiError("list categories", err)
			}
			for _, c := range cats {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
