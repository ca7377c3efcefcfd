package main

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/spektr-org/immistat/engine"
	"github.com/spektr-org/immistat/schema"
)

// viewFlags are the query flags shared by the view commands.
type viewFlags struct {
	nName        string // "" when the command takes no n
	n            int
	categories   []string
	districts    []string
	governorates []string
	sortBy       string
}

func (f *viewFlags) register(cmd *cobra.Command, nName, nUsage string) {
	fs := cmd.Flags()
	f.nName = nName
	if nName != "" {
		fs.IntVar(&f.n, nName, 0, nUsage+" (default $IMMISTAT_TOP_N)")
	}
	fs.StringSliceVar(&f.categories, "categories", nil, "restrict to these categories; an empty value selects none (default all)")
	fs.StringSliceVar(&f.districts, "district", nil, "keep only these districts")
	fs.StringSliceVar(&f.governorates, "governorate", nil, "keep only districts in these governorates")
}

// spec builds the QuerySpec for view. An unset --categories means all
// categories; --categories= means none.
func (f *viewFlags) spec(cmd *cobra.Command, view string) (engine.QuerySpec, error) {
	spec := engine.QuerySpec{View: view, SortBy: f.sortBy}
	if f.nName != "" && cmd.Flags().Changed(f.nName) {
		if f.n <= 0 {
			return spec, withCode(exitUsage, errors.Errorf("--%s must be positive, got %d", f.nName, f.n))
		}
		spec.N = f.n
	}
	if cmd.Flags().Changed("categories") {
		spec.Categories = cleanList(f.categories)
	}
	dims := make(map[string][]string)
	if list := cleanList(f.districts); len(list) > 0 {
		dims[schema.DimensionDistrict] = list
	}
	if list := cleanList(f.governorates); len(list) > 0 {
		dims[schema.DimensionGovernorate] = list
	}
	if len(dims) > 0 {
		spec.Filters.Dimensions = dims
	}
	return spec, nil
}

// cleanList trims values and drops blanks. The result is never nil.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// runView loads the source, executes spec and renders the result.
func (a *app) runView(cmd *cobra.Command, spec engine.QuerySpec) error {
	res, err := a.load(cmd.Context())
	if err != nil {
		return err
	}
	result, err := engine.Execute(spec, res.Dataset, a.engineOptions()...)
	if err != nil {
		return err
	}
	return a.write(cmd, result, resultTables(result))
}

// newViewCmd builds a command that runs one engine view.
func newViewCmd(a *app, view string, cmd *cobra.Command, nName, nUsage string) *cobra.Command {
	f := &viewFlags{}
	f.register(cmd, nName, nUsage)
	if view == engine.ViewGovernorates {
		cmd.Flags().StringVar(&f.sortBy, "sort", engine.SortTotalDesc, "order: total_desc, total_asc, label_asc, label_desc")
	}
	cmd.Args = cobra.NoArgs
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		spec, err := f.spec(cmd, view)
		if err != nil {
			return err
		}
		return a.runView(cmd, spec)
	}
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return newViewCmd(a, engine.ViewInsights, &cobra.Command{
		Use:   "summary",
		Short: "Key metrics: grand total, top district, largest category, governorate shares",
		Example: `  immistat summary --format table
  immistat summary --top 5 --categories Syrian,Egyptian`,
	}, "top", "districts counted in the top-district share")
}

func newTopCmd(a *app) *cobra.Command {
	return newViewCmd(a, engine.ViewTopDistricts, &cobra.Command{
		Use:   "top",
		Short: "Districts ranked by total, largest first",
		Example: `  immistat top --n 5 --format table
  immistat top --n 10 --categories Syrian --governorate "Mount Lebanon"`,
	}, "n", "number of districts")
}

func newDistrictsCmd(a *app) *cobra.Command {
	return newViewCmd(a, engine.ViewDistricts, &cobra.Command{
		Use:   "districts",
		Short: "Every district in input order",
	}, "", "")
}

func newGovernoratesCmd(a *app) *cobra.Command {
	return newViewCmd(a, engine.ViewGovernorates, &cobra.Command{
		Use:   "governorates",
		Short: "Totals per governorate",
	}, "", "")
}

func newCategoriesCmd(a *app) *cobra.Command {
	return newViewCmd(a, engine.ViewCategories, &cobra.Command{
		Use:   "categories",
		Short: "Grand total per category, largest first",
	}, "", "")
}

func newCompositionCmd(a *app) *cobra.Command {
	return newViewCmd(a, engine.ViewComposition, &cobra.Command{
		Use:   "composition",
		Short: "Per-category breakdown of the top districts",
	}, "n", "number of districts")
}

func newLeadingCmd(a *app) *cobra.Command {
	f := &viewFlags{}
	cmd := &cobra.Command{
		Use:       "leading district|category",
		Short:     "The district or category with the largest total",
		ValidArgs: []string{"district", "category"},
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return withCode(exitUsage, errors.New("expected one argument: district or category"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var view string
			switch strings.ToLower(args[0]) {
			case "district":
				view = engine.ViewLeadingDistrict
			case "category":
				view = engine.ViewLeadingCategory
			default:
				return withCode(exitUsage, errors.Errorf("unknown target %q (want district or category)", args[0]))
			}
			spec, err := f.spec(cmd, view)
			if err != nil {
				return err
			}
			return a.runView(cmd, spec)
		},
	}
	f.register(cmd, "", "")
	return cmd
}
