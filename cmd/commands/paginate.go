package commands

import (
	"github.com/ncobase/docmapper/data/mongodb"
	"github.com/ncobase/docmapper/paging"
	"github.com/ncobase/docmapper/types"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

type paginateFlags struct {
	filter     string
	sort       string
	projection string
	after      string
	before     string
	limit      int
}

// NewPaginateCommand creates the paginate command
func NewPaginateCommand(configFile *string) *cobra.Command {
	var f paginateFlags

	cmd := &cobra.Command{
		Use:   "paginate <collection>",
		Short: "Print one page of a collection with its cursors",
		Example: `  docmapper paginate spams --limit 2
  docmapper paginate spams --limit 2 --after <cursor>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer cleanup()

			repo, err := documents(a.data, a.cfg, args[0])
			if err != nil {
				return err
			}
			filter, err := mongodb.ParseFilter(f.filter)
			if err != nil {
				return err
			}
			var projection bson.M
			if f.projection != "" {
				if projection, err = mongodb.ParseFilter(f.projection); err != nil {
					return err
				}
			}
			var sort types.Sort
			if f.sort != "" {
				if sort, err = types.ParseSort(f.sort); err != nil {
					return err
				}
			}

			res, err := repo.Page(cmd.Context(), filter, paging.Params{
				After:  f.after,
				Before: f.before,
				Limit:  f.limit,
			}, sort, projection)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&f.filter, "filter", "", "filter as extended JSON")
	cmd.Flags().StringVar(&f.sort, "sort", "", "comma separated fields, '-' prefix for descending")
	cmd.Flags().StringVar(&f.projection, "projection", "", "projection as extended JSON")
	cmd.Flags().StringVar(&f.after, "after", "", "cursor of the last document already seen")
	cmd.Flags().StringVar(&f.before, "before", "", "cursor of the first document already seen")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size, 0 for the configured default")
	return cmd
}
