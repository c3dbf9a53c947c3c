package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ncobase/docmapper/config"
	"github.com/ncobase/docmapper/data"
	"github.com/ncobase/docmapper/data/mongodb"
	"github.com/ncobase/docmapper/types"
	"github.com/spf13/cobra"
)

type findFlags struct {
	filter     string
	sort       string
	projection string
	limit      int64
	skip       int64
}

// NewFindCommand creates the find command
func NewFindCommand(configFile *string) *cobra.Command {
	var f findFlags

	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Print the documents of a collection that match a filter",
		Example: `  docmapper find spams --filter '{"name": "spam"}' --sort '-foo.count,id' --limit 10`,
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
			opts, err := f.options()
			if err != nil {
				return err
			}
			filter, err := mongodb.ParseFilter(f.filter)
			if err != nil {
				return err
			}

			docs, err := repo.FindBy(cmd.Context(), filter, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}

	cmd.Flags().StringVar(&f.filter, "filter", "", "filter as extended JSON")
	cmd.Flags().StringVar(&f.sort, "sort", "", "comma separated fields, '-' prefix for descending")
	cmd.Flags().StringVar(&f.projection, "projection", "", "projection as extended JSON")
	cmd.Flags().Int64Var(&f.limit, "limit", 0, "maximum number of documents, 0 for all")
	cmd.Flags().Int64Var(&f.skip, "skip", 0, "number of documents to skip")
	return cmd
}

func (f findFlags) options() (mongodb.FindOptions, error) {
	opts := mongodb.FindOptions{Skip: f.skip, Limit: f.limit}
	if f.sort != "" {
		s, err := types.ParseSort(f.sort)
		if err != nil {
			return opts, err
		}
		opts.Sort = s
	}
	if f.projection != "" {
		p, err := mongodb.ParseFilter(f.projection)
		if err != nil {
			return opts, err
		}
		opts.Projection = p
	}
	return opts, nil
}

// documents opens collection as schemaless documents with the configured
// page bounds.
func documents(d *data.Data, cfg *config.Config, collection string) (*mongodb.Repository[mongodb.Document], error) {
	var opts []mongodb.RepositoryOption
	if cfg != nil && cfg.Paging != nil {
		opts = append(opts, mongodb.WithLimits(cfg.Paging.DefaultLimit, cfg.Paging.MaxLimit))
	}
	return data.NewRepository[mongodb.Document](d, collection, opts...)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
