package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/murmurapp/murmur-server/internal/di/providers"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/store"
)

// QueryOutput is the result of the query command.
type QueryOutput struct {
	Collection string           `json:"collection"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	HasMore    bool             `json:"hasMore"`
	Items      []query.Document `json:"items"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <collection> [querystring]",
		Short: "Run a list query against a collection",
		Long: `Run a list query against users, posts or comments and print the page.

The query string uses the same syntax as the HTTP API, for example:

  murmurctl query posts 'likeCount[gte]=2&sort=-createdAt&fields=title,likeCount&limit=5'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, ok := query.SchemaFor(args[0])
			if !ok {
				return fmt.Errorf("unknown collection %q: must be users, posts or comments", args[0])
			}

			raw := ""
			if len(args) == 2 {
				raw = args[1]
			}
			params, err := query.ParseQuery(raw)
			if err != nil {
				return err
			}

			return rootOpts.withContainer(cmd, func(i do.Injector) error {
				opts := do.MustInvoke[providers.QueryOptions](i)
				src := sourceFor(storeOf(i).RecordStore, schema.Name())

				res, err := query.New(schema, opts...).Run(cmd.Context(), src, nil, params, true)
				if err != nil {
					return err
				}

				out := QueryOutput{
					Collection: schema.Name(),
					Page:       res.Page,
					Limit:      res.Limit,
					Total:      res.Total,
					HasMore:    res.HasMore,
					Items:      res.Items,
				}
				return printQueryOutput(newFormatter(rootOpts, cmd.OutOrStdout()), out)
			})
		},
	}

	return cmd
}

func sourceFor(rs store.RecordStore, collection string) query.Source {
	switch collection {
	case query.CollectionUsers:
		return rs.Users()
	case query.CollectionComments:
		return rs.Comments()
	default:
		return rs.Posts()
	}
}

func printQueryOutput(f *OutputFormatter, out QueryOutput) error {
	return f.Output(out, func(w io.Writer) error {
		l := &line{w: w}
		l.printf("%s page %d (limit %d): %d of %d", out.Collection, out.Page, out.Limit, len(out.Items), out.Total)
		for _, item := range out.Items {
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			l.printf("  %s", data)
		}
		if out.HasMore {
			l.printf("more results on page %d", out.Page+1)
		}
		return l.err
	})
}
