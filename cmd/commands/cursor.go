package commands

import (
	"fmt"
	"strings"

	"github.com/ncobase/docmapper/paging"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

// NewCursorCommand creates the cursor command
func NewCursorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Encode and decode pagination cursors",
	}

	cmd.AddCommand(
		newCursorEncodeCommand(),
		newCursorDecodeCommand(),
	)
	return cmd
}

func newCursorEncodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [value...]",
		Short: "Encode extended JSON values into a cursor",
		Example: `  docmapper cursor encode '{"$oid": "611b158adec89d18984b7d90"}'
  docmapper cursor encode 2 '"name"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(args)
			if err != nil {
				return err
			}
			token, err := paging.EncodeCursor(values)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newCursorDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <cursor>",
		Short: "Print the values of a cursor as extended JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := paging.DecodeCursor(args[0])
			if err != nil {
				return err
			}
			out, err := formatValues(values)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// parseValues reads each argument as one relaxed extended JSON value.
func parseValues(args []string) ([]any, error) {
	raw := `{"v": [` + strings.Join(args, ",") + `]}`
	var doc struct {
		V bson.A `bson:"v"`
	}
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &doc); err != nil {
		return nil, fmt.Errorf("invalid values: %w", err)
	}
	return []any(doc.V), nil
}

// formatValues renders values as a relaxed extended JSON array.
func formatValues(values []any) (string, error) {
	out, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: bson.A(values)}}, false, false)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(out))
	s = strings.TrimPrefix(s, `{"v":`)
	return strings.TrimSuffix(s, "}"), nil
}
