package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/storageproxy/table"
)

func newSelectCmd(opts *options) *cobra.Command {
	var (
		where  []string
		height int64
	)

	cmd := &cobra.Command{
		Use:   "select <table> <key>",
		Short: "Print the rows stored under a key, one JSON object per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseWhere(where)
			if err != nil {
				return err
			}

			st, closeFn, err := opts.open()
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := st.Select(cmd.Context(), table.BlockContext{Height: height}, args[0], args[1], filter)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, row := range rows.Rows() {
				if err := enc.Encode(row); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&where, "where", nil, "Predicate column:op:value, op one of eq ne gt ge lt le (repeatable)")
	cmd.Flags().Int64Var(&height, "num", 0, "Block height sent with the request")
	return cmd
}

func newCommitCmd(opts *options) *cobra.Command {
	var (
		key    string
		file   string
		height int64
	)

	cmd := &cobra.Command{
		Use:   "commit <table>",
		Short: "Commit a JSON array of rows read from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			rows, err := readRows(in)
			if err != nil {
				return err
			}

			st, closeFn, err := opts.open()
			if err != nil {
				return err
			}
			defer closeFn()

			changes := []*table.Changeset{{
				Info: table.TableInfo{Name: args[0], Key: key},
				Rows: rows,
			}}
			count, err := st.Commit(cmd.Context(), table.BlockContext{Height: height}, changes)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "committed %d row(s)\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key column of the table")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "File holding a JSON array of row objects; - reads stdin")
	cmd.Flags().Int64Var(&height, "num", 0, "Block height sent with the request")
	return cmd
}

// parseWhere builds a filter from column:op:value predicates. The value may
// itself contain colons.
func parseWhere(predicates []string) (*table.Filter, error) {
	filter := table.NewFilter()
	for _, p := range predicates {
		parts := strings.SplitN(p, ":", 3)
		if len(parts) != 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid predicate %q: want column:op:value", p)
		}
		op, err := table.ParseOp(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid predicate %q: %w", p, err)
		}
		filter.Add(table.Predicate{Column: parts[0], Op: op, Value: parts[2]})
	}
	return filter, nil
}

func readRows(r io.Reader) (*table.RowSet, error) {
	var rows []*table.Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return table.NewRowSet(rows...), nil
}
