package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xtg/pdo/internal/backend"
	"github.com/xtg/pdo/internal/pdo"
)

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the backends this binary can connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, token := range backend.Default().Available() {
				fmt.Fprintln(cmd.OutOrStdout(), token)
			}
			return nil
		},
	}
}

func newQueryCmd() *cobra.Command {
	var rawParams []string
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a statement and print its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := run(cmd, args[0], rawParams)
			if err != nil {
				return err
			}
			return printRows(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "parameter as key=value; :name or position (repeatable)")
	return cmd
}

func newExecCmd() *cobra.Command {
	var rawParams []string
	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Run a statement and print the number of affected rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := run(cmd, args[0], rawParams)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.RowCount())
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "parameter as key=value; :name or position (repeatable)")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <text>",
		Short: "Print text escaped for use inside a LIKE literal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			quoted, ok, err := c.Quote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				if code := c.ErrorCode(); code != "" && code != pdo.CodeNone {
					return failure(c.ErrorInfo())
				}
				return fmt.Errorf("%s does not support quoting", c.Kind())
			}
			fmt.Fprintln(cmd.OutOrStdout(), quoted)
			return nil
		},
	}
}

// run prepares query, executes it with the given parameters and returns the
// executed statement.
func run(cmd *cobra.Command, query string, rawParams []string) (*pdo.Statement, error) {
	params, err := parseParams(rawParams)
	if err != nil {
		return nil, err
	}
	c, err := open(cmd)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	st, err := c.Prepare(cmd.Context(), query)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, failure(c.ErrorInfo())
	}
	res, err := st.Execute(cmd.Context(), params)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, failure(st.ErrorInfo())
	}
	return res, nil
}

// printRows writes a tab-aligned header and one line per row. NULL is
// printed as NULL.
func printRows(w io.Writer, st *pdo.Statement) error {
	rows := st.FetchAll()
	if len(rows) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rows[0].Columns(), "\t"))
	for _, row := range rows {
		cells := make([]string, row.Len())
		for i := range cells {
			v, _ := row.At(i)
			if v.Valid {
				cells[i] = v.String
			} else {
				cells[i] = "NULL"
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
