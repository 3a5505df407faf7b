package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sliverarmory/nativecall"
)

func newExportsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "exports <shared library>",
		Short:        "List the symbols a shared library exports (ELF only)",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := opts.load(cmd, args)
			if err != nil {
				return err
			}

			library, err := nativecall.Load(args[0])
			if err != nil {
				return err
			}
			defer library.Close()

			exports, err := library.Exports()
			if err != nil {
				return err
			}
			log.Debug("inspected exports", "path", args[0], "count", len(exports))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE")
			for _, export := range exports {
				typ := "data"
				if export.IsFunc {
					typ = "func"
				}
				fmt.Fprintf(w, "%s\t%s\n", export.Name, typ)
			}
			return w.Flush()
		},
	}
}
