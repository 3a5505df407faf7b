package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSignaturesCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:          "signatures",
		Short:        "Print the export signatures that will be bound",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd, nil)
			if err != nil {
				return err
			}
			table := cfg.Signatures()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				data, err := json.MarshalIndent(table, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s\n", data)
				return err
			case "text":
				w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tKIND\tC DECLARATION")
				for _, sig := range table {
					fmt.Fprintf(w, "%s\t%s\t%s\n", sig.Name, sig.Kind, sig.Kind.CSignature(sig.Name))
				}
				return w.Flush()
			default:
				return fmt.Errorf("invalid format %q: must be text or json", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")
	return cmd
}
