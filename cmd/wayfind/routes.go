package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/wayfind/internal/declfile"
	"github.com/vango-dev/wayfind/pkg/router"
)

func routesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes <declarations.json>",
		Short: "Print the compiled route table",
		Long: `Build the route table from a declaration file and print every record in
matching priority order. Wildcard entries sort last; aliases show the path
they resolve to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decls, err := declfile.Load(args[0])
			if err != nil {
				return err
			}
			table := router.NewTable(decls)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tNAME\tKIND")
			for _, rec := range table.Records() {
				kind := "route"
				switch {
				case rec.MatchAs != "":
					kind = "alias -> " + rec.MatchAs
				case rec.Redirect != nil:
					kind = "redirect"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Path, rec.Name, kind)
			}
			return w.Flush()
		},
	}
	return cmd
}
