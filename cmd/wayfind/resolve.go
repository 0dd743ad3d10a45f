package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/wayfind/internal/declfile"
	"github.com/vango-dev/wayfind/pkg/router"
)

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <declarations.json> <target>",
		Short: "Match a target against the route table",
		Long: `Resolve a navigation target and print the matched chain, extracted
parameters, and redirect trail. A target starting with "#" is treated as a
route name ("#user"); anything else as a path ("/users/7?tab=posts").`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decls, err := declfile.Load(args[0])
			if err != nil {
				return err
			}
			table := router.NewTable(decls)
			matcher := router.NewMatcher(table, nil)

			var loc router.Location
			if name, ok := strings.CutPrefix(args[1], "#"); ok {
				loc = router.Location{Name: name}
			} else {
				loc = router.Loc(args[1])
			}

			route := matcher.Match(loc, nil, nil)
			out := cmd.OutOrStdout()
			if len(route.Matched) == 0 {
				fmt.Fprintf(out, "no match for %q\n", args[1])
				return nil
			}

			fmt.Fprintf(out, "fullPath: %s\n", route.FullPath)
			if route.Name != "" {
				fmt.Fprintf(out, "name:     %s\n", route.Name)
			}
			if route.RedirectedFrom != nil {
				fmt.Fprintf(out, "redirected from: %s\n", route.RedirectedFrom.Path)
			}
			if len(route.Params) > 0 {
				keys := make([]string, 0, len(route.Params))
				for k := range route.Params {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintln(out, "params:")
				for _, k := range keys {
					fmt.Fprintf(out, "  %s = %s\n", k, route.Params[k])
				}
			}
			fmt.Fprintln(out, "matched chain:")
			for i, rec := range route.Matched {
				fmt.Fprintf(out, "  %d. %s\n", i, rec.Path)
			}
			return nil
		},
	}
	return cmd
}
