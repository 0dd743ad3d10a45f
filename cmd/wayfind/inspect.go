package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vango-dev/wayfind/internal/declfile"
	"github.com/vango-dev/wayfind/pkg/history"
	"github.com/vango-dev/wayfind/pkg/inspect"
	"github.com/vango-dev/wayfind/pkg/router"
)

func inspectCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "inspect <declarations.json>",
		Short: "Serve the route table and live transitions over HTTP",
		Long: `Build a controller over the declaration file with an in-memory history
and serve it for inspection:

  GET /routes   route table snapshot
  GET /route    current route
  GET /events   WebSocket stream of committed transitions
  GET /metrics  Prometheus metrics

POST a path to navigate programmatically while inspecting:

  curl -X POST localhost:8990/navigate -d '/users/7'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decls, err := declfile.Load(args[0])
			if err != nil {
				return err
			}

			table := router.NewTable(decls)
			mem := history.NewMemory("/")
			controller := router.New(table, mem, router.WithMetrics(router.NewMetrics()))
			mem.Bind(controller)
			controller.TransitionTo(router.Loc(mem.Location()), nil, nil)

			srv := inspect.NewServer(controller)
			defer srv.Close()

			mux := http.NewServeMux()
			mux.Handle("/", srv.Handler())
			mux.HandleFunc("POST /navigate", func(w http.ResponseWriter, r *http.Request) {
				var raw string
				if _, err := fmt.Fscan(r.Body, &raw); err != nil {
					http.Error(w, "missing target path", http.StatusBadRequest)
					return
				}
				controller.TransitionTo(router.Loc(raw),
					func(to *router.Route) {
						fmt.Fprintf(w, "committed %s\n", to.FullPath)
					},
					func(err error) {
						http.Error(w, err.Error(), http.StatusConflict)
					})
			})

			fmt.Fprintf(cmd.OutOrStdout(), "wayfind inspector listening on %s\n", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8990", "listen address")

	return cmd
}
