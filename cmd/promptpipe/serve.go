package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/web"
)

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Start the JSON API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.closeFn()

			server := web.NewServer(a.engine, a.manager, a.history)
			return server.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}
