package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

func solveCmd() *cobra.Command {
	var problemType string
	var verbose bool
	cmd := &cobra.Command{
		Use:          "solve <problem>",
		Short:        "Solve one problem with multi-path reasoning",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.closeFn()

			problem := reasoning.Problem{
				Text: strings.Join(args, " "),
				Type: reasoning.ProblemType(problemType),
			}
			result := a.engine.Solve(ctx, problem)
			a.saveSolve(ctx, result)

			fmt.Print(renderSolve(result, verbose))
			return nil
		},
	}
	cmd.Flags().StringVarP(&problemType, "type", "t", "", "problem type: math, logic, code, or general")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the per-path breakdown")
	return cmd
}
