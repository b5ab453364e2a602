package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "optimize",
		Short:        "Run prompt optimization against the validation set",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.closeFn()

			run, err := a.manager.ManualOptimize(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%s %s\n", labelStyle.Render("Run:"), run.ID)
			fmt.Printf("%s %s\n", labelStyle.Render("Outcome:"), renderOutcome(string(run.Outcome)))
			fmt.Printf("%s candidate %.2f vs baseline %.2f\n", labelStyle.Render("Scores:"), run.CandidateScore, run.BaselineScore)
			if run.Notes != "" {
				fmt.Printf("%s %s\n", labelStyle.Render("Notes:"), run.Notes)
			}
			return nil
		},
	}
	return cmd
}
