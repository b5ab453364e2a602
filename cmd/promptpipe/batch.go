package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/extract"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/problems"
)

func batchCmd() *cobra.Command {
	var file string
	var concurrency int
	var verbose bool
	cmd := &cobra.Command{
		Use:          "batch",
		Short:        "Solve a YAML problem set",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			set, err := problems.Load(file)
			if err != nil {
				return err
			}

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.closeFn()

			results := a.engine.BatchSolve(ctx, set, concurrency)

			var solved, correct, scored int
			for i, result := range results {
				a.saveSolve(ctx, result)
				if !result.Final.Undetermined() {
					solved++
				}
				if expected := set[i].Expected; expected != "" {
					scored++
					if !result.Final.Undetermined() && extract.Equal(result.Final.Answer, expected) {
						correct++
					}
				}
				fmt.Printf("%s %s\n", dimStyle.Render(fmt.Sprintf("%d/%d", i+1, len(results))), set[i].Text)
				fmt.Print(renderSolve(result, verbose))
				fmt.Println()
			}

			fmt.Printf("%s %d/%d answered", labelStyle.Render("Summary:"), solved, len(results))
			if scored > 0 {
				fmt.Printf(", %d/%d correct against expected answers", correct, scored)
			}
			fmt.Println()

			stats := a.engine.Stats()
			usage := a.client.UsageSnapshot()
			fmt.Printf("%s %d solves, avg confidence %.2f, %d tokens ($%.4f)\n",
				labelStyle.Render("Session:"), stats.ProblemsSolved, stats.AvgConfidence, usage.TotalTokens, usage.EstimatedCost)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML problem set path")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 3, "max problems in flight")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the per-path breakdown")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
