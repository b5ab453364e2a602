package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/store"
)

func statusCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:          "status",
		Short:        "Show solve history and optimization activity",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Path == "" {
				return fmt.Errorf("persistence is disabled; no history to show")
			}
			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			history := store.NewStore(db)

			solves, err := history.RecentSolves(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Println(sectionStyle.Render("Recent solves"))
			if len(solves) == 0 {
				fmt.Println(dimStyle.Render("  none"))
			}
			for _, s := range solves {
				fmt.Printf("  %s %s %s %s\n",
					dimStyle.Render(s.CreatedAt),
					truncate(s.Problem, 48),
					answerStyle.Render(truncate(s.Answer, 24)),
					renderConfidence(s.Confidence))
			}

			runs, err := history.Runs(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Println(sectionStyle.Render("Optimization runs"))
			if len(runs) == 0 {
				fmt.Println(dimStyle.Render("  none"))
			}
			for _, run := range runs {
				fmt.Printf("  %s %s %s candidate %.2f vs baseline %.2f\n",
					dimStyle.Render(run.StartedAt.Format("2006-01-02 15:04:05")),
					run.Trigger, renderOutcome(string(run.Outcome)),
					run.CandidateScore, run.BaselineScore)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "max records to show")
	return cmd
}

func renderOutcome(outcome string) string {
	switch outcome {
	case "deployed":
		return answerStyle.Render(outcome)
	case "rolled_back":
		return errStyle.Render(outcome)
	default:
		return warnStyle.Render(outcome)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
