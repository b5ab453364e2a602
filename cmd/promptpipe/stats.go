package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/store"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "stats",
		Short:        "Show aggregate statistics over the persisted solve history",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Path == "" {
				return fmt.Errorf("persistence is disabled; no history to aggregate")
			}
			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := store.NewStore(db).Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Println(sectionStyle.Render("Solve statistics"))
			fmt.Printf("  %s %d\n", labelStyle.Render("problems solved:"), stats.Solves)
			fmt.Printf("  %s %s\n", labelStyle.Render("avg confidence: "), renderConfidence(stats.AvgConfidence))
			fmt.Printf("  %s %d\n", labelStyle.Render("arbitrated:     "), stats.Arbitrated)
			types := make([]string, 0, len(stats.ByType))
			for pt := range stats.ByType {
				types = append(types, pt)
			}
			sort.Strings(types)
			for _, pt := range types {
				fmt.Printf("  %s %d\n", dimStyle.Render(pt+":"), stats.ByType[pt])
			}
			return nil
		},
	}
}
