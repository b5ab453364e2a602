package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/store"
)

func promptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect and manage prompt versions",
	}
	cmd.AddCommand(promptsListCmd())
	cmd.AddCommand(promptsHistoryCmd())
	cmd.AddCommand(promptsRollbackCmd())
	return cmd
}

func promptsListCmd() *cobra.Command {
	var showTemplates bool
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "Show the active prompt set",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := prompts.NewLibrary()
			if err != nil {
				return err
			}
			for _, strategy := range []string{prompts.StrategyTreeOfThought, prompts.StrategySelfConsistency} {
				fmt.Println(sectionStyle.Render(strategy))
				active := lib.ActiveSet(strategy)
				variants := make([]string, 0, len(active))
				for v := range active {
					variants = append(variants, v)
				}
				sort.Strings(variants)
				for _, variant := range variants {
					v := active[variant]
					fmt.Printf("  %s %s\n", labelStyle.Render(variant), dimStyle.Render(fmt.Sprintf("v%d", v.ID)))
					if showTemplates {
						fmt.Println(dimStyle.Render("    " + truncate(v.Template, 100)))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTemplates, "templates", false, "include template text")
	return cmd
}

func promptsHistoryCmd() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "Show the persisted prompt version lineage",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Path == "" {
				return fmt.Errorf("persistence is disabled; no lineage to show")
			}
			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			versions, err := store.NewStore(db).Versions(ctx, strategy)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Println(dimStyle.Render("no recorded versions"))
				return nil
			}
			for _, v := range versions {
				line := fmt.Sprintf("%s/%s v%d", v.Strategy, v.Variant, v.ID)
				if v.BackupOf != 0 {
					line += fmt.Sprintf(" (replaces v%d)", v.BackupOf)
				}
				fmt.Printf("%s %s\n", dimStyle.Render(v.CreatedAt.Format("2006-01-02 15:04:05")), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "filter by strategy")
	return cmd
}

func promptsRollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rollback <strategy> <variant>",
		Short:        "Reactivate the previous version of a prompt",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.closeFn()

			v, err := a.engine.Library().Rollback(args[0], args[1])
			if err != nil {
				return err
			}
			a.syncVersions(ctx)
			fmt.Printf("%s %s/%s back to v%d\n", answerStyle.Render("Rolled"), v.Strategy, v.Variant, v.ID)
			return nil
		},
	}
	return cmd
}
