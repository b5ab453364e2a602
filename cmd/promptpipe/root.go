package main

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/logging"
)

var (
	cfgFile string
	debug   bool
	quiet   bool
	rootCmd = &cobra.Command{
		Use:   "promptpipe",
		Short: "promptpipe is a multi-path reasoning engine with prompt self-optimization",
	}
)

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", filepath.Join(".promptpipe", "config.yaml"), "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error logging")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logging.Init(debug, quiet)
	}
	rootCmd.AddCommand(solveCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(optimizeCmd())
	rootCmd.AddCommand(promptsCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd.Execute()
}

func initConfig() {
	path := cfgFile
	if path == "" {
		path = filepath.Join(".promptpipe", "config.yaml")
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
}
