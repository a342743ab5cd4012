package main

import (
	"fmt"
	"os"

	"novel-forge/backend/pkg/config"
	"novel-forge/backend/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *logger.Logger

	rootCmd = &cobra.Command{
		Use:   "novel-forge",
		Short: "Backend for the Novel Forge writing assistant",
		Long: `Serves the novel, chapter and conversation API and relays AI chat
turns from the configured chat-completions provider.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}

			logConfig := logger.DefaultConfig()
			logConfig.Level = cfg.Logging.Level
			logConfig.JSON = cfg.Logging.Format != "text"
			log = logger.New(logConfig)
			logger.SetGlobal(log)
			return nil
		},
	}
)

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
