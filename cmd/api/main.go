package main

import (
	"fmt"
	"os"

	"moviestore/internal/config"
	"moviestore/pkg/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "moviestore",
	Short: "Movie storefront API (catalog, cart, checkout)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		//.envは無くてもよい（本番は環境変数）
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logging.Setup(cfg.LogLevel)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
