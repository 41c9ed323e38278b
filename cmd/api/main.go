package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"journalapi/internal/config"
)

var cfgFile string

// @title			Journal API
// @version		1.0
// @description	Messages, daily diaries, summarization, agent routing and speech to text.
// @BasePath		/
func main() {
	rootCmd := &cobra.Command{
		Use:          "journal-api",
		Short:        "Journal backend service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(serveCommand(), migrateCommand(), digestCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("port", defaults.GetString("PORT"), "HTTP listen port")
	cmd.PersistentFlags().String("log-level", defaults.GetString("LOG_LEVEL"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("digest-cron", defaults.GetString("DIGEST_CRON"), "Cron expression for the daily digest, empty disables it")

	bindFlag(cmd, "PORT", "port")
	bindFlag(cmd, "LOG_LEVEL", "log-level")
	bindFlag(cmd, "DIGEST_CRON", "digest-cron")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func digestCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Write the diary of every user with messages but no history for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd.Context(), date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to digest as YYYY-MM-DD, defaults to today in APP_TIMEZONE")
	return cmd
}
