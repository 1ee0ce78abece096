// Package cmd provides the randomall command-line interface.
//
// Configuration is read with the following precedence:
//  1. Command-line flags (--config, --db, --locale, --log-level)
//  2. RANDOMALL_CONFIG_FILE environment variable
//  3. Individual environment variables (RANDOMALL_SERVER_PORT, ...)
//  4. .randomall.yml in the current directory
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "randomall",
	Short: "Block template generators server",
	Long: `randomall stores and runs block template generators ("gens").

A gen is a head (title, tags, category), a format and a body of blocks.
Each block yields a literal or one randomly chosen variant; sequences and
exceptions shape how blocks combine.

Quick Start:
  randomall serve                      Start the HTTP API
  randomall render -f gen.json         Print one generated result
  randomall render -f gen.json --test  Validate and render in test mode
  randomall validate -f gen.json       Only validate a document`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .randomall.yml, can also use RANDOMALL_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("locale", "en", "message language (en, ru)")
	flags.String("db", "randomall.db", "SQLite database path")

	AddFlagValidation(flags, "log-level", ValidateLogLevel)
	AddFlagValidation(flags, "locale", ValidateLocale)

	viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	viper.BindPFlag("locale.language", flags.Lookup("locale"))
	viper.BindPFlag("storage.path", flags.Lookup("db"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("RANDOMALL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".randomall")
	}

	viper.SetEnvPrefix("RANDOMALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file falls back to flags, env and defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
