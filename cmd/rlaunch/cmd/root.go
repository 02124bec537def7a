package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	logLevel     string
	profilesPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rlaunch",
	Short: "Launcher for distributed PPO training runs",
	Long: `rlaunch builds the trainer's command line from flags and profiles,
resolves the coordination address for distributed hyperparameter tuning,
and launches the training process. The trainer's exit status becomes
rlaunch's exit status.`,
	// main reports errors itself; a nonzero trainer exit must not print
	// anything the trainer did not
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rlaunch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles-file", "", "launch profiles file (default is $HOME/.rlaunch/profiles.yaml)")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".rlaunch"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("rlaunch")
	viper.AutomaticEnv()

	// Bind specific environment variables
	viper.BindEnv("trainer_root", "RLAUNCH_TRAINER_ROOT")
	viper.BindEnv("history_db", "RLAUNCH_HISTORY_DB")

	// Missing config file is fine; flags and env cover everything
	_ = viper.ReadInConfig()
}

// historyDBPath returns the configured history database path
func historyDBPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := viper.GetString("history_db"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "rlaunch.db"
	}
	return filepath.Join(home, ".rlaunch", "rlaunch.db")
}

// trainerRootPath returns the configured trainer checkout root
func trainerRootPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := viper.GetString("trainer_root"); v != "" {
		return v
	}
	return "."
}
