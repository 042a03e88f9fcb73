// Package main provides the camv command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "camv",
		Short: "camv - computer-assisted validation of peptide identifications",
		Long: `camv validates tandem-MS peptide identifications by matching candidate
modification placements against observed fragment spectra, then scores and
ranks ambiguous site assignments for manual review.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	root.AddCommand(newValidateCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig wires viper to ~/.camv.yaml and CAMV_* environment variables.
func initConfig() error {
	viper.SetConfigName(".camv")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("CAMV")
	viper.AutomaticEnv()

	setConfigDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func setConfigDefaults() {
	viper.SetDefault("tolerance.value", 0.0) // 0 selects per-collision-type defaults
	viper.SetDefault("tolerance.unit", "ppm")
	viper.SetDefault("combinations.max", 10)
	viper.SetDefault("combinations.unrestricted", false)
	viper.SetDefault("combinations.strict", false)
	viper.SetDefault("localize.margin", 0.05)
	viper.SetDefault("localize.auto_maybe", true)
	viper.SetDefault("workers", 0)
	viper.SetDefault("series.a", true)
	viper.SetDefault("series.internal", true)
	viper.SetDefault("series.immonium", true)
	viper.SetDefault("series.reporters", true)
}
