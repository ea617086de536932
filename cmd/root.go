package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sirekapreview/reviewer/cmd/contribute"
	"github.com/sirekapreview/reviewer/cmd/level"
	"github.com/sirekapreview/reviewer/cmd/progress"
	"github.com/sirekapreview/reviewer/cmd/verified"
	"github.com/sirekapreview/reviewer/internal/app"
	"github.com/sirekapreview/reviewer/internal/buildinfo"
	"github.com/sirekapreview/reviewer/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "sheetreview",
		Short:        "Review and tally election count sheets",
		Long:         "sheetreview pages through scanned count sheets, records the votes read from each one and submits them for verification.",
		Version:      build.GetVersion(),
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		rootCmd.PrintErrf("error setting up flags: %v\n", err)
	}

	opts := []app.Option{app.WithBuildInfo(build)}
	rootCmd.AddCommand(
		contribute.Command(settings, opts...),
		verified.Command(settings, opts...),
		progress.Command(settings, opts...),
		level.Command(settings, opts...),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flags have already been written into settings; validate the result.
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}
		if _, err := app.InitLogging(settings); err != nil {
			return err
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
// Defaults come from the loaded settings so config file values show up in
// --help and survive when a flag is not given.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	flags.StringVar(&settings.API.BaseURL, "api-url", settings.API.BaseURL, "Base URL of the sheet review API")
	flags.DurationVar(&settings.API.Timeout, "timeout", settings.API.Timeout, "Timeout for each API request")
	flags.StringVar(&settings.Ledger.Backend, "ledger-backend", settings.Ledger.Backend, "Where the contribution counter is kept (file, sqlite, memory)")
	flags.StringVar(&settings.Ledger.Path, "ledger-path", settings.Ledger.Path, "Path of the contribution counter state file or database")
	flags.BoolVar(&settings.Metrics.Enabled, "metrics", settings.Metrics.Enabled, "Serve Prometheus metrics while running")
	flags.StringVar(&settings.Metrics.Listen, "metrics-listen", settings.Metrics.Listen, "Listen address of the metrics endpoint")

	bindings := map[string]string{
		"debug":           "debug",
		"api.baseurl":     "api-url",
		"api.timeout":     "timeout",
		"ledger.backend":  "ledger-backend",
		"ledger.path":     "ledger-path",
		"metrics.enabled": "metrics",
		"metrics.listen":  "metrics-listen",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}
