// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/naka-gawa/lp-bug-report/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lp-bug-report START END",
	Short: "A CLI tool to report Launchpad bugs opened, fixed and rejected in a date range.",
	Long: `lp-bug-report summarises a Launchpad project's bugs between two dates
(YYYY-MM-DD, both inclusive): new bugs by creation date, fixed and invalid
bugs by close date, followed by per-member totals for a Launchpad team.`,
	Example: "  lp-bug-report 2024-01-01 2024-01-31",
	Args:    cobra.ExactArgs(2),
	Run:     runReport,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	registerFlags(rootCmd)
}

// registerFlags declares the report flags on cmd.
func registerFlags(cmd *cobra.Command) {
	// Shared by the report and the auth subcommand.
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	cmd.PersistentFlags().String("service", config.DefaultService, "Launchpad service: production, staging, qastaging or an API root URL (env LP_SERVICE)")
	cmd.PersistentFlags().String("consumer", config.DefaultConsumer, "Application name presented to Launchpad (env LP_CONSUMER)")
	cmd.PersistentFlags().String("credentials", config.DefaultCredentialsFile(), "Path of the OAuth credentials file (env LP_CREDENTIALS)")

	cmd.Flags().StringSliceP("project", "p", []string{config.DefaultProject}, "Launchpad project to report on, repeatable (env LP_PROJECTS)")
	cmd.Flags().StringP("team", "t", config.DefaultTeam, "Launchpad team whose members are summarised (env LP_TEAM)")
	cmd.Flags().Bool("anonymous", false, "Skip credentials and read public data anonymously")
	cmd.Flags().StringP("format", "f", "text", "Output format: text or json (env LP_FORMAT)")
	cmd.Flags().Int("concurrency", 1, "Team members queried at once (env LP_CONCURRENCY)")
	cmd.Flags().Float64("rate", config.DefaultRate, "Maximum Launchpad requests per second (env LP_REQUESTS_PER_SECOND)")
}

// loadConfig reads the environment and lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("service") {
		cfg.Service, _ = flags.GetString("service")
	}
	if flags.Changed("consumer") {
		cfg.Consumer, _ = flags.GetString("consumer")
	}
	if flags.Changed("credentials") {
		cfg.CredentialsFile, _ = flags.GetString("credentials")
	}
	if flags.Changed("project") {
		cfg.Projects, _ = flags.GetStringSlice("project")
	}
	if flags.Changed("team") {
		cfg.Team, _ = flags.GetString("team")
	}
	if flags.Changed("anonymous") {
		cfg.Anonymous, _ = flags.GetBool("anonymous")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("rate") {
		cfg.RequestsPerSecond, _ = flags.GetFloat64("rate")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
