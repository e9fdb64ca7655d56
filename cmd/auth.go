package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/naka-gawa/lp-bug-report/internal/config"
	"github.com/naka-gawa/lp-bug-report/internal/gateway"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize lp-bug-report against Launchpad and store the credentials",
	Long: `auth runs Launchpad's OAuth flow: it prints a page to open in a browser,
waits until access is granted there, and writes the resulting credentials
to the file given by --credentials.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAuth(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to authorize: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.Flags().Duration("timeout", 15*time.Minute, "How long to wait for access to be granted")
	authCmd.Flags().Duration("poll", 5*time.Second, "Interval between checks for granted access")
}

func runAuth(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.CredentialsFile == "" {
		return goerr.New("no credentials path; set --credentials or LP_CREDENTIALS")
	}

	root, err := gateway.LookupServiceRoot(cfg.Service)
	if err != nil {
		return err
	}
	authorizer, err := gateway.NewAuthorizer(&http.Client{Timeout: 30 * time.Second}, root.Web, cfg.Consumer)
	if err != nil {
		return err
	}

	token, err := authorizer.RequestToken(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Open this page in a browser and grant access to %q:\n\n  %s\n\nWaiting for authorization...\n",
		cfg.Consumer, authorizer.AuthorizeURL(token))

	timeout, _ := cmd.Flags().GetDuration("timeout")
	poll, _ := cmd.Flags().GetDuration("poll")
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	creds, err := authorizer.WaitForAccessToken(waitCtx, token, poll)
	if err != nil {
		return err
	}
	if err := config.WriteCredentials(cfg.CredentialsFile, creds); err != nil {
		return err
	}
	fmt.Fprintf(out, "Credentials saved to %s\n", cfg.CredentialsFile)
	return nil
}
