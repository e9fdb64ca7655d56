package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"github.com/m-mizutani/goerr/v2"
	"github.com/naka-gawa/lp-bug-report/internal/config"
	"github.com/naka-gawa/lp-bug-report/internal/domain"
	"github.com/naka-gawa/lp-bug-report/internal/gateway"
	"github.com/naka-gawa/lp-bug-report/internal/logger"
	"github.com/naka-gawa/lp-bug-report/internal/presenter"
	"github.com/naka-gawa/lp-bug-report/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loginFunc opens the Launchpad session a report is read from.
type loginFunc func(ctx context.Context, opts gateway.LoginOptions, logger *zap.Logger) (gateway.Fetcher, error)

func launchpadLogin(ctx context.Context, opts gateway.LoginOptions, logger *zap.Logger) (gateway.Fetcher, error) {
	launchpad, err := gateway.Login(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	return launchpad, nil
}

func runReport(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := generateReport(ctx, cmd, args, os.Stdout, launchpadLogin)
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrInvalidRange):
		fmt.Fprintf(os.Stderr, "Error: start date %s is after end date %s.\n", args[0], args[1])
		_ = cmd.Usage()
	case errors.Is(err, domain.ErrInvalidDate):
		fmt.Fprintf(os.Stderr, "Error: not a valid date, expected YYYY-MM-DD: %v\n", err)
		_ = cmd.Usage()
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// generateReport runs one report and writes it to out. When report generation
// fails, the sections that completed are written before the error is returned.
func generateReport(ctx context.Context, cmd *cobra.Command, args []string, out io.Writer, login loginFunc) error {
	// Dates are validated before anything touches the network.
	rng, err := domain.ParseDateRange(args[0], args[1])
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := logger.New(verbose)
	if err != nil {
		return goerr.Wrap(err, "failed to create logger")
	}
	defer log.Sync()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return goerr.Wrap(err, "invalid configuration")
	}
	format, _ := presenter.ParseFormat(cfg.Format)

	creds, err := loadCredentials(cfg, log)
	if err != nil {
		return goerr.Wrap(err, "failed to load credentials")
	}

	// Inject dependencies and run the main business logic.
	launchpad, err := login(ctx, gateway.LoginOptions{
		Consumer:          cfg.Consumer,
		Service:           cfg.Service,
		Credentials:       creds,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, log)
	if err != nil {
		return goerr.Wrap(err, "failed to log in to Launchpad")
	}
	reporter := usecase.NewReporter(launchpad, log, cfg.Concurrency)

	report, err := reporter.Generate(ctx, usecase.Request{
		Range:    rng,
		Projects: cfg.Projects,
		Team:     cfg.Team,
	})
	if err != nil {
		if report != nil {
			_ = presenter.Render(out, format, report)
		}
		return goerr.Wrap(err, "failed to generate report")
	}

	if err := presenter.Render(out, format, report); err != nil {
		return goerr.Wrap(err, "failed to print report")
	}
	return nil
}

// loadCredentials returns nil for an anonymous session.
func loadCredentials(cfg *config.Config, log *zap.Logger) (*gateway.Credentials, error) {
	if cfg.Anonymous || cfg.CredentialsFile == "" {
		return nil, nil
	}
	creds, err := config.ReadCredentials(cfg.CredentialsFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("no credentials file, continuing anonymously; run `lp-bug-report auth` to create one",
			zap.String("path", cfg.CredentialsFile))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return creds, nil
}
