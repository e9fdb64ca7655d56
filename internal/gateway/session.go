package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrUnknownService is returned for a service that is neither a known name nor an http(s) URL.
var ErrUnknownService = errors.New("unknown Launchpad service")

// ServiceRoot pairs a Launchpad API root with the web root used for OAuth.
type ServiceRoot struct {
	API string
	Web string
}

var serviceRoots = map[string]ServiceRoot{
	"production": {API: "https://api.launchpad.net/", Web: "https://launchpad.net/"},
	"staging":    {API: "https://api.staging.launchpad.net/", Web: "https://staging.launchpad.net/"},
	"qastaging":  {API: "https://api.qastaging.launchpad.net/", Web: "https://qastaging.launchpad.net/"},
}

// LookupServiceRoot resolves a service name such as "production".
// A full http(s) URL is accepted as a custom root serving both API and web.
func LookupServiceRoot(service string) (ServiceRoot, error) {
	if root, ok := serviceRoots[service]; ok {
		return root, nil
	}
	if strings.HasPrefix(service, "http://") || strings.HasPrefix(service, "https://") {
		if !strings.HasSuffix(service, "/") {
			service += "/"
		}
		return ServiceRoot{API: service, Web: service}, nil
	}
	return ServiceRoot{}, goerr.Wrap(ErrUnknownService, "failed to resolve service root",
		goerr.V("service", service))
}

// LoginOptions configures a Launchpad session.
type LoginOptions struct {
	// Consumer identifies the application to Launchpad.
	Consumer string
	// Service is a service name or root URL.
	Service string
	// Credentials are the OAuth access credentials. Nil means anonymous.
	Credentials *Credentials
	// RequestsPerSecond caps the request rate. Zero or less means unlimited.
	RequestsPerSecond float64
}

// Login builds an authenticated gateway. With credentials, it checks them against
// the API before returning so that a bad token fails before any report output.
func Login(ctx context.Context, opts LoginOptions, logger *zap.Logger) (*LaunchpadGateway, error) {
	root, err := LookupServiceRoot(opts.Service)
	if err != nil {
		return nil, err
	}

	transport := newRateLimitedTransport(http.DefaultTransport, opts.RequestsPerSecond)
	if opts.Credentials != nil {
		creds := *opts.Credentials
		if creds.ConsumerKey == "" {
			creds.ConsumerKey = opts.Consumer
		}
		transport = &oauth2.Transport{
			Base:   transport,
			Source: NewPlaintextTokenSource(creds, root.API),
		}
	}

	g, err := NewLaunchpadGateway(&http.Client{Transport: transport, Timeout: defaultTimeout}, root.API, logger)
	if err != nil {
		return nil, err
	}
	if opts.Consumer != "" {
		g.userAgent = defaultAgent + " (" + opts.Consumer + ")"
	}

	if opts.Credentials == nil {
		logger.Info("using anonymous Launchpad session", zap.String("service", opts.Service))
		return g, nil
	}

	me, err := g.Me(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to log in to Launchpad",
			goerr.V("consumer", opts.Consumer), goerr.V("service", opts.Service))
	}
	logger.Info("logged in to Launchpad",
		zap.String("service", opts.Service),
		zap.String("person", me.Name))
	return g, nil
}
