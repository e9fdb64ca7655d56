package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/naka-gawa/lp-bug-report/internal/gateway"
	"gopkg.in/yaml.v3"
)

// ErrIncompleteCredentials is returned when the credentials file lacks the access token or secret.
var ErrIncompleteCredentials = errors.New("credentials file lacks access token or secret")

// ReadCredentials loads OAuth credentials from a YAML file.
// A missing file yields an error matching fs.ErrNotExist.
func ReadCredentials(path string) (*gateway.Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read credentials file", goerr.V("path", path))
	}

	var creds gateway.Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, goerr.Wrap(err, "failed to parse credentials file", goerr.V("path", path))
	}
	if creds.AccessToken == "" || creds.AccessSecret == "" {
		return nil, goerr.Wrap(ErrIncompleteCredentials, "invalid credentials file", goerr.V("path", path))
	}
	return &creds, nil
}

// WriteCredentials stores credentials readable by the current user only.
func WriteCredentials(path string, creds gateway.Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return goerr.Wrap(err, "failed to create credentials directory", goerr.V("path", path))
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return goerr.Wrap(err, "failed to encode credentials")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return goerr.Wrap(err, "failed to write credentials file", goerr.V("path", path))
	}
	return nil
}
