package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
)

var (
	// ErrTokenNotReviewed is returned while the user has not yet acted on the authorization page.
	ErrTokenNotReviewed = errors.New("request token has not been reviewed yet")
	// ErrTokenRejected is returned when the user declined the authorization.
	ErrTokenRejected = errors.New("request token was rejected")
)

// Credentials are Launchpad OAuth access credentials.
type Credentials struct {
	ConsumerKey  string `yaml:"consumer_key"`
	AccessToken  string `yaml:"access_token"`
	AccessSecret string `yaml:"access_secret"`
}

// plaintextTokenSource mints a fresh OAuth 1.0a PLAINTEXT authorization header per request.
// Launchpad uses an empty consumer secret, so the signature is "&" plus the token secret.
type plaintextTokenSource struct {
	creds Credentials
	realm string
	now   func() time.Time
}

// NewPlaintextTokenSource returns a token source usable with oauth2.Transport.
func NewPlaintextTokenSource(creds Credentials, realm string) oauth2.TokenSource {
	return &plaintextTokenSource{creds: creds, realm: realm, now: time.Now}
}

func (s *plaintextTokenSource) Token() (*oauth2.Token, error) {
	params := []string{
		`realm="` + s.realm + `"`,
		oauthParam("oauth_consumer_key", s.creds.ConsumerKey),
		oauthParam("oauth_token", s.creds.AccessToken),
		oauthParam("oauth_signature_method", "PLAINTEXT"),
		oauthParam("oauth_signature", "&"+s.creds.AccessSecret),
		oauthParam("oauth_timestamp", strconv.FormatInt(s.now().Unix(), 10)),
		oauthParam("oauth_nonce", uuid.NewString()),
		oauthParam("oauth_version", "1.0"),
	}
	// oauth2.Token.SetAuthHeader writes "<TokenType> <AccessToken>".
	return &oauth2.Token{TokenType: "OAuth", AccessToken: strings.Join(params, ", ")}, nil
}

func oauthParam(key, value string) string {
	return key + `="` + percentEncode(value) + `"`
}

// percentEncode follows RFC 3986 as OAuth 1.0 requires.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// RequestToken is an unauthorized OAuth request token.
type RequestToken struct {
	Token  string
	Secret string
}

// Authorizer runs Launchpad's three-step OAuth flow for a consumer.
type Authorizer struct {
	client   *http.Client
	webRoot  *url.URL
	consumer string
}

// NewAuthorizer creates an Authorizer against a Launchpad web root such as "https://launchpad.net/".
func NewAuthorizer(client *http.Client, webRoot, consumer string) (*Authorizer, error) {
	base, err := url.Parse(webRoot)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse Launchpad web root", goerr.V("root", webRoot))
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &Authorizer{client: client, webRoot: base, consumer: consumer}, nil
}

// RequestToken obtains a fresh request token.
func (a *Authorizer) RequestToken(ctx context.Context) (RequestToken, error) {
	values, err := a.postForm(ctx, "+request-token", url.Values{
		"oauth_consumer_key":     {a.consumer},
		"oauth_signature_method": {"PLAINTEXT"},
		"oauth_signature":        {"&"},
	})
	if err != nil {
		return RequestToken{}, goerr.Wrap(err, "failed to obtain request token", goerr.V("consumer", a.consumer))
	}
	tok := RequestToken{Token: values.Get("oauth_token"), Secret: values.Get("oauth_token_secret")}
	if tok.Token == "" {
		return RequestToken{}, goerr.New("request token response carried no token", goerr.V("consumer", a.consumer))
	}
	return tok, nil
}

// AuthorizeURL is the page where the user grants the request token access.
func (a *Authorizer) AuthorizeURL(tok RequestToken) string {
	u := a.webRoot.ResolveReference(&url.URL{Path: "+authorize-token"})
	u.RawQuery = url.Values{"oauth_token": {tok.Token}}.Encode()
	return u.String()
}

// AccessToken exchanges a reviewed request token for access credentials.
func (a *Authorizer) AccessToken(ctx context.Context, tok RequestToken) (Credentials, error) {
	values, err := a.postForm(ctx, "+access-token", url.Values{
		"oauth_token":            {tok.Token},
		"oauth_consumer_key":     {a.consumer},
		"oauth_signature_method": {"PLAINTEXT"},
		"oauth_signature":        {"&" + tok.Secret},
	})
	switch {
	case errors.Is(err, ErrUnauthorized):
		return Credentials{}, goerr.Wrap(ErrTokenNotReviewed, "access token not available", goerr.V("token", tok.Token))
	case errors.Is(err, ErrForbidden):
		return Credentials{}, goerr.Wrap(ErrTokenRejected, "access token not available", goerr.V("token", tok.Token))
	case err != nil:
		return Credentials{}, goerr.Wrap(err, "failed to exchange request token")
	}
	return Credentials{
		ConsumerKey:  a.consumer,
		AccessToken:  values.Get("oauth_token"),
		AccessSecret: values.Get("oauth_token_secret"),
	}, nil
}

// WaitForAccessToken polls AccessToken until the user has reviewed the request token
// or ctx is done.
func (a *Authorizer) WaitForAccessToken(ctx context.Context, tok RequestToken, interval time.Duration) (Credentials, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		creds, err := a.AccessToken(ctx, tok)
		if !errors.Is(err, ErrTokenNotReviewed) {
			return creds, err
		}
		select {
		case <-ctx.Done():
			return Credentials{}, goerr.Wrap(ctx.Err(), "stopped waiting for authorization")
		case <-ticker.C:
		}
	}
}

func (a *Authorizer) postForm(ctx context.Context, path string, form url.Values) (url.Values, error) {
	target := a.webRoot.ResolveReference(&url.URL{Path: path}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build OAuth request", goerr.V("url", target))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send OAuth request", goerr.V("url", target))
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read OAuth response", goerr.V("url", target))
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse OAuth response", goerr.V("url", target))
	}
	return values, nil
}
