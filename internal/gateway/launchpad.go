// Package gateway provides a gateway to the Launchpad REST API,
// abstracting away collection paging, authentication and request pacing.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/naka-gawa/lp-bug-report/internal/domain"
	"go.uber.org/zap"
)

const (
	apiVersion      = "devel"
	defaultPageSize = 75
	defaultTimeout  = 60 * time.Second
	defaultAgent    = "lp-bug-report"
)

var (
	// ErrUnauthorized is returned for a 401 response.
	ErrUnauthorized = errors.New("launchpad rejected the credentials")
	// ErrForbidden is returned for a 403 response.
	ErrForbidden = errors.New("launchpad denied access")
	// ErrNotFound is returned for a 404 response, such as an unknown project or team.
	ErrNotFound = errors.New("launchpad resource not found")
	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected launchpad response status")
)

// Fetcher defines the behavior of a gateway for fetching bug data from Launchpad.
type Fetcher interface {
	// SearchTasks returns every task of a project whose status is one of statuses.
	// An empty assignee means no assignee filter; otherwise it is a person self link.
	SearchTasks(ctx context.Context, project string, statuses []string, assignee string) ([]domain.BugTask, error)
	// CountTasks returns how many tasks of a project have one of statuses.
	CountTasks(ctx context.Context, project string, statuses []string) (int, error)
	// TeamMembers returns the active members of a team.
	TeamMembers(ctx context.Context, team string) ([]domain.TeamMember, error)
}

// LaunchpadGateway is the concrete implementation of the Fetcher interface.
type LaunchpadGateway struct {
	client    *http.Client
	apiRoot   *url.URL
	pageSize  int
	userAgent string
	logger    *zap.Logger
}

// collection is the envelope Launchpad wraps every paged list in.
type collection[T any] struct {
	TotalSize          *int   `json:"total_size"`
	TotalSizeLink      string `json:"total_size_link"`
	Start              int    `json:"start"`
	Entries            []T    `json:"entries"`
	NextCollectionLink string `json:"next_collection_link"`
}

type bugTaskEntry struct {
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Importance   string     `json:"importance"`
	WebLink      string     `json:"web_link"`
	AssigneeLink string     `json:"assignee_link"`
	DateCreated  *time.Time `json:"date_created"`
	DateClosed   *time.Time `json:"date_closed"`
	DateAssigned *time.Time `json:"date_assigned"`
}

type personEntry struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	SelfLink    string `json:"self_link"`
}

// NewLaunchpadGateway creates a gateway talking to the API rooted at apiRoot,
// e.g. "https://api.launchpad.net/".
func NewLaunchpadGateway(client *http.Client, apiRoot string, logger *zap.Logger) (*LaunchpadGateway, error) {
	base, err := url.Parse(apiRoot)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse Launchpad API root", goerr.V("root", apiRoot))
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &LaunchpadGateway{
		client:    client,
		apiRoot:   base.ResolveReference(&url.URL{Path: apiVersion + "/"}),
		pageSize:  defaultPageSize,
		userAgent: defaultAgent,
		logger:    logger,
	}, nil
}

func (g *LaunchpadGateway) SearchTasks(ctx context.Context, project string, statuses []string, assignee string) ([]domain.BugTask, error) {
	g.logger.Debug("searching bug tasks",
		zap.String("project", project),
		zap.Strings("statuses", statuses),
		zap.String("assignee", assignee))

	entries, err := fetchAll[bugTaskEntry](ctx, g, g.searchURL(project, statuses, assignee, g.pageSize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search bug tasks",
			goerr.V("project", project), goerr.V("statuses", statuses), goerr.V("assignee", assignee))
	}

	tasks := make([]domain.BugTask, 0, len(entries))
	for _, e := range entries {
		tasks = append(tasks, domain.BugTask{
			Title:        e.Title,
			Status:       e.Status,
			Importance:   e.Importance,
			WebLink:      e.WebLink,
			AssigneeLink: e.AssigneeLink,
			DateCreated:  utc(e.DateCreated),
			DateClosed:   utc(e.DateClosed),
			DateAssigned: utc(e.DateAssigned),
		})
	}
	g.logger.Debug("completed bug task search", zap.String("project", project), zap.Int("tasks", len(tasks)))
	return tasks, nil
}

func (g *LaunchpadGateway) CountTasks(ctx context.Context, project string, statuses []string) (int, error) {
	g.logger.Debug("counting bug tasks", zap.String("project", project), zap.Strings("statuses", statuses))

	var page collection[json.RawMessage]
	if err := g.getJSON(ctx, g.searchURL(project, statuses, "", 1), &page); err != nil {
		return 0, goerr.Wrap(err, "failed to count bug tasks", goerr.V("project", project))
	}
	if page.TotalSize != nil {
		return *page.TotalSize, nil
	}
	if page.TotalSizeLink != "" {
		var n int
		if err := g.getJSON(ctx, page.TotalSizeLink, &n); err != nil {
			return 0, goerr.Wrap(err, "failed to fetch bug task total", goerr.V("project", project))
		}
		return n, nil
	}

	// Neither size field present: count the hard way.
	tasks, err := g.SearchTasks(ctx, project, statuses, "")
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func (g *LaunchpadGateway) TeamMembers(ctx context.Context, team string) ([]domain.TeamMember, error) {
	g.logger.Debug("fetching team members", zap.String("team", team))

	u := g.resolve("~" + team + "/members")
	q := url.Values{"ws.size": {strconv.Itoa(g.pageSize)}}
	u.RawQuery = q.Encode()

	entries, err := fetchAll[personEntry](ctx, g, u.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch team members", goerr.V("team", team))
	}

	members := make([]domain.TeamMember, 0, len(entries))
	for _, e := range entries {
		members = append(members, domain.TeamMember{
			Name:        e.Name,
			DisplayName: e.DisplayName,
			SelfLink:    e.SelfLink,
		})
	}
	g.logger.Debug("completed fetching team members", zap.String("team", team), zap.Int("members", len(members)))
	return members, nil
}

// Me returns the person the session is authenticated as.
func (g *LaunchpadGateway) Me(ctx context.Context) (domain.TeamMember, error) {
	var p personEntry
	if err := g.getJSON(ctx, g.resolve("people/+me").String(), &p); err != nil {
		return domain.TeamMember{}, goerr.Wrap(err, "failed to fetch authenticated person")
	}
	return domain.TeamMember{Name: p.Name, DisplayName: p.DisplayName, SelfLink: p.SelfLink}, nil
}

func (g *LaunchpadGateway) searchURL(project string, statuses []string, assignee string, size int) string {
	u := g.resolve(project)
	q := url.Values{
		"ws.op":   {"searchTasks"},
		"ws.size": {strconv.Itoa(size)},
		"status":  statuses,
	}
	if assignee != "" {
		q.Set("assignee", assignee)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (g *LaunchpadGateway) resolve(path string) *url.URL {
	return g.apiRoot.ResolveReference(&url.URL{Path: path})
}

// fetchAll walks a collection from its first page until next_collection_link runs out.
func fetchAll[T any](ctx context.Context, g *LaunchpadGateway, first string) ([]T, error) {
	var all []T
	next := first
	for page := 1; next != ""; page++ {
		if page > 1 {
			g.logger.Debug("fetching next page", zap.Int("page", page))
		}
		var c collection[T]
		if err := g.getJSON(ctx, next, &c); err != nil {
			return nil, err
		}
		all = append(all, c.Entries...)
		next = c.NextCollectionLink
	}
	return all, nil
}

func (g *LaunchpadGateway) getJSON(ctx context.Context, rawURL string, v any) error {
	target, err := g.apiRoot.Parse(rawURL)
	if err != nil {
		return goerr.Wrap(err, "failed to parse Launchpad URL", goerr.V("url", rawURL))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build Launchpad request", goerr.V("url", rawURL))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send Launchpad request", goerr.V("url", rawURL))
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return goerr.Wrap(err, "Launchpad request failed", goerr.V("url", rawURL))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "failed to decode Launchpad response", goerr.V("url", rawURL))
	}
	return nil
}

// checkResponse maps non-2xx responses to the package's sentinel errors.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	cause := ErrUnexpectedStatus
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		cause = ErrUnauthorized
	case http.StatusForbidden:
		cause = ErrForbidden
	case http.StatusNotFound:
		cause = ErrNotFound
	}
	return goerr.Wrap(cause, "non-success status",
		goerr.V("status", resp.StatusCode),
		goerr.V("body", strings.TrimSpace(string(body))))
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
