// Package usecase contains the business logic of the application.
package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/naka-gawa/lp-bug-report/internal/domain"
	"github.com/naka-gawa/lp-bug-report/internal/gateway"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request describes one report run.
type Request struct {
	Range    domain.DateRange
	Projects []string
	Team     string
}

// Reporter is the use case for building the bug report.
// It issues one query per bucket and per member and classifies the results by date.
type Reporter struct {
	fetcher     gateway.Fetcher
	logger      *zap.Logger
	concurrency int
}

// NewReporter creates a new Reporter. concurrency bounds how many team members
// are queried at once; 1 keeps every query strictly sequential.
func NewReporter(fetcher gateway.Fetcher, logger *zap.Logger, concurrency int) *Reporter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reporter{
		fetcher:     fetcher,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Generate builds the whole report: every project section, then the team section.
// On failure it returns the sections completed so far together with the error.
func (r *Reporter) Generate(ctx context.Context, req Request) (*domain.Report, error) {
	r.logger.Info("starting report",
		zap.Time("start", req.Range.Start),
		zap.Time("end", req.Range.End),
		zap.Strings("projects", req.Projects),
		zap.String("team", req.Team))

	report := &domain.Report{Range: req.Range, Projects: []domain.ProjectReport{}}
	for _, project := range req.Projects {
		p, err := r.ProjectReport(ctx, project, req.Range)
		if p.Project != "" {
			report.AddProject(p)
		}
		if err != nil {
			report.Truncated = true
			return report, err
		}
	}

	if req.Team == "" {
		return report, nil
	}
	team, err := r.TeamReport(ctx, req.Projects, req.Team, req.Range)
	report.Team = &team
	if err != nil {
		report.Truncated = true
		return report, err
	}

	r.logger.Info("report complete", zap.Int("grand_total", report.GrandTotal))
	return report, nil
}

// ProjectReport counts a project's bugs and fills its New, Fixed and Invalid buckets.
// New bugs are matched on creation date; Fixed and Invalid on close date.
// When a bucket query fails, the buckets finished so far are returned with
// Incomplete set. A failed count returns a zero ProjectReport.
func (r *Reporter) ProjectReport(ctx context.Context, project string, rng domain.DateRange) (domain.ProjectReport, error) {
	r.logger.Info("building project report", zap.String("project", project))

	total, err := r.fetcher.CountTasks(ctx, project, domain.AllStatus())
	if err != nil {
		return domain.ProjectReport{}, goerr.Wrap(err, "failed to count project bugs", goerr.V("project", project))
	}
	rep := domain.ProjectReport{Project: project, TotalBugs: total, Incomplete: true}

	newTasks, err := r.bucketTasks(ctx, project, domain.New, domain.Created, rng)
	if err != nil {
		return rep, err
	}
	rep.New = bucketReport(domain.New, newTasks)

	fixedTasks, err := r.bucketTasks(ctx, project, domain.Fixed, domain.Closed, rng)
	if err != nil {
		return rep, err
	}
	rep.Fixed = bucketReport(domain.Fixed, fixedTasks)
	rep.FixTime = fixLeadTime(fixedTasks)

	invalidTasks, err := r.bucketTasks(ctx, project, domain.Invalid, domain.Closed, rng)
	if err != nil {
		return rep, err
	}
	rep.Invalid = bucketReport(domain.Invalid, invalidTasks)

	rep.Incomplete = false
	return rep, nil
}

// TeamReport builds one line per team member across all projects.
// Members keep roster order regardless of concurrency. On failure the result
// holds the members counted before the first failing one, with Incomplete set.
func (r *Reporter) TeamReport(ctx context.Context, projects []string, team string, rng domain.DateRange) (domain.TeamReport, error) {
	r.logger.Info("building team report", zap.String("team", team))

	members, err := r.fetcher.TeamMembers(ctx, team)
	if err != nil {
		return domain.TeamReport{Team: team, Members: []domain.MemberReport{}, Incomplete: true},
			goerr.Wrap(err, "failed to resolve team roster", goerr.V("team", team))
	}

	results := make([]*domain.MemberReport, len(members))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)
	for i, m := range members {
		i, m := i, m
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			mr, err := r.memberReport(egCtx, projects, m, rng)
			if err != nil {
				return err
			}
			results[i] = &mr
			return nil
		})
	}
	waitErr := eg.Wait()

	rep := domain.TeamReport{Team: team, Members: make([]domain.MemberReport, 0, len(members))}
	for _, mr := range results {
		if mr == nil {
			break
		}
		rep.Members = append(rep.Members, *mr)
	}
	if waitErr != nil {
		rep.Incomplete = true
		return rep, waitErr
	}

	rep.Spread = teamSpread(rep.Members)
	return rep, nil
}

// memberReport counts a member's assigned bugs. Total spans every status and, like
// New, is matched on assignment date; Fixed is matched on close date.
func (r *Reporter) memberReport(ctx context.Context, projects []string, m domain.TeamMember, rng domain.DateRange) (domain.MemberReport, error) {
	mr := domain.MemberReport{Name: m.Name, DisplayName: m.DisplayName}

	for _, project := range projects {
		all, err := r.fetcher.SearchTasks(ctx, project, domain.AllStatus(), m.SelfLink)
		if err != nil {
			return mr, goerr.Wrap(err, "failed to query member bugs",
				goerr.V("member", m.Name), goerr.V("project", project))
		}
		mr.Total += len(domain.FilterByRange(all, domain.Assigned, rng))

		fixed, err := r.fetcher.SearchTasks(ctx, project, domain.Fixed.Statuses, m.SelfLink)
		if err != nil {
			return mr, goerr.Wrap(err, "failed to query member fixed bugs",
				goerr.V("member", m.Name), goerr.V("project", project))
		}
		mr.Fixed += len(domain.FilterByRange(fixed, domain.Closed, rng))

		newTasks, err := r.fetcher.SearchTasks(ctx, project, domain.New.Statuses, m.SelfLink)
		if err != nil {
			return mr, goerr.Wrap(err, "failed to query member new bugs",
				goerr.V("member", m.Name), goerr.V("project", project))
		}
		mr.New += len(domain.FilterByRange(newTasks, domain.Assigned, rng))
	}

	r.logger.Debug("member counted",
		zap.String("member", m.Name),
		zap.Int("total", mr.Total),
		zap.Int("new", mr.New),
		zap.Int("fixed", mr.Fixed))
	return mr, nil
}

func (r *Reporter) bucketTasks(ctx context.Context, project string, bucket domain.StatusBucket, field domain.Timestamp, rng domain.DateRange) ([]domain.BugTask, error) {
	tasks, err := r.fetcher.SearchTasks(ctx, project, bucket.Statuses, "")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query bucket",
			goerr.V("project", project), goerr.V("bucket", bucket.Name))
	}
	for _, t := range tasks {
		if b, ok := domain.Classify(t.Status); !ok || b.Name != bucket.Name {
			r.logger.Warn("task status outside queried bucket",
				zap.String("bucket", bucket.Name),
				zap.String("status", t.Status),
				zap.String("task", t.WebLink))
		}
	}
	kept := domain.FilterByRange(tasks, field, rng)
	r.logger.Debug("bucket filtered",
		zap.String("project", project),
		zap.String("bucket", bucket.Name),
		zap.Int("fetched", len(tasks)),
		zap.Int("in_range", len(kept)))
	return kept, nil
}

func bucketReport(bucket domain.StatusBucket, tasks []domain.BugTask) *domain.BucketReport {
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.DisplayTitle())
	}
	return &domain.BucketReport{Bucket: bucket.Name, Titles: titles, Count: len(tasks)}
}
