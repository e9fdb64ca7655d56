package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/naka-gawa/lp-bug-report/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It lets the reporter run without a live Launchpad.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) SearchTasks(ctx context.Context, project string, statuses []string, assignee string) ([]domain.BugTask, error) {
	args := m.Called(ctx, project, statuses, assignee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BugTask), args.Error(1)
}

func (m *mockFetcher) CountTasks(ctx context.Context, project string, statuses []string) (int, error) {
	args := m.Called(ctx, project, statuses)
	return args.Int(0), args.Error(1)
}

func (m *mockFetcher) TeamMembers(ctx context.Context, team string) ([]domain.TeamMember, error) {
	args := m.Called(ctx, team)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TeamMember), args.Error(1)
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func january(t *testing.T) domain.DateRange {
	r, err := domain.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	return r
}

// expectProject registers the four project-level queries.
func expectProject(f *mockFetcher, project string, total int, newTasks, fixed, invalid []domain.BugTask) {
	f.On("CountTasks", mock.Anything, project, domain.AllStatus()).Return(total, nil)
	f.On("SearchTasks", mock.Anything, project, domain.New.Statuses, "").Return(newTasks, nil)
	f.On("SearchTasks", mock.Anything, project, domain.Fixed.Statuses, "").Return(fixed, nil)
	f.On("SearchTasks", mock.Anything, project, domain.Invalid.Statuses, "").Return(invalid, nil)
}

func TestReporter_ProjectReport(t *testing.T) {
	testCases := []struct {
		name            string
		newTasks        []domain.BugTask
		fixed           []domain.BugTask
		invalid         []domain.BugTask
		expectedNew     []string
		expectedFixed   []string
		expectedInvalid []string
		expectFixTime   *domain.LeadTime
	}{
		{
			name:            "single new bug in range",
			newTasks:        []domain.BugTask{{Title: "Dash is slow", Status: "New", DateCreated: ts("2024-01-15T12:00:00Z")}},
			expectedNew:     []string{"Dash is slow"},
			expectedFixed:   []string{},
			expectedInvalid: []string{},
		},
		{
			name: "fixed exactly at end of day is included",
			fixed: []domain.BugTask{
				{Title: "Boundary", Status: "Fix Released", DateCreated: ts("2024-01-30T23:59:59Z"), DateClosed: ts("2024-01-31T23:59:59Z")},
				{Title: "Too late", Status: "Fix Released", DateClosed: ts("2024-02-01T00:00:00Z")},
			},
			expectedNew:     []string{},
			expectedFixed:   []string{"Boundary"},
			expectedInvalid: []string{},
			expectFixTime:   &domain.LeadTime{Samples: 1, MedianDays: 1, MeanDays: 1},
		},
		{
			name: "records missing the relevant timestamp are skipped",
			newTasks: []domain.BugTask{
				{Title: "No creation date", Status: "Triaged"},
				{Title: "  Created on start  ", Status: "Confirmed", DateCreated: ts("2024-01-01T00:00:00Z")},
			},
			invalid: []domain.BugTask{
				{Title: "Still open", Status: "Incomplete"},
				{Title: "Closed a second early", Status: "Invalid", DateClosed: ts("2023-12-31T23:59:59Z")},
				{Title: "Won't fix", Status: "Won't Fix", DateClosed: ts("2024-01-20T00:00:00Z")},
			},
			expectedNew:     []string{"Created on start"},
			expectedFixed:   []string{},
			expectedInvalid: []string{"Won't fix"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			expectProject(fetcher, "ubuntu-ux", 7, tc.newTasks, tc.fixed, tc.invalid)
			reporter := NewReporter(fetcher, zap.NewNop(), 1)

			rep, err := reporter.ProjectReport(context.Background(), "ubuntu-ux", january(t))
			require.NoError(t, err)

			assert.Equal(t, "ubuntu-ux", rep.Project)
			assert.Equal(t, 7, rep.TotalBugs)
			assert.False(t, rep.Incomplete)
			require.NotNil(t, rep.New)
			require.NotNil(t, rep.Fixed)
			require.NotNil(t, rep.Invalid)
			assert.Equal(t, tc.expectedNew, rep.New.Titles)
			assert.Equal(t, tc.expectedFixed, rep.Fixed.Titles)
			assert.Equal(t, tc.expectedInvalid, rep.Invalid.Titles)
			assert.Equal(t, len(tc.expectedNew), rep.New.Count)
			assert.Equal(t, len(tc.expectedFixed), rep.Fixed.Count)
			assert.Equal(t, len(tc.expectedInvalid), rep.Invalid.Count)
			assert.Equal(t, tc.expectFixTime, rep.FixTime)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestReporter_Generate(t *testing.T) {
	fetcher := new(mockFetcher)
	expectProject(fetcher, "ubuntu-ux", 10,
		[]domain.BugTask{{Title: "A", DateCreated: ts("2024-01-15T00:00:00Z")}},
		[]domain.BugTask{{Title: "B", DateClosed: ts("2024-01-02T00:00:00Z")}, {Title: "C", DateClosed: ts("2024-01-03T00:00:00Z")}},
		nil)
	expectProject(fetcher, "unity", 3,
		nil,
		nil,
		[]domain.BugTask{{Title: "D", DateClosed: ts("2024-01-04T00:00:00Z")}})
	fetcher.On("TeamMembers", mock.Anything, "unity-design-team").Return([]domain.TeamMember{}, nil)

	reporter := NewReporter(fetcher, zap.NewNop(), 1)
	report, err := reporter.Generate(context.Background(), Request{
		Range:    january(t),
		Projects: []string{"ubuntu-ux", "unity"},
		Team:     "unity-design-team",
	})
	require.NoError(t, err)

	require.Len(t, report.Projects, 2)
	assert.Equal(t, 3, report.Projects[0].Subtotal())
	assert.Equal(t, 1, report.Projects[1].Subtotal())
	assert.Equal(t, 4, report.GrandTotal)

	require.NotNil(t, report.Team)
	assert.Equal(t, "unity-design-team", report.Team.Team)
	assert.Empty(t, report.Team.Members)
	assert.Nil(t, report.Team.Spread)
	fetcher.AssertExpectations(t)
}

func TestReporter_TeamReport(t *testing.T) {
	alice := domain.TeamMember{Name: "alice", DisplayName: "Alice Example", SelfLink: "https://api.launchpad.net/devel/~alice"}
	bob := domain.TeamMember{Name: "bob", DisplayName: "Bob Example", SelfLink: "https://api.launchpad.net/devel/~bob"}

	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			fetcher := new(mockFetcher)
			fetcher.On("TeamMembers", mock.Anything, "unity-design-team").Return([]domain.TeamMember{alice, bob}, nil)

			// Alice: an invalid bug assigned in range still counts toward Total.
			fetcher.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.AllStatus(), alice.SelfLink).Return([]domain.BugTask{
				{Title: "a1", Status: "New", DateAssigned: ts("2024-01-05T00:00:00Z")},
				{Title: "a2", Status: "Opinion", DateAssigned: ts("2024-01-06T00:00:00Z")},
				{Title: "a3", Status: "Fix Released", DateAssigned: ts("2023-11-01T00:00:00Z"), DateClosed: ts("2024-01-10T00:00:00Z")},
			}, nil)
			fetcher.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.Fixed.Statuses, alice.SelfLink).Return([]domain.BugTask{
				{Title: "a3", Status: "Fix Released", DateAssigned: ts("2023-11-01T00:00:00Z"), DateClosed: ts("2024-01-10T00:00:00Z")},
			}, nil)
			fetcher.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.New.Statuses, alice.SelfLink).Return([]domain.BugTask{
				{Title: "a1", Status: "New", DateAssigned: ts("2024-01-05T00:00:00Z")},
			}, nil)

			// Bob: nothing in range.
			fetcher.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.AllStatus(), bob.SelfLink).Return([]domain.BugTask{
				{Title: "b1", Status: "New"},
			}, nil)
			fetcher.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.Fixed.Statuses, bob.SelfLink).Return(nil, nil)
			fetcher.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.New.Statuses, bob.SelfLink).Return([]domain.BugTask{
				{Title: "b1", Status: "New"},
			}, nil)

			reporter := NewReporter(fetcher, zap.NewNop(), concurrency)
			rep, err := reporter.TeamReport(context.Background(), []string{"ubuntu-ux"}, "unity-design-team", january(t))
			require.NoError(t, err)

			assert.Equal(t, []domain.MemberReport{
				{Name: "alice", DisplayName: "Alice Example", Total: 2, New: 1, Fixed: 1},
				{Name: "bob", DisplayName: "Bob Example", Total: 0, New: 0, Fixed: 0},
			}, rep.Members)
			assert.Equal(t, &domain.TeamSpread{MeanTotal: 1, MedianTotal: 1}, rep.Spread)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestReporter_Generate_FailuresPropagate(t *testing.T) {
	apiErr := errors.New("launchpad unavailable")
	alice := domain.TeamMember{Name: "alice", DisplayName: "Alice Example", SelfLink: "https://api.launchpad.net/devel/~alice"}
	bob := domain.TeamMember{Name: "bob", DisplayName: "Bob Example", SelfLink: "https://api.launchpad.net/devel/~bob"}

	testCases := []struct {
		name  string
		setup func(f *mockFetcher)
		check func(t *testing.T, report *domain.Report)
	}{
		{
			name: "count query fails before any section",
			setup: func(f *mockFetcher) {
				f.On("CountTasks", mock.Anything, "ubuntu-ux", domain.AllStatus()).Return(0, apiErr)
			},
			check: func(t *testing.T, report *domain.Report) {
				assert.Empty(t, report.Projects)
				assert.Nil(t, report.Team)
				assert.False(t, report.GrandTotalFinal())
			},
		},
		{
			name: "fixed query fails after the new bucket completed",
			setup: func(f *mockFetcher) {
				f.On("CountTasks", mock.Anything, "ubuntu-ux", domain.AllStatus()).Return(12, nil)
				f.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.New.Statuses, "").Return([]domain.BugTask{
					{Title: "Dash is slow", Status: "New", DateCreated: ts("2024-01-10T08:00:00Z")},
				}, nil)
				f.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.Fixed.Statuses, "").Return(nil, apiErr)
			},
			check: func(t *testing.T, report *domain.Report) {
				require.Len(t, report.Projects, 1)
				p := report.Projects[0]
				assert.True(t, p.Incomplete)
				assert.Equal(t, 12, p.TotalBugs)
				require.NotNil(t, p.New)
				assert.Equal(t, []string{"Dash is slow"}, p.New.Titles)
				assert.Nil(t, p.Fixed)
				assert.Nil(t, p.Invalid)
				assert.Nil(t, p.FixTime)
				assert.Equal(t, 1, report.GrandTotal)
				assert.False(t, report.GrandTotalFinal())
				assert.Nil(t, report.Team)
			},
		},
		{
			name: "second project fails after the first completed",
			setup: func(f *mockFetcher) {
				expectProject(f, "ubuntu-ux", 1, nil, nil, nil)
				f.On("CountTasks", mock.Anything, "unity", domain.AllStatus()).Return(5, nil)
				f.On("SearchTasks", mock.Anything, "unity", domain.New.Statuses, "").Return(nil, apiErr)
			},
			check: func(t *testing.T, report *domain.Report) {
				require.Len(t, report.Projects, 2)
				assert.False(t, report.Projects[0].Incomplete)
				assert.True(t, report.Projects[1].Incomplete)
				assert.Equal(t, 5, report.Projects[1].TotalBugs)
				assert.Nil(t, report.Projects[1].New)
				assert.False(t, report.GrandTotalFinal())
				assert.Nil(t, report.Team)
			},
		},
		{
			name: "team roster lookup fails",
			setup: func(f *mockFetcher) {
				expectProject(f, "ubuntu-ux", 1, nil, nil, nil)
				expectProject(f, "unity", 1, nil, nil, nil)
				f.On("TeamMembers", mock.Anything, "unity-design-team").Return(nil, apiErr)
			},
			check: func(t *testing.T, report *domain.Report) {
				assert.Len(t, report.Projects, 2)
				assert.True(t, report.GrandTotalFinal())
				require.NotNil(t, report.Team)
				assert.True(t, report.Team.Incomplete)
				assert.Empty(t, report.Team.Members)
			},
		},
		{
			name: "second member fails after the first completed",
			setup: func(f *mockFetcher) {
				expectProject(f, "ubuntu-ux", 1, nil, nil, nil)
				expectProject(f, "unity", 1, nil, nil, nil)
				f.On("TeamMembers", mock.Anything, "unity-design-team").Return([]domain.TeamMember{alice, bob}, nil)
				f.On("SearchTasks", mock.Anything, mock.Anything, mock.Anything, alice.SelfLink).Return([]domain.BugTask{
					{Title: "a1", Status: "New", DateAssigned: ts("2024-01-05T00:00:00Z")},
				}, nil)
				f.On("SearchTasks", mock.Anything, "ubuntu-ux", domain.AllStatus(), bob.SelfLink).Return(nil, apiErr)
			},
			check: func(t *testing.T, report *domain.Report) {
				assert.True(t, report.GrandTotalFinal())
				require.NotNil(t, report.Team)
				assert.True(t, report.Team.Incomplete)
				assert.Nil(t, report.Team.Spread)
				require.Len(t, report.Team.Members, 1)
				assert.Equal(t, "alice", report.Team.Members[0].Name)
				assert.Equal(t, 2, report.Team.Members[0].Total)
				assert.Equal(t, 2, report.Team.Members[0].New)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			tc.setup(fetcher)
			reporter := NewReporter(fetcher, zap.NewNop(), 1)

			report, err := reporter.Generate(context.Background(), Request{
				Range:    january(t),
				Projects: []string{"ubuntu-ux", "unity"},
				Team:     "unity-design-team",
			})
			assert.ErrorIs(t, err, apiErr)
			require.NotNil(t, report)
			assert.True(t, report.Truncated)
			tc.check(t, report)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestFixLeadTime(t *testing.T) {
	tasks := []domain.BugTask{
		{DateCreated: ts("2024-01-01T00:00:00Z"), DateClosed: ts("2024-01-02T00:00:00Z")},
		{DateCreated: ts("2024-01-01T00:00:00Z"), DateClosed: ts("2024-01-04T00:00:00Z")},
		{DateCreated: ts("2024-01-01T00:00:00Z"), DateClosed: ts("2024-01-09T00:00:00Z")},
		{DateClosed: ts("2024-01-09T00:00:00Z")},
	}
	assert.Equal(t, &domain.LeadTime{Samples: 3, MedianDays: 3, MeanDays: 4}, fixLeadTime(tasks))
	assert.Nil(t, fixLeadTime(nil))
}
