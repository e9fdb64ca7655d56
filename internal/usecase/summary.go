package usecase

import (
	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/lp-bug-report/internal/domain"
)

// fixLeadTime summarises days from creation to close for fixed bugs.
// Returns nil when no task carries both timestamps.
func fixLeadTime(tasks []domain.BugTask) *domain.LeadTime {
	var days stats.Float64Data
	for _, t := range tasks {
		if t.DateCreated == nil || t.DateClosed == nil {
			continue
		}
		days = append(days, t.DateClosed.Sub(*t.DateCreated).Hours()/24)
	}
	if len(days) == 0 {
		return nil
	}

	median, err := stats.Median(days)
	if err != nil {
		return nil
	}
	mean, err := stats.Mean(days)
	if err != nil {
		return nil
	}
	return &domain.LeadTime{Samples: len(days), MedianDays: median, MeanDays: mean}
}

func teamSpread(members []domain.MemberReport) *domain.TeamSpread {
	if len(members) == 0 {
		return nil
	}
	totals := make(stats.Float64Data, 0, len(members))
	for _, m := range members {
		totals = append(totals, float64(m.Total))
	}

	median, err := stats.Median(totals)
	if err != nil {
		return nil
	}
	mean, err := stats.Mean(totals)
	if err != nil {
		return nil
	}
	return &domain.TeamSpread{MeanTotal: mean, MedianTotal: median}
}
