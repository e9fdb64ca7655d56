package domain

// BucketReport holds the bugs of one status bucket that fell inside the report range.
type BucketReport struct {
	Bucket string   `json:"bucket"`
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
}

// LeadTime summarises how many days fixed bugs stayed open.
type LeadTime struct {
	Samples    int     `json:"samples"`
	MedianDays float64 `json:"median_days"`
	MeanDays   float64 `json:"mean_days"`
}

// ProjectReport is the per-project section of the report.
// A nil bucket was never reached because an earlier query failed.
type ProjectReport struct {
	Project    string        `json:"project"`
	TotalBugs  int           `json:"total_bugs"`
	New        *BucketReport `json:"new,omitempty"`
	Fixed      *BucketReport `json:"fixed,omitempty"`
	Invalid    *BucketReport `json:"invalid,omitempty"`
	FixTime    *LeadTime     `json:"fix_lead_time,omitempty"`
	Incomplete bool          `json:"incomplete,omitempty"`
}

// Subtotal is the project's contribution to the grand total.
func (p ProjectReport) Subtotal() int {
	n := 0
	for _, b := range []*BucketReport{p.New, p.Fixed, p.Invalid} {
		if b != nil {
			n += b.Count
		}
	}
	return n
}

// MemberReport holds one team member's counts. Total covers every status,
// filtered by assignment date only.
type MemberReport struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Total       int    `json:"total"`
	New         int    `json:"new"`
	Fixed       int    `json:"fixed"`
}

// TeamSpread describes how member totals are distributed.
type TeamSpread struct {
	MeanTotal   float64 `json:"mean_total"`
	MedianTotal float64 `json:"median_total"`
}

// TeamReport is the member section of the report. When Incomplete is set,
// Members holds only the members counted before the first failure.
type TeamReport struct {
	Team       string         `json:"team"`
	Members    []MemberReport `json:"members"`
	Spread     *TeamSpread    `json:"spread,omitempty"`
	Incomplete bool           `json:"incomplete,omitempty"`
}

// Report is the output of one run. Team is only set once every project
// section has completed, so a truncated report with a Team still has a
// final GrandTotal.
type Report struct {
	Range      DateRange       `json:"range"`
	Projects   []ProjectReport `json:"projects"`
	GrandTotal int             `json:"grand_total"`
	Team       *TeamReport     `json:"team,omitempty"`
	Truncated  bool            `json:"truncated,omitempty"`
}

// GrandTotalFinal reports whether GrandTotal covers every requested project.
func (r *Report) GrandTotalFinal() bool {
	return !r.Truncated || r.Team != nil
}

// AddProject appends a project section and accumulates its subtotal.
func (r *Report) AddProject(p ProjectReport) {
	r.Projects = append(r.Projects, p)
	r.GrandTotal += p.Subtotal()
}
