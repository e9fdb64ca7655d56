package domain

// StatusBucket is a named group of tracker status values counted as one category.
type StatusBucket struct {
	Name     string
	Statuses []string
}

var (
	// New holds bugs that are open and not yet worked on.
	New = StatusBucket{Name: "New", Statuses: []string{"New", "Triaged", "Confirmed"}}
	// Fixed holds bugs that have a fix committed or released.
	Fixed = StatusBucket{Name: "Fixed", Statuses: []string{"Fix Released", "Fix Committed"}}
	// Invalid holds bugs closed without a fix.
	Invalid = StatusBucket{Name: "Invalid", Statuses: []string{"Incomplete", "Invalid", "Won't Fix", "Opinion"}}
)

// Buckets lists the fixed buckets in the order their statuses make up AllStatus.
var Buckets = []StatusBucket{Fixed, Invalid, New}

// AllStatus returns the union of every bucket's statuses, in bucket order, without duplicates.
func AllStatus() []string {
	seen := make(map[string]struct{})
	var all []string
	for _, b := range Buckets {
		for _, s := range b.Statuses {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			all = append(all, s)
		}
	}
	return all
}

// Contains reports whether status belongs to the bucket.
func (b StatusBucket) Contains(status string) bool {
	for _, s := range b.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Classify maps a tracker status to its bucket. The second result is false for
// statuses that belong to no bucket, such as "In Progress".
func Classify(status string) (StatusBucket, bool) {
	for _, b := range Buckets {
		if b.Contains(status) {
			return b, true
		}
	}
	return StatusBucket{}, false
}
