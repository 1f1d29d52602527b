package periods

import "time"

// PeriodStatus enumerates valid period states. Closed is terminal;
// reopening is not an operation this module exposes.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Period represents an accounting period window owned by a client.
type Period struct {
	ID        int64
	ClientID  int64
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	ClosedAt  *time.Time
	ClosedBy  *int64
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside the period. Both
// boundaries are inclusive: a transaction dated exactly on period_start
// or period_end belongs to the period.
func (p Period) Contains(date time.Time) bool {
	d := Day(date)
	return !d.Before(Day(p.StartDate)) && !d.After(Day(p.EndDate))
}

// Overlaps reports whether [start,end] intersects the period range.
func (p Period) Overlaps(start, end time.Time) bool {
	return !Day(end).Before(Day(p.StartDate)) && !Day(start).After(Day(p.EndDate))
}

// SameRange reports whether the period covers exactly [start,end].
func (p Period) SameRange(start, end time.Time) bool {
	return Day(p.StartDate).Equal(Day(start)) && Day(p.EndDate).Equal(Day(end))
}

// Day truncates a timestamp to its calendar day in UTC. Period checks
// are date-granular regardless of the time component callers pass in.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
