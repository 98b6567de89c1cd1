package quota

import "time"

// Window is the trailing period over which a key's checks are counted.
const Window = 24 * time.Hour

// DefaultDailyLimit is the hard per-key ceiling when none is configured.
const DefaultDailyLimit = 10000

// Verdict classifies the pending request.
type Verdict int

const (
	Allow Verdict = iota
	AllowWithWarning
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case AllowWithWarning:
		return "allow_with_warning"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the admission outcome plus the figures a rate-limit response
// needs to carry.
type Decision struct {
	Verdict Verdict
	Used    int64
	Limit   int64
	ResetAt time.Time
}

// Tracker applies the two-tier quota policy: a hard ceiling per trailing
// window and a soft warning band starting at 80% of it.
type Tracker struct {
	limit int64
	soft  int64
	now   func() time.Time
}

// NewTracker builds a tracker for the given hard limit. Non-positive limits
// fall back to the default.
func NewTracker(limit int64) *Tracker {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Tracker{
		limit: limit,
		soft:  limit * 8 / 10,
		now:   time.Now,
	}
}

// Limit returns the configured hard ceiling.
func (t *Tracker) Limit() int64 {
	return t.limit
}

// Admit classifies the next request for a key given the number of checks it
// has already made inside the trailing window. The count is a point-in-time
// read supplied by the caller; concurrent requests racing on the boundary
// are an accepted looseness.
func (t *Tracker) Admit(usedInWindow int64) Decision {
	projected := usedInWindow + 1
	d := Decision{
		Used:    usedInWindow,
		Limit:   t.limit,
		ResetAt: t.now().UTC().Add(Window),
	}
	switch {
	case projected > t.limit:
		d.Verdict = Reject
	case projected >= t.soft:
		d.Verdict = AllowWithWarning
	default:
		d.Verdict = Allow
	}
	return d
}
