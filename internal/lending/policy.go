package lending

import (
	"time"

	"github.com/lendinghub/lending-service/internal/config"
)

// Policy computes the deadlines stamped on a new loan. Either deadline may be
// disabled; when both are set the sweep closes the loan at whichever comes first.
type Policy struct {
	// LoanDuration is added to the borrow time for the hard deadline. Zero disables it.
	LoanDuration time.Duration
	// CutoffEnabled turns on the daily return cutoff at CutoffHour:CutoffMinute.
	CutoffEnabled bool
	CutoffHour    int
	CutoffMinute  int
	Location      *time.Location
}

// NewPolicy builds a Policy from the lending configuration.
func NewPolicy(cfg config.LendingConfig) (Policy, error) {
	p := Policy{LoanDuration: cfg.LoanDuration, Location: cfg.Location}
	if cfg.PolicyCutoff != "" {
		h, m, err := config.ParseCutoff(cfg.PolicyCutoff)
		if err != nil {
			return Policy{}, err
		}
		p.CutoffEnabled, p.CutoffHour, p.CutoffMinute = true, h, m
	}
	return p, nil
}

// Deadlines returns the hard deadline and policy cutoff for a loan borrowed at now.
func (p Policy) Deadlines(now time.Time) (hard, policy *time.Time) {
	if p.LoanDuration > 0 {
		h := now.Add(p.LoanDuration).UTC()
		hard = &h
	}
	if p.CutoffEnabled {
		c := p.nextCutoff(now)
		policy = &c
	}
	return hard, policy
}

// nextCutoff is the first cutoff strictly after now, in the policy's zone.
func (p Policy) nextCutoff(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	y, m, d := local.Date()
	c := time.Date(y, m, d, p.CutoffHour, p.CutoffMinute, 0, 0, loc)
	if !c.After(local) {
		c = time.Date(y, m, d+1, p.CutoffHour, p.CutoffMinute, 0, 0, loc)
	}
	return c.UTC()
}
