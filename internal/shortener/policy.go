package shortener

import "time"

// DefaultAccessWindow is how long a paid short URL stays reachable.
const DefaultAccessWindow = 24 * time.Hour

// Access is the outcome of evaluating a record against the expiration policy.
type Access int

const (
	// AccessGranted means the record can be followed.
	AccessGranted Access = iota
	// AccessExpired means the record is already flagged as expired.
	AccessExpired
	// AccessLapsed means a paid record outlived its window and must be flagged.
	AccessLapsed
)

// ExpirationPolicy decides when a paid short URL becomes inaccessible.
type ExpirationPolicy struct {
	Window time.Duration
}

// NewExpirationPolicy returns a policy with the default access window.
func NewExpirationPolicy() ExpirationPolicy {
	return ExpirationPolicy{Window: DefaultAccessWindow}
}

// Evaluate checks a record at the given instant. Elapsed time is counted in whole hours.
// Records without a transaction hash never lapse.
func (p ExpirationPolicy) Evaluate(s *ShortURL, now time.Time) Access {
	if s.Expired {
		return AccessExpired
	}

	if !s.Paid() {
		return AccessGranted
	}

	elapsed := now.Sub(s.CreatedAt).Truncate(time.Hour)
	if elapsed >= p.Window {
		return AccessLapsed
	}

	return AccessGranted
}
