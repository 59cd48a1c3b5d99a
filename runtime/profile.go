package runtime

import "time"

// Profile names an execution budget.
type Profile string

const (
	// ProfileCompact keeps output small enough to show inline.
	ProfileCompact Profile = "compact"

	// ProfileFull allows large output and long-running commands.
	ProfileFull Profile = "full"
)

// IsValid reports whether p is a known profile.
func (p Profile) IsValid() bool {
	return p == ProfileCompact || p == ProfileFull
}

// Limits bounds a single execution.
type Limits struct {
	// MaxOutputBytes caps stdout and stderr independently.
	MaxOutputBytes int

	// MaxErrorChars caps Result.ErrorMessage.
	MaxErrorChars int

	// DefaultTimeout applies when the caller passes no timeout.
	DefaultTimeout time.Duration

	// MaxTimeout clamps caller-supplied timeouts.
	MaxTimeout time.Duration

	// KillGrace bounds how long output pipes may stay open after the process
	// group is killed.
	KillGrace time.Duration
}

// LimitsFor returns the limits of a profile. Unknown profiles get compact limits.
func LimitsFor(p Profile) Limits {
	if p == ProfileFull {
		return Limits{
			MaxOutputBytes: 10 << 20,
			MaxErrorChars:  200,
			DefaultTimeout: 30 * time.Second,
			MaxTimeout:     5 * time.Minute,
			KillGrace:      2 * time.Second,
		}
	}
	return Limits{
		MaxOutputBytes: 1500,
		MaxErrorChars:  200,
		DefaultTimeout: 15 * time.Second,
		MaxTimeout:     15 * time.Second,
		KillGrace:      2 * time.Second,
	}
}

// merge fills zero fields of l from base.
func (l Limits) merge(base Limits) Limits {
	if l.MaxOutputBytes <= 0 {
		l.MaxOutputBytes = base.MaxOutputBytes
	}
	if l.MaxErrorChars <= 0 {
		l.MaxErrorChars = base.MaxErrorChars
	}
	if l.DefaultTimeout <= 0 {
		l.DefaultTimeout = base.DefaultTimeout
	}
	if l.MaxTimeout <= 0 {
		l.MaxTimeout = base.MaxTimeout
	}
	if l.KillGrace <= 0 {
		l.KillGrace = base.KillGrace
	}
	return l
}

// timeout returns the effective timeout for a request.
func (l Limits) timeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		requested = l.DefaultTimeout
	}
	if requested > l.MaxTimeout {
		return l.MaxTimeout
	}
	return requested
}
