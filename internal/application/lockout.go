package application

import "time"

// LockoutPolicy is the pure decision logic for the brute-force lockout.
// Defaults mirror the usual identity settings: 5 attempts, 5 minute window.
type LockoutPolicy struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxFailedAttempts: 5, LockoutDuration: 5 * time.Minute}
}

// LockoutDecision is the outcome of evaluating a failed attempt.
type LockoutDecision struct {
	IsLockedOut   bool
	FailedCount   int
	NewLockoutEnd *time.Time
}

// IsLockedOut reports whether a lockout window is active at now.
func (p LockoutPolicy) IsLockedOut(lockoutEnd *time.Time, now time.Time) bool {
	return lockoutEnd != nil && lockoutEnd.After(now)
}

// RecordFailure evaluates the counter after a failed password attempt.
// failedCount is the post-increment value. The window is non-sliding: an
// active lockout is never extended, further failures only bump the counter.
// Once the counter reaches the threshold with no active window, a new
// window of LockoutDuration opens and the caller clears the counter, so
// the next window needs a full run of fresh failures.
func (p LockoutPolicy) RecordFailure(failedCount int, lockoutEnd *time.Time, now time.Time) LockoutDecision {
	d := LockoutDecision{FailedCount: failedCount}
	if p.IsLockedOut(lockoutEnd, now) {
		d.IsLockedOut = true
		return d
	}
	if failedCount >= p.MaxFailedAttempts {
		end := now.Add(p.LockoutDuration)
		d.IsLockedOut = true
		d.NewLockoutEnd = &end
	}
	return d
}
