package services

import "fmt"

// AccountNotFoundError: no account document matches the supplied email.
type AccountNotFoundError struct {
	Email string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("no account found for %s", e.Email)
}

// InvalidCredentialsError carries the number of attempts left before the
// account locks. The product intentionally discloses this to the user.
type InvalidCredentialsError struct {
	Remaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("wrong password, %d attempt(s) remaining before lockout", e.Remaining)
}

// LockedError: the account is blocked, either just now by crossing the
// threshold or by a previous evaluation.
type LockedError struct {
	Threshold int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked after %d failed attempts, contact an administrator", e.Threshold)
}

// ValidationError: out-of-bound configuration value or missing required
// report fields.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// SyncUnavailableError: one of the two stores is unreachable, aborting the
// whole batch. Per-record failures never produce this.
type SyncUnavailableError struct {
	Store string
	Err   error
}

func (e *SyncUnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable: %v", e.Store, e.Err)
}

func (e *SyncUnavailableError) Unwrap() error { return e.Err }

// PropagationPartialFailure: the authoritative relational write committed but
// the document-store mirror write failed. Surfaced distinctly so operators can
// retry just the propagation without redoing the authoritative write.
type PropagationPartialFailure struct {
	What string
	Err  error
}

func (e *PropagationPartialFailure) Error() string {
	return fmt.Sprintf("%s saved, but mirroring to the document store failed: %v", e.What, e.Err)
}

func (e *PropagationPartialFailure) Unwrap() error { return e.Err }
