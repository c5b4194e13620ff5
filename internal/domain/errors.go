package domain

import "errors"

// Failures are recovered at the boundary where they occur: a failed cycle
// step aborts that cycle only, dialogue-level errors re-prompt in place.
// There is no retry policy; a capability failure is surfaced once.
var (
	// ErrNoCandidates means the search capability returned an empty set.
	ErrNoCandidates = errors.New("no candidates found")

	// ErrNoEligibleCandidates means every candidate exceeded the duration limit.
	ErrNoEligibleCandidates = errors.New("no candidates within duration limit")

	// ErrDownloadFailed means the media fetch produced no file.
	ErrDownloadFailed = errors.New("media download failed")

	// ErrBackendUnreachable is a network-level failure talking to the remote backend.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrBackendError means the remote call succeeded transport-wise but reported failure.
	ErrBackendError = errors.New("backend reported error")

	// ErrValidation flags malformed user input in a dialogue step.
	ErrValidation = errors.New("invalid input")

	// ErrSessionExpired flags a dialogue step referencing a discarded session.
	ErrSessionExpired = errors.New("session expired")

	// ErrRunActive rejects a cycle submission while another run holds the slot.
	ErrRunActive = errors.New("a cycle run is already active")
)
