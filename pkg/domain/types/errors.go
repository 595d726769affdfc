package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures across layers so callers can decide
// whether to retry, fix input, or treat the error as a logic bug.
var (
	// TagValidation marks malformed or missing required input. The target
	// record is left in its prior state.
	TagValidation = goerr.NewTag("validation")

	// TagConflict marks a cache write colliding with a differing existing
	// value, or a treatment branch mutual-exclusion violation. Not retried.
	TagConflict = goerr.NewTag("conflict")

	// TagCollaborator marks a failed or timed-out external call. Retryable.
	TagCollaborator = goerr.NewTag("collaborator_unavailable")

	// TagExpiredToken marks questionnaire completion after expiry or
	// consumption. Answers are discarded.
	TagExpiredToken = goerr.NewTag("expired_token")

	// TagState marks a workflow transition attempted from an invalid state.
	TagState = goerr.NewTag("invalid_state")

	// TagNotFound marks a lookup for a record that does not exist.
	TagNotFound = goerr.NewTag("not_found")
)
