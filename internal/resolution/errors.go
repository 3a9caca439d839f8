package resolution

import "errors"

// Sentinel errors surfaced by the Resolution Index Client, named after
// the failure kinds in spec §7.
var (
	ErrEmbeddingFailed  = errors.New("embedding generation failed")
	ErrIndexUnavailable = errors.New("resolution index unavailable")
	ErrPayloadMalformed = errors.New("resolution payload malformed")
)
