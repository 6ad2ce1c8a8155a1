package woot

import "errors"

// Sentinel errors callers should check with errors.Is; Site methods wrap
// them with fmt.Errorf("...: %w", ...) for additional context (the
// identifier involved, the offending index).
var (
	// ErrTargetNotFound is raised by GenerateDel/IntegrateDel when the
	// visible index or identifier does not resolve to a character.
	ErrTargetNotFound = errors.New("woot: target not found")

	// ErrContextMissing is raised by IntegrateIns when cp or cn is not
	// (yet) present locally. It signals a causal precondition failure,
	// not a permanent error: Site.deferInsert queues the insertion and
	// Site.retry replays it once the missing endpoint is integrated.
	ErrContextMissing = errors.New("woot: insertion context missing")

	// ErrMalformedOperation is raised by Execute for an INS operation
	// missing Arg1/Arg2.
	ErrMalformedOperation = errors.New("woot: malformed operation")

	// ErrUnknownOperation is raised by Execute for an unrecognized Op tag.
	ErrUnknownOperation = errors.New("woot: unknown operation")
)
