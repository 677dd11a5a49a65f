package domain

// Resolve reifies the merge_required resolution choice as a small sum type
// dispatched by an explicit switch in the state machine, rather than a
// registry of named callbacks.
type Resolve int

const (
	// ResolvePending means no resolution has been chosen yet: the merge
	// state machine must raise merge_required and stop.
	ResolvePending Resolve = iota
	ResolveLocal
	ResolveRemote
	ResolveNotMine
)

// ParseResolve maps the wire-level resolve_with value to a Resolve. ok is
// false for any value outside {local, remote, not_mine}.
func ParseResolve(s string) (Resolve, bool) {
	switch s {
	case "local":
		return ResolveLocal, true
	case "remote":
		return ResolveRemote, true
	case "not_mine":
		return ResolveNotMine, true
	default:
		return ResolvePending, false
	}
}
