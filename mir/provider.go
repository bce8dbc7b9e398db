// Package mir is the boundary between ykcfg and the compiler that hosts it.  It
// defines how units, definitions and blocks are named on the wire and the
// narrow set of queries the exporter makes against the host's IR.
package mir

// Provider is the query interface a host compiler implements so that its
// control flow can be exported.  Implementations must be deterministic: the
// same program must always yield the same definitions, in the same order, with
// the same blocks.  HasBody and BlocksOf are called concurrently.
type Provider interface {
	// ReachableDefinitions returns every definition that should be exported.
	// The returned set is already closed under the host's reachability policy
	// and contains no duplicates.
	ReachableDefinitions() ([]DefID, error)

	// HasBody returns whether a definition has a materialized CFG.
	HasBody(def DefID) bool

	// BlocksOf returns the blocks of a definition ordered by BlockID.  It must
	// only be called on definitions for which HasBody is true, and then
	// returns at least one block.
	BlocksOf(def DefID) ([]Block, error)

	// Units returns all the units that own at least one of the reachable
	// definitions, ordered by name.
	Units() []Unit
}
