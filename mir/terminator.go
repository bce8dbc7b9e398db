package mir

// Terminator is the control transfer instruction ending a basic block.  The set
// of terminators is closed: only the types in this file implement it.
type Terminator interface {
	mirTerm()
}

// Block is a basic block as seen through the provider boundary: its index and
// the terminator that ends it.
type Block struct {
	ID   BlockID
	Term Terminator
}

// Goto jumps unconditionally to Target.
type Goto struct {
	Target BlockID
}

// SwitchInt branches to one of Targets.  The order of the targets is
// significant and duplicates are allowed.
type SwitchInt struct {
	Targets []BlockID
}

// Resume continues unwinding after a cleanup block has run.
type Resume struct{}

// Abort terminates the process abnormally.
type Abort struct{}

// Return returns from the current definition.
type Return struct{}

// Unreachable marks a block that can never be entered.
type Unreachable struct{}

// Drop drops a value and continues at Target, or at Unwind if dropping panics.
type Drop struct {
	Target BlockID
	Unwind *BlockID
}

// DropAndReplace drops a value, replaces it and continues at Target, or at
// Unwind if dropping panics.
type DropAndReplace struct {
	Target BlockID
	Unwind *BlockID
}

// Call calls a function.  Callee is nil when the target cannot be determined
// statically: function pointers, dynamic dispatch, intrinsics, etc.  The
// destination block of a known call is always block 0 of the callee.
type Call struct {
	Callee  *DefID
	Cleanup *BlockID
}

// Assert checks a condition and continues at Target, or at Cleanup if the
// assertion fails.
type Assert struct {
	Target  BlockID
	Cleanup *BlockID
}

// Yield suspends a generator.  It resumes at Resume, or continues at Drop if
// the generator is dropped while suspended.
type Yield struct {
	Resume BlockID
	Drop   *BlockID
}

// GeneratorDrop ends the drop glue of a generator.
type GeneratorDrop struct{}

// FalseEdges continues at Real.  Imaginary targets only exist to satisfy static
// analyses upstream; they are never taken at runtime.
type FalseEdges struct {
	Real      BlockID
	Imaginary []BlockID
}

// FalseUnwind continues at Real.  Unwind is a target that static analyses must
// consider but which is never taken at runtime.
type FalseUnwind struct {
	Real   BlockID
	Unwind *BlockID
}

func (*Goto) mirTerm()           {}
func (*SwitchInt) mirTerm()      {}
func (*Resume) mirTerm()         {}
func (*Abort) mirTerm()          {}
func (*Return) mirTerm()         {}
func (*Unreachable) mirTerm()    {}
func (*Drop) mirTerm()           {}
func (*DropAndReplace) mirTerm() {}
func (*Call) mirTerm()           {}
func (*Assert) mirTerm()         {}
func (*Yield) mirTerm()          {}
func (*GeneratorDrop) mirTerm()  {}
func (*FalseEdges) mirTerm()     {}
func (*FalseUnwind) mirTerm()    {}

// BlockRef is a small helper for building optional block targets.
func BlockRef(id BlockID) *BlockID {
	return &id
}
