package mir

import (
	"fmt"
	"hash/fnv"
	"io"
)

// UnitID identifies one compilation unit among all the units linked into a
// program.  It is a content hash: recompiling an unchanged unit yields the same
// UnitID, even when the units are compiled independently of each other.
type UnitID uint64

// DefIndex is the index of a definition within its owning unit.
type DefIndex uint32

// BlockID is the 0-based index of a basic block within one definition.
type BlockID uint32

// DefID names one function-like body across all units.
type DefID struct {
	Unit  UnitID
	Index DefIndex
}

// UnitHash returns the hash of the unit that owns the definition.
func (d DefID) UnitHash() UnitID {
	return d.Unit
}

func (d DefID) String() string {
	return fmt.Sprintf("%016x:%d", uint64(d.Unit), d.Index)
}

// Location addresses a single CFG node: the start of a block within a
// definition.  It is meaningless outside of its full triple.
type Location struct {
	Def   DefID
	Block BlockID
}

func (l Location) String() string {
	return fmt.Sprintf("%s:bb%d", l.Def, l.Block)
}

// Unit describes a compilation unit referenced by the exported definitions.
type Unit struct {
	Name string
	Hash UnitID
}

// -----------------------------------------------------------------------------

// HashUnit computes the UnitID of a unit from its name and the contents of its
// sources.  Sources must be supplied in a stable order (eg. sorted by path) for
// the resulting hash to be stable.
func HashUnit(name string, sources ...io.Reader) (UnitID, error) {
	h := fnv.New64a()
	h.Write([]byte(name))

	for _, src := range sources {
		// separate the sources so that moving bytes between adjacent files
		// changes the hash
		h.Write([]byte{0})

		if _, err := io.Copy(h, src); err != nil {
			return 0, err
		}
	}

	return UnitID(h.Sum64()), nil
}
