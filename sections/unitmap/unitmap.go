// Package unitmap encodes the unit map section: the table from unit hashes to
// unit names that was used when the CFG section was produced.  The consumer
// uses it to relate the hashes in CFG records back to the units that were
// linked together.
//
// The format of the section is:
//
//	version: u32
//	num_units: u32
//	units[num_units] {
//	    hash: u64,
//	    name: NUL-terminated string,
//	}
package unitmap

import (
	"github.com/pkg/errors"

	"ykcfg/mir"
	"ykcfg/sections"
	"ykcfg/sections/mircfg"
)

// Encode builds the unit map section for the given units.  The units are
// written in the order given.
func Encode(units []mir.Unit, layout sections.Layout) ([]byte, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[mir.UnitID]string, len(units))
	ds := sections.NewDataSection(layout)
	ds.WriteU32(mircfg.FormatVersion)
	ds.WriteU32(uint32(len(units)))

	for _, unit := range units {
		if other, ok := seen[unit.Hash]; ok {
			return nil, errors.Errorf("units `%s` and `%s` have the same hash %016x", other, unit.Name, uint64(unit.Hash))
		}
		seen[unit.Hash] = unit.Name

		ds.WriteU64(uint64(unit.Hash))
		ds.WriteString(unit.Name)
	}

	return ds.Bytes(), nil
}

// Decode reads a unit map section back.  It returns the format version the
// map was written for along with the units.
func Decode(data []byte, layout sections.Layout) (uint32, []mir.Unit, error) {
	r := sections.NewReader(data, layout)

	version, err := r.ReadU32()
	if err != nil {
		return 0, nil, err
	}

	count, err := r.ReadU32()
	if err != nil {
		return 0, nil, err
	}

	var units []mir.Unit
	for i := uint32(0); i < count; i++ {
		hash, err := r.ReadU64()
		if err != nil {
			return 0, nil, errors.Wrapf(err, "reading unit %d", i)
		}

		name, err := r.ReadString()
		if err != nil {
			return 0, nil, errors.Wrapf(err, "reading unit %d", i)
		}

		units = append(units, mir.Unit{Name: name, Hash: mir.UnitID(hash)})
	}

	if r.Remaining() != 0 {
		return 0, nil, errors.Errorf("%d trailing bytes in unit map", r.Remaining())
	}

	return version, units, nil
}
