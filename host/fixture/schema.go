package fixture

import (
	"encoding"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// File is the YAML document describing a synthetic program.
type File struct {
	Units []UnitSpec `yaml:"units"`
}

// UnitSpec describes one unit.  Hash is derived from the name when omitted.
type UnitSpec struct {
	Name        string    `yaml:"name"`
	Hash        *uint64   `yaml:"hash"`
	Definitions []DefSpec `yaml:"definitions"`
}

// DefSpec describes one definition.  Body defaults to whether the definition
// has blocks.
type DefSpec struct {
	Index  uint32      `yaml:"index"`
	Name   string      `yaml:"name"`
	Root   bool        `yaml:"root"`
	Body   *bool       `yaml:"body"`
	Blocks []BlockSpec `yaml:"blocks"`
}

// BlockSpec describes the terminator of one block.  Blocks are numbered by
// their position in the definition.
type BlockSpec struct {
	Kind      Kind        `yaml:"kind"`
	Target    *uint32     `yaml:"target"`
	Targets   []uint32    `yaml:"targets"`
	Unwind    *uint32     `yaml:"unwind"`
	Cleanup   *uint32     `yaml:"cleanup"`
	Drop      *uint32     `yaml:"drop"`
	Callee    *CalleeSpec `yaml:"callee"`
	Imaginary []uint32    `yaml:"imaginary"`
}

// CalleeSpec names the target of a call by unit name and definition index.
type CalleeSpec struct {
	Unit  string `yaml:"unit"`
	Index uint32 `yaml:"index"`
}

// Kind is the kind of terminator of a block.
type Kind int

const (
	KindInvalid Kind = iota
	KindGoto
	KindSwitchInt
	KindResume
	KindAbort
	KindReturn
	KindUnreachable
	KindDrop
	KindDropAndReplace
	KindCall
	KindAssert
	KindYield
	KindGeneratorDrop
	KindFalseEdges
	KindFalseUnwind
)

var kindNames = map[string]Kind{
	"goto":             KindGoto,
	"switch-int":       KindSwitchInt,
	"resume":           KindResume,
	"abort":            KindAbort,
	"return":           KindReturn,
	"unreachable":      KindUnreachable,
	"drop":             KindDrop,
	"drop-and-replace": KindDropAndReplace,
	"call":             KindCall,
	"assert":           KindAssert,
	"yield":            KindYield,
	"generator-drop":   KindGeneratorDrop,
	"false-edges":      KindFalseEdges,
	"false-unwind":     KindFalseUnwind,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}

	return fmt.Sprintf("kind-invalid(%d)", int(k))
}

var _ encoding.TextUnmarshaler = (*Kind)(nil)

func (k *Kind) UnmarshalText(b []byte) error {
	if kind, ok := kindNames[string(b)]; ok {
		*k = kind
		return nil
	}

	names := make([]string, 0, len(kindNames))
	for name := range kindNames {
		names = append(names, name)
	}
	sort.Strings(names)

	return errors.Errorf("unknown block kind %q, expected one of %v", b, names)
}
