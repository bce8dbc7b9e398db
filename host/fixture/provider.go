// Package fixture is a host that reads synthetic programs from YAML files.  It
// lets the exporter be driven without a compiler, eg. to produce test inputs
// for the consumer of the CFG section.
package fixture

import (
	"bytes"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"ykcfg/mir"
)

type definition struct {
	id      mir.DefID
	name    string
	root    bool
	hasBody bool
	blocks  []mir.Block
	callees []mir.DefID
}

// Provider serves the definitions of one or more fixture files.
type Provider struct {
	units []mir.Unit
	defs  map[mir.DefID]*definition

	// order is the order definitions were declared in
	order []mir.DefID

	reachOnce sync.Once
	reach     []mir.DefID
	reachErr  error
}

// Load reads the fixture files at paths.  Unit names must be unique across
// all files.
func Load(paths ...string) (*Provider, error) {
	var files []*File
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		file, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading fixture %s", path)
		}

		files = append(files, file)
	}

	return New(files...)
}

// Parse decodes a single fixture document and builds its provider.
func Parse(content string) (*Provider, error) {
	file, err := Decode(bytes.NewReader([]byte(content)))
	if err != nil {
		return nil, err
	}

	return New(file)
}

// Decode decodes a fixture document.  Unknown fields are rejected.
func Decode(r io.Reader) (*File, error) {
	var file File
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(&file); err != nil {
		return nil, err
	}

	return &file, nil
}

// New builds a provider from decoded fixture files.
func New(files ...*File) (*Provider, error) {
	p := &Provider{defs: make(map[mir.DefID]*definition)}

	unitHashes := make(map[string]mir.UnitID)
	for _, file := range files {
		for _, us := range file.Units {
			if us.Name == "" {
				return nil, errors.New("unit without a name")
			}

			if _, ok := unitHashes[us.Name]; ok {
				return nil, errors.Errorf("unit `%s` is declared twice", us.Name)
			}

			hash, err := unitHash(us)
			if err != nil {
				return nil, err
			}

			unitHashes[us.Name] = hash
			p.units = append(p.units, mir.Unit{Name: us.Name, Hash: hash})
		}
	}

	// callees may refer to units declared later so definitions are only
	// built once every unit is known
	for _, file := range files {
		for _, us := range file.Units {
			for _, ds := range us.Definitions {
				def, err := newDefinition(unitHashes, unitHashes[us.Name], ds)
				if err != nil {
					return nil, errors.Wrapf(err, "in definition %d of unit `%s`", ds.Index, us.Name)
				}

				if _, ok := p.defs[def.id]; ok {
					return nil, errors.Errorf("definition %d of unit `%s` is declared twice", ds.Index, us.Name)
				}

				p.defs[def.id] = def
				p.order = append(p.order, def.id)
			}
		}
	}

	for _, id := range p.order {
		for _, callee := range p.defs[id].callees {
			if _, ok := p.defs[callee]; !ok {
				return nil, errors.Errorf("definition %s calls undeclared definition %s", id, callee)
			}
		}
	}

	return p, nil
}

func unitHash(us UnitSpec) (mir.UnitID, error) {
	if us.Hash != nil {
		return mir.UnitID(*us.Hash), nil
	}

	return mir.HashUnit(us.Name)
}

func newDefinition(unitHashes map[string]mir.UnitID, unit mir.UnitID, ds DefSpec) (*definition, error) {
	def := &definition{
		id:      mir.DefID{Unit: unit, Index: mir.DefIndex(ds.Index)},
		name:    ds.Name,
		root:    ds.Root,
		hasBody: len(ds.Blocks) > 0,
	}

	if ds.Body != nil {
		def.hasBody = *ds.Body
	}

	if !def.hasBody {
		if len(ds.Blocks) > 0 {
			return nil, errors.New("definition without a body has blocks")
		}

		return def, nil
	}

	if len(ds.Blocks) == 0 {
		return nil, errors.New("definition with a body has no blocks")
	}

	for i, bs := range ds.Blocks {
		term, callee, err := convertBlock(unitHashes, bs, len(ds.Blocks))
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", i)
		}

		def.blocks = append(def.blocks, mir.Block{ID: mir.BlockID(i), Term: term})
		if callee != nil {
			def.callees = append(def.callees, *callee)
		}
	}

	return def, nil
}

// -----------------------------------------------------------------------------

// ReachableDefinitions returns the definitions reachable from the roots through
// calls.  The roots are the definitions marked `root`, or every definition if
// none is.
func (p *Provider) ReachableDefinitions() ([]mir.DefID, error) {
	p.reachOnce.Do(func() {
		var roots []mir.DefID
		for _, id := range p.order {
			if p.defs[id].root {
				roots = append(roots, id)
			}
		}

		if len(roots) == 0 {
			roots = p.order
		}

		p.reach, p.reachErr = mir.Walk(roots, func(def mir.DefID) ([]mir.DefID, error) {
			return p.defs[def].callees, nil
		})
	})

	return p.reach, p.reachErr
}

func (p *Provider) HasBody(def mir.DefID) bool {
	d, ok := p.defs[def]
	return ok && d.hasBody
}

func (p *Provider) BlocksOf(def mir.DefID) ([]mir.Block, error) {
	d, ok := p.defs[def]
	if !ok {
		return nil, errors.Errorf("unknown definition %s", def)
	}

	if !d.hasBody {
		return nil, errors.Errorf("definition %s has no body", def)
	}

	return d.blocks, nil
}

// Units returns the units owning at least one reachable definition, ordered by
// name.
func (p *Provider) Units() []mir.Unit {
	reach, _ := p.ReachableDefinitions()

	used := make(map[mir.UnitID]struct{})
	for _, def := range reach {
		used[def.Unit] = struct{}{}
	}

	var units []mir.Unit
	for _, unit := range p.units {
		if _, ok := used[unit.Hash]; ok {
			units = append(units, unit)
		}
	}

	sort.Slice(units, func(i, j int) bool {
		return units[i].Name < units[j].Name
	})

	return units
}

// Name returns the declared name of a definition.
func (p *Provider) Name(def mir.DefID) string {
	if d, ok := p.defs[def]; ok {
		return d.name
	}

	return ""
}
