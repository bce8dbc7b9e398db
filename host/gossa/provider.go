// Package gossa is a host that exports the control flow of Go programs.  Units
// are Go packages and definitions are the functions of their SSA form.
package gossa

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"ykcfg/mir"
)

// syntheticUnit owns the functions that belong to no package, eg. wrappers
// synthesized for method values.
const syntheticUnit = "$synthetic"

// Provider serves the functions of an SSA program.
type Provider struct {
	units map[string]mir.Unit
	funcs map[mir.DefID]*ssa.Function
	ids   map[*ssa.Function]mir.DefID
	roots []mir.DefID

	reachOnce sync.Once
	reach     []mir.DefID
	reachErr  error
}

// New indexes every function of prog.  The exported definitions are those
// reachable from the entry points of the packages in mains: `main` and `init`
// for main packages, every package-level function otherwise.  files maps an
// import path to the source files of that package; packages without files are
// hashed by their path alone.
func New(prog *ssa.Program, mains []*ssa.Package, files map[string][]string) (*Provider, error) {
	p := &Provider{
		units: make(map[string]mir.Unit),
		funcs: make(map[mir.DefID]*ssa.Function),
		ids:   make(map[*ssa.Function]mir.DefID),
	}

	// group the functions by unit; the map iteration order is random so the
	// functions are sorted before being numbered
	byUnit := make(map[string][]*ssa.Function)
	for fn := range ssautil.AllFunctions(prog) {
		name := unitName(fn)
		byUnit[name] = append(byUnit[name], fn)
	}

	for name, fns := range byUnit {
		sort.SliceStable(fns, func(i, j int) bool {
			if si, sj := fns[i].String(), fns[j].String(); si != sj {
				return si < sj
			}

			return fns[i].Pos() < fns[j].Pos()
		})

		// instances and wrappers can join a unit from elsewhere in the
		// program, so the member list is hashed along with the sources
		members := make([]string, len(fns))
		for i, fn := range fns {
			members[i] = fn.String()
		}

		hash, err := hashUnit(name, files[name], members)
		if err != nil {
			return nil, err
		}

		p.units[name] = mir.Unit{Name: name, Hash: hash}

		for i, fn := range fns {
			id := mir.DefID{Unit: hash, Index: mir.DefIndex(i)}
			p.funcs[id] = fn
			p.ids[fn] = id
		}
	}

	for _, pkg := range mains {
		for _, fn := range entryPoints(pkg) {
			id, ok := p.ids[fn]
			if !ok {
				return nil, errors.Errorf("entry point %s is not part of the program", fn)
			}

			p.roots = append(p.roots, id)
		}
	}

	if len(p.roots) == 0 {
		return nil, errors.New("the program has no entry points")
	}

	return p, nil
}

// unitName returns the import path of the package owning fn.
func unitName(fn *ssa.Function) string {
	pkg := fn.Package()
	if pkg == nil && fn.Origin() != nil {
		pkg = fn.Origin().Package()
	}

	if pkg == nil {
		return syntheticUnit
	}

	return pkg.Pkg.Path()
}

// hashUnit hashes a package's path, the contents of its sorted source files
// and the names of its functions in index order.
func hashUnit(name string, paths []string, members []string) (mir.UnitID, error) {
	sorted := append([]string{}, paths...)
	sort.Strings(sorted)

	var sources []io.Reader
	for _, path := range sorted {
		f, err := os.Open(path)
		if err != nil {
			return 0, errors.Wrapf(err, "hashing package %s", name)
		}
		defer f.Close()

		sources = append(sources, f)
	}

	sources = append(sources, strings.NewReader(strings.Join(members, "\n")))
	return mir.HashUnit(name, sources...)
}

// entryPoints returns the functions exports start from in pkg, ordered by
// name.
func entryPoints(pkg *ssa.Package) []*ssa.Function {
	var fns []*ssa.Function

	if pkg.Pkg.Name() == "main" {
		for _, name := range []string{"main", "init"} {
			if fn := pkg.Func(name); fn != nil {
				fns = append(fns, fn)
			}
		}

		return fns
	}

	var names []string
	for name, member := range pkg.Members {
		if _, ok := member.(*ssa.Function); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fns = append(fns, pkg.Func(name))
	}

	return fns
}

// -----------------------------------------------------------------------------

// ReachableDefinitions returns the functions reachable from the entry points
// through static references.
func (p *Provider) ReachableDefinitions() ([]mir.DefID, error) {
	p.reachOnce.Do(func() {
		p.reach, p.reachErr = mir.Walk(p.roots, p.successors)
	})

	return p.reach, p.reachErr
}

// successors returns the functions a function refers to statically: its
// static callees, the functions it takes the value of and its anonymous
// functions.  Dynamic calls are not followed.
func (p *Provider) successors(def mir.DefID) ([]mir.DefID, error) {
	fn := p.funcs[def]

	var succs []mir.DefID
	add := func(callee *ssa.Function) {
		if id, ok := p.ids[callee]; ok {
			succs = append(succs, id)
		}
	}

	var operands []*ssa.Value
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			operands = instr.Operands(operands[:0])
			for _, op := range operands {
				if op == nil {
					continue
				}

				if callee, ok := (*op).(*ssa.Function); ok {
					add(callee)
				}
			}
		}
	}

	for _, anon := range fn.AnonFuncs {
		add(anon)
	}

	return succs, nil
}

func (p *Provider) HasBody(def mir.DefID) bool {
	fn, ok := p.funcs[def]
	return ok && len(fn.Blocks) > 0
}

func (p *Provider) BlocksOf(def mir.DefID) ([]mir.Block, error) {
	fn, ok := p.funcs[def]
	if !ok {
		return nil, errors.Errorf("unknown definition %s", def)
	}

	blocks, err := p.splitBlocks(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", fn)
	}

	return blocks, nil
}

// Units returns the packages owning at least one reachable function, ordered
// by import path.
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

// Name returns the name of the function behind a definition.
func (p *Provider) Name(def mir.DefID) string {
	if fn, ok := p.funcs[def]; ok {
		return fn.String()
	}

	return ""
}
