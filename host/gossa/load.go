package gossa

import (
	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedDeps | packages.NeedTypes | packages.NeedTypesSizes |
	packages.NeedSyntax | packages.NeedTypesInfo

// Load loads the Go packages matching patterns (relative to dir), builds their
// SSA form and indexes it.
func Load(dir string, patterns ...string) (*Provider, error) {
	cfg := &packages.Config{Mode: loadMode, Dir: dir}

	initial, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "loading packages")
	}

	if len(initial) == 0 {
		return nil, errors.Errorf("no packages match %v", patterns)
	}

	if packages.PrintErrors(initial) > 0 {
		return nil, errors.New("packages contain errors")
	}

	// the source files of every package, dependencies included
	files := make(map[string][]string)
	packages.Visit(initial, nil, func(pkg *packages.Package) {
		files[pkg.PkgPath] = pkg.CompiledGoFiles
	})

	prog, pkgs := ssautil.AllPackages(initial, ssa.InstantiateGenerics)
	prog.Build()

	var mains []*ssa.Package
	for _, pkg := range pkgs {
		if pkg != nil {
			mains = append(mains, pkg)
		}
	}

	return New(prog, mains, files)
}
