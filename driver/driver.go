// Package driver runs the CFG export: it walks the definitions of a program,
// encodes their blocks, embeds the resulting sections into objects and hands
// those objects to the link step.
package driver

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"ykcfg/common"
	"ykcfg/embed"
	"ykcfg/link"
	"ykcfg/logging"
	"ykcfg/mir"
	"ykcfg/sections/mircfg"
	"ykcfg/sections/unitmap"
)

// Config controls one export.  It is fixed when the exporter is constructed.
type Config struct {
	// Enabled switches the export on.  A disabled exporter produces no
	// objects and never queries the provider.
	Enabled bool

	// Workers bounds the number of definitions encoded at the same time
	Workers int

	// Platform is the target the sections are laid out and embedded for
	Platform *embed.Platform

	// CFGSection and UnitMapSection override the default section names
	CFGSection     string
	UnitMapSection string
}

// Exporter exports the CFG of the program described by Provider.
type Exporter struct {
	Config   Config
	Provider mir.Provider
	Backend  embed.Backend
}

// Result is the outcome of a successful export.
type Result struct {
	// Objects are the produced objects: the CFG section first, then the unit
	// map.  The caller owns them.
	Objects []*embed.Object

	Definitions int
	Bodiless    int
	Records     int
	SectionSize int
}

// Run exports the CFG.  Any error aborts the export and every object produced
// so far is released.
func (e *Exporter) Run() (*Result, error) {
	if !e.Config.Enabled {
		return &Result{}, nil
	}

	if e.Config.Platform == nil {
		return nil, errors.New("no target platform configured")
	}

	res := &Result{}
	section, err := e.EncodeSection(res)
	if err != nil {
		return nil, err
	}

	logging.BeginPhase("Embedding")

	cfgObj, err := embed.Embed(section, e.cfgSection(), e.Config.Platform, e.Backend)
	if err != nil {
		logging.EndPhase(false)
		return nil, err
	}
	res.Objects = append(res.Objects, cfgObj)

	unitMap, err := unitmap.Encode(e.Provider.Units(), e.Config.Platform.Layout())
	if err != nil {
		logging.EndPhase(false)
		embed.ReleaseAll(res.Objects)
		return nil, errors.Wrap(err, "encoding unit map")
	}

	mapObj, err := embed.Embed(unitMap, e.unitMapSection(), e.Config.Platform, e.Backend)
	if err != nil {
		logging.EndPhase(false)
		embed.ReleaseAll(res.Objects)
		return nil, err
	}
	res.Objects = append(res.Objects, mapObj)

	logging.EndPhase(true)
	return res, nil
}

// EncodeSection walks and encodes every reachable definition and returns the
// finished CFG section.  Counters are accumulated into res.
func (e *Exporter) EncodeSection(res *Result) ([]byte, error) {
	logging.BeginPhase("Walking")

	defs, err := e.Provider.ReachableDefinitions()
	if err != nil {
		logging.EndPhase(false)
		return nil, errors.Wrap(err, "collecting reachable definitions")
	}

	seen := make(map[mir.DefID]struct{}, len(defs))
	for _, def := range defs {
		if _, ok := seen[def]; ok {
			logging.EndPhase(false)
			return nil, errors.Errorf("definition %s is reachable twice", def)
		}

		seen[def] = struct{}{}
	}

	logging.EndPhase(true)
	logging.BeginPhase("Encoding")

	section, err := e.encode(defs, res)
	logging.EndPhase(err == nil)
	return section, err
}

func (e *Exporter) encode(defs []mir.DefID, res *Result) ([]byte, error) {
	root, err := mircfg.NewBuilder(e.Config.Platform.Layout())
	if err != nil {
		return nil, err
	}

	// every definition is encoded into its own fragment; fragments are joined
	// in definition order so the section does not depend on scheduling
	frags := make([]*mircfg.Builder, len(defs))
	bodiless := make([]bool, len(defs))
	for i := range frags {
		frags[i] = root.Fork()
	}

	g, ctx := errgroup.WithContext(context.Background())
	if e.Config.Workers > 0 {
		g.SetLimit(e.Config.Workers)
	}

	for i, def := range defs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			noBody, err := encodeDefinition(frags[i], e.Provider, def)
			bodiless[i] = noBody
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, frag := range frags {
		if err := root.Join(frag); err != nil {
			return nil, err
		}

		if bodiless[i] {
			res.Bodiless++
		}
	}

	section, err := root.Finish()
	if err != nil {
		return nil, err
	}

	res.Definitions += len(defs)
	res.Records += root.Records()
	res.SectionSize += len(section)
	return section, nil
}

// encodeDefinition pushes the records of one definition: a single NoBody
// record when it has no CFG, otherwise one record per block in block order.
func encodeDefinition(b *mircfg.Builder, prov mir.Provider, def mir.DefID) (bool, error) {
	if !prov.HasBody(def) {
		return true, b.Push(mircfg.NoBodyEdge(def))
	}

	blocks, err := prov.BlocksOf(def)
	if err != nil {
		return false, errors.Wrapf(err, "reading blocks of %s", def)
	}

	// a body without blocks would leave the definition with no record at all
	if len(blocks) == 0 {
		return false, errors.Errorf("definition %s has a body but no blocks", def)
	}

	for i, blk := range blocks {
		if blk.ID != mir.BlockID(i) {
			return false, errors.Errorf("blocks of %s are not in order: bb%d at position %d", def, blk.ID, i)
		}

		edge, err := mircfg.Encode(mir.Location{Def: def, Block: blk.ID}, blk.Term)
		if err != nil {
			return false, err
		}

		if err := b.Push(edge); err != nil {
			return false, err
		}
	}

	return false, nil
}

func (e *Exporter) cfgSection() string {
	if e.Config.CFGSection != "" {
		return e.Config.CFGSection
	}

	return common.MirCfgSectionName
}

func (e *Exporter) unitMapSection() string {
	if e.Config.UnitMapSection != "" {
		return e.Config.UnitMapSection
	}

	return common.UnitMapSectionName
}

// Export runs the export and then the link command with the produced objects
// added.  A disabled exporter runs the link command unchanged.  The objects
// are released once the linker has run.
func (e *Exporter) Export(l *link.Linker) (*Result, error) {
	res, err := e.Run()
	if err != nil {
		return nil, err
	}

	logging.BeginPhase("Linking")
	err = l.Link(res.Objects)
	logging.EndPhase(err == nil)
	if err != nil {
		return nil, err
	}

	return res, nil
}
