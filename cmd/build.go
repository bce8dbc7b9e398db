package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"ykcfg/driver"
	"ykcfg/embed"
	"ykcfg/host/fixture"
	"ykcfg/host/gossa"
	"ykcfg/link"
	"ykcfg/logging"
	"ykcfg/mir"
	"ykcfg/profile"
)

// buildProject exports the CFG of a project and produces the profile's output.
func buildProject(proj *profile.Project, prof *profile.BuildProfile) error {
	var prov mir.Provider

	// the program is only read when the export is enabled
	if prof.DebugSections {
		logging.BeginPhase("Loading")

		var err error
		prov, err = loadProvider(proj)
		logging.EndPhase(err == nil)

		if err != nil {
			return err
		}
	}

	exp := &driver.Exporter{
		Config: driver.Config{
			Enabled:  prof.DebugSections,
			Workers:  prof.Workers,
			Platform: prof.Platform,
		},
		Provider: prov,
		Backend:  prof.Backend(),
	}

	var res *driver.Result
	var err error
	switch prof.OutputFormat {
	case profile.FormatBin:
		if err := os.MkdirAll(filepath.Dir(prof.OutputPath), 0755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}

		res, err = exp.Export(&link.Linker{
			Command: prof.Linker,
			Args:    prof.LinkArgs,
			Output:  prof.OutputPath,
			Extra:   prof.LinkObjects,
		})
	case profile.FormatObject:
		res, err = exp.Run()
		if err == nil {
			err = saveObjects(res.Objects, prof.OutputPath)
		}
	}

	if err != nil {
		return err
	}

	if prof.DebugSections {
		if res.Definitions == 0 {
			logging.LogBuildWarning("Export", "no reachable definitions were found")
		}

		logging.PrintInfoMessage("Exported", fmt.Sprintf(
			"%d definitions (%d without body), %d records, %d bytes",
			res.Definitions, res.Bodiless, res.Records, res.SectionSize,
		))
	}

	return nil
}

// loadProvider loads the program of a project with its host.
func loadProvider(proj *profile.Project) (mir.Provider, error) {
	switch proj.Host {
	case profile.HostGoSSA:
		return gossa.Load(proj.Root, proj.Inputs...)
	case profile.HostFixture:
		return fixture.Load(proj.Inputs...)
	default:
		return nil, errors.Errorf("`%s` is not a supported host", proj.Host)
	}
}

// saveObjects copies objects into the output directory, naming each after its
// section, and releases them.
func saveObjects(objs []*embed.Object, outDir string) (err error) {
	defer func() {
		if rerr := embed.ReleaseAll(objs); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	for _, obj := range objs {
		dest := filepath.Join(outDir, strings.TrimPrefix(obj.Section(), ".")+".o")
		if err := copyFile(obj.Path(), dest); err != nil {
			return errors.Wrapf(err, "saving object for section `%s`", obj.Section())
		}
	}

	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
