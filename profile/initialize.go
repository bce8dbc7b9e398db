package profile

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"ykcfg/common"
)

// InitProject creates a new project with the given name and host at the given
// path.  The project gets a `debug` profile exporting the CFG (the default)
// and a `release` profile that does not.
func InitProject(name, path, host string) error {
	// convert the project directory to the path to project file
	projFilePath := filepath.Join(path, common.ProjectFileName)

	// check to see if a project already exists
	_, err := os.Stat(projFilePath)
	if err == nil {
		return errors.New("project file already exists")
	}

	if !os.IsNotExist(err) {
		return errors.Wrap(err, "project file error")
	}

	// validate project name
	if !IsValidIdentifier(name) {
		return errors.New("project name must be a valid identifier")
	}

	input := "./..."
	switch host {
	case HostGoSSA:
	case HostFixture:
		input = name + ".yaml"
	default:
		return errors.Errorf("`%s` is not a supported host", host)
	}

	// create project
	tpf := &tomlProjectFile{
		Project: &tomlProject{
			Name:    name,
			Host:    host,
			Inputs:  []string{input},
			Version: common.YkVersion,
		},
		Profiles: []*tomlProfile{newInitProfile(name, true), newInitProfile(name, false)},
	}

	// encode and save project to file
	f, err := os.Create(projFilePath)
	if err != nil {
		return errors.Wrap(err, "error creating project file")
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(tpf); err != nil {
		return errors.Wrap(err, "error encoding TOML")
	}

	return nil
}

// newInitProfile creates a new initial profile for a project
func newInitProfile(projName string, debug bool) *tomlProfile {
	prof := &tomlProfile{
		TargetOS:      runtime.GOOS,
		TargetArch:    runtime.GOARCH,
		DebugSections: debug,
		Embedder:      EmbedderELF,
		OutputPath:    filepath.Join("bin", projName),
		Format:        "bin",
		Linker:        "cc",
		DefaultProf:   debug, // debug profile is the default
	}

	if debug {
		prof.Name = "debug"
		prof.OutputPath += "_debug"
	} else {
		prof.Name = "release"
	}

	return prof
}
