package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"ykcfg/common"
	"ykcfg/embed"
	"ykcfg/logging"
)

// tomlProjectFile represents the project file as it is encoded in TOML
type tomlProjectFile struct {
	Project  *tomlProject   `toml:"project"`
	Profiles []*tomlProfile `toml:"profiles"`
}

// tomlProject represents a project as it is encoded in TOML
type tomlProject struct {
	Name    string   `toml:"name"`
	Host    string   `toml:"host"`
	Inputs  []string `toml:"inputs"`
	Version string   `toml:"ykcfg-version"`
}

// tomlProfile represents a profile as it encoded in TOML
type tomlProfile struct {
	Name          string   `toml:"name"`
	TargetOS      string   `toml:"target-os"`
	TargetArch    string   `toml:"target-arch"`
	DebugSections bool     `toml:"debug-sections"`
	Embedder      string   `toml:"embedder,omitempty"`
	Tool          string   `toml:"tool,omitempty"`
	OutputPath    string   `toml:"output"`
	Format        string   `toml:"format"`
	Linker        string   `toml:"linker,omitempty"`
	LinkArgs      []string `toml:"link-args,omitempty"`
	LinkObjects   []string `toml:"link-objects,omitempty"`
	Workers       int      `toml:"workers,omitempty"`
	DefaultProf   bool     `toml:"default"` // in absence of a selected profile, choose this profile
}

// LoadProject loads and validates a project as well as determining the
// correct profile.  `path` is the path to the project directory.
// `selectedProfile` can be empty if there is no profile selected.
func LoadProject(path, selectedProfile string) (*Project, *BuildProfile, error) {
	buff, err := os.ReadFile(filepath.Join(path, common.ProjectFileName))
	if err != nil {
		return nil, nil, err
	}

	tpf := &tomlProjectFile{}
	if err := toml.Unmarshal(buff, tpf); err != nil {
		return nil, nil, errors.Wrapf(err, "error decoding %s", common.ProjectFileName)
	}

	if tpf.Project == nil {
		return nil, nil, errors.Errorf("missing [project] table in %s", filepath.Join(path, common.ProjectFileName))
	}

	proj := &Project{
		Name: tpf.Project.Name,
		Root: path,
		Host: tpf.Project.Host,
	}

	// ensure that the project itself is valid
	if err := validateProject(proj, tpf.Project); err != nil {
		return nil, nil, err
	}

	for _, input := range tpf.Project.Inputs {
		if proj.Host == HostFixture {
			input = resolvePath(path, input)
		}

		proj.Inputs = append(proj.Inputs, input)
	}

	tprof, err := selectProfile(proj, tpf.Profiles, selectedProfile)
	if err != nil {
		return nil, nil, err
	}

	prof, err := convertProfile(path, tprof)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "in profile `%s` of project `%s`", tprof.Name, proj.Name)
	}

	return proj, prof, nil
}

// validateProject checks that the top level project contents are valid
func validateProject(proj *Project, tproj *tomlProject) error {
	if tproj.Name == "" {
		return errors.Errorf("missing project name for project at %s", proj.Root)
	}

	if !IsValidIdentifier(tproj.Name) {
		return errors.New("project name must be a valid identifier")
	}

	switch tproj.Host {
	case HostGoSSA, HostFixture:
	case "":
		return errors.Errorf("project `%s` must specify a host", tproj.Name)
	default:
		return errors.Errorf("`%s` is not a supported host", tproj.Host)
	}

	if len(tproj.Inputs) == 0 {
		return errors.Errorf("project `%s` must specify at least one input", tproj.Name)
	}

	if tproj.Version != common.YkVersion {
		logging.LogBuildWarning(
			"Project",
			fmt.Sprintf("version of project `%s` (v%s) does not match current ykcfg version (v%s)", tproj.Name, tproj.Version, common.YkVersion),
		)
	}

	return nil
}

// selectProfile chooses the selected profile if there is one and the default
// profile otherwise.
func selectProfile(proj *Project, profiles []*tomlProfile, selectedProfile string) (*tomlProfile, error) {
	if len(profiles) == 0 {
		return nil, errors.Errorf("project `%s` must provide at least one build profile", proj.Name)
	}

	if selectedProfile != "" {
		for _, prof := range profiles {
			if prof.Name == selectedProfile {
				return prof, nil
			}
		}

		return nil, errors.Errorf("project `%s` has no profile `%s`", proj.Name, selectedProfile)
	}

	var defaultProf *tomlProfile
	for _, prof := range profiles {
		if prof.DefaultProf {
			if defaultProf != nil {
				logging.LogBuildWarning(
					"Project",
					fmt.Sprintf("multiple default profiles in project `%s`; building with profile `%s`", proj.Name, defaultProf.Name),
				)

				break
			}

			defaultProf = prof
		}
	}

	if defaultProf != nil {
		return defaultProf, nil
	}

	if len(profiles) == 1 {
		return profiles[0], nil
	}

	return nil, errors.Errorf("project `%s` does not specify a default profile; `--profile` argument is required", proj.Name)
}

// formatNames maps TOML format name strings to enumerated format values
var formatNames = map[string]int{
	"bin": FormatBin,
	"obj": FormatObject,
}

// convertProfile converts a TOML build profile into a `*BuildProfile`
func convertProfile(root string, tprof *tomlProfile) (*BuildProfile, error) {
	if tprof.Name == "" {
		return nil, errors.New("profile must specify a name")
	}

	if tprof.OutputPath == "" {
		return nil, errors.New("profile must specify an output path")
	}

	if tprof.TargetOS == "" {
		return nil, errors.New("profile must specify a target operating system")
	}

	if tprof.TargetArch == "" {
		return nil, errors.New("profile must specify a target architecture")
	}

	if tprof.Format == "" {
		return nil, errors.New("profile must specify an output format")
	}

	platform, err := embed.PlatformFor(tprof.TargetOS, tprof.TargetArch)
	if err != nil {
		return nil, err
	}

	newProfile := &BuildProfile{
		Name:          tprof.Name,
		Platform:      platform,
		DebugSections: tprof.DebugSections,
		Embedder:      tprof.Embedder,
		Tool:          tprof.Tool,
		OutputPath:    resolvePath(root, tprof.OutputPath),
		Linker:        tprof.Linker,
		LinkArgs:      tprof.LinkArgs,
		Workers:       tprof.Workers,
	}

	if formatVal, ok := formatNames[tprof.Format]; ok {
		newProfile.OutputFormat = formatVal
	} else {
		return nil, errors.Errorf("%s is not a valid output format", tprof.Format)
	}

	switch newProfile.Embedder {
	case "":
		newProfile.Embedder = EmbedderELF
	case EmbedderCC:
		// $CC only supplies the default; an explicit tool always wins
		if newProfile.Tool == "" {
			newProfile.Tool = os.Getenv("CC")
		}
	case EmbedderObjcopy, EmbedderLLC, EmbedderELF:
	default:
		return nil, errors.Errorf("%s is not a supported embedder", newProfile.Embedder)
	}

	if newProfile.OutputFormat == FormatBin && newProfile.Linker == "" {
		newProfile.Linker = "cc"
	}

	if newProfile.Workers < 0 {
		return nil, errors.New("workers must not be negative")
	} else if newProfile.Workers == 0 {
		newProfile.Workers = defaultWorkers()
	}

	for _, obj := range tprof.LinkObjects {
		newProfile.LinkObjects = append(newProfile.LinkObjects, resolvePath(root, obj))
	}

	return newProfile, nil
}

// resolvePath makes a project relative path absolute
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(root, path)
}
